package content

// ResourceKind values recognized by the economy core.
const (
	KindSoftCurrency = "softCurrency"
	KindHardCurrency = "hardCurrency"
	KindMaterial     = "material"
)

// Modifier operations, by convention.
const (
	OpMultiply = "multiply"
	OpAdd      = "add"
)

// Document is the raw shape of a game-content document as authored.
// It is decoded once and validated into a Definition; nothing reads the
// raw document after load.
type Document struct {
	Version       string         `yaml:"version" json:"version"`
	Resources     []Resource     `yaml:"resources" json:"resources"`
	Nodes         []Node         `yaml:"nodes" json:"nodes"`
	NodeInstances []NodeInstance `yaml:"node_instances" json:"node_instances"`
	Modifiers     []Modifier     `yaml:"modifiers" json:"modifiers,omitempty"`
	Upgrades      []Upgrade      `yaml:"upgrades" json:"upgrades,omitempty"`
	Milestones    []Milestone    `yaml:"milestones" json:"milestones,omitempty"`
	Buffs         []Buff         `yaml:"buffs" json:"buffs,omitempty"`
	Triggers      []Trigger      `yaml:"triggers" json:"triggers,omitempty"`
	RewardPools   []RewardPool   `yaml:"reward_pools" json:"reward_pools,omitempty"`
	Zones         []Zone         `yaml:"zones" json:"zones,omitempty"`
	ComputedVars  []ComputedVar  `yaml:"computed_vars" json:"computed_vars,omitempty"`
	Prestige      *Prestige      `yaml:"prestige" json:"prestige,omitempty"`
}

// Resource is a currency or material tracked by the ledger.
type Resource struct {
	ID    string `yaml:"id" json:"id"`
	Kind  string `yaml:"kind" json:"kind"`
	Label string `yaml:"label" json:"label,omitempty"`
	Icon  string `yaml:"icon" json:"icon,omitempty"`
}

// Output declares what a node pays out and how. Exactly one of the three
// payout fields is expected to be set; when several are, Payout wins over
// PerCycle, which wins over PerSecond.
type Output struct {
	Resource  string  `yaml:"resource" json:"resource"`
	PerCycle  float64 `yaml:"per_cycle" json:"per_cycle,omitempty"`
	PerSecond float64 `yaml:"per_second" json:"per_second,omitempty"`
	Payout    float64 `yaml:"payout" json:"payout,omitempty"`
}

// Leveling holds the price-curve parameters for upgrading a node.
type Leveling struct {
	BaseLevel    int     `yaml:"base_level" json:"base_level,omitempty"`
	MaxLevel     int     `yaml:"max_level" json:"max_level,omitempty"`
	BaseCost     float64 `yaml:"base_cost" json:"base_cost,omitempty"`
	CostCurrency string  `yaml:"cost_currency" json:"cost_currency,omitempty"`
	CostGrowth   float64 `yaml:"cost_growth" json:"cost_growth,omitempty"`
}

// Automation declares whether and how a node's production can be automated.
type Automation struct {
	Available    bool    `yaml:"available" json:"available,omitempty"`
	Cost         float64 `yaml:"cost" json:"cost,omitempty"`
	CostCurrency string  `yaml:"cost_currency" json:"cost_currency,omitempty"`
}

// Node is a producer archetype: cycle duration, outputs, leveling and
// automation policy. Immutable content.
type Node struct {
	ID           string     `yaml:"id" json:"id"`
	Label        string     `yaml:"label" json:"label,omitempty"`
	Tags         []string   `yaml:"tags" json:"tags,omitempty"`
	CycleSeconds float64    `yaml:"cycle_seconds" json:"cycle_seconds"`
	Outputs      []Output   `yaml:"outputs" json:"outputs"`
	Leveling     Leveling   `yaml:"leveling" json:"leveling,omitempty"`
	Automation   Automation `yaml:"automation" json:"automation,omitempty"`
}

// NodeInstance is a concrete placement of a node in a zone, with its
// initial runtime state.
type NodeInstance struct {
	ID      string `yaml:"id" json:"id"`
	Node    string `yaml:"node" json:"node"`
	Zone    string `yaml:"zone" json:"zone,omitempty"`
	Level   int    `yaml:"level" json:"level,omitempty"`
	Enabled bool   `yaml:"enabled" json:"enabled,omitempty"`
}

// Scope kinds for modifiers.
const (
	ScopeGlobal   = "global"
	ScopeZone     = "zone"
	ScopeNode     = "node"
	ScopeResource = "resource"
)

// Scope selects which subjects a modifier applies to.
type Scope struct {
	Kind     string `yaml:"kind" json:"kind"`
	Zone     string `yaml:"zone" json:"zone,omitempty"`
	Node     string `yaml:"node" json:"node,omitempty"`
	NodeTag  string `yaml:"node_tag" json:"node_tag,omitempty"`
	Resource string `yaml:"resource" json:"resource,omitempty"`
}

// Modifier is a scoped numeric adjustment against a resource-qualified
// target path. Pure content; never mutated after load.
type Modifier struct {
	ID        string  `yaml:"id" json:"id"`
	Source    string  `yaml:"source" json:"source,omitempty"`
	Scope     Scope   `yaml:"scope" json:"scope"`
	Operation string  `yaml:"operation" json:"operation"`
	Target    string  `yaml:"target" json:"target"`
	Value     float64 `yaml:"value" json:"value"`
}

// CostItem is one line of a multi-resource price. Amounts are authored as
// strings so price formulas can emit them without float round-tripping.
type CostItem struct {
	Resource string `yaml:"resource" json:"resource"`
	Amount   string `yaml:"amount" json:"amount"`
}

// Effect is a typed content effect carried by upgrades and buffs.
type Effect struct {
	Type   string  `yaml:"type" json:"type"`
	Target string  `yaml:"target" json:"target,omitempty"`
	Value  float64 `yaml:"value" json:"value,omitempty"`
}

// Upgrade is a purchasable catalog entry.
type Upgrade struct {
	ID      string     `yaml:"id" json:"id"`
	Label   string     `yaml:"label" json:"label,omitempty"`
	Cost    []CostItem `yaml:"cost" json:"cost,omitempty"`
	Effects []Effect   `yaml:"effects" json:"effects,omitempty"`
}

// Grant is one effect of reaching a milestone.
type Grant struct {
	Type     string  `yaml:"type" json:"type"`
	Resource string  `yaml:"resource" json:"resource,omitempty"`
	Amount   float64 `yaml:"amount" json:"amount,omitempty"`
	Pool     string  `yaml:"pool" json:"pool,omitempty"`
}

// Milestone fires once per node instance when the instance reaches Level.
type Milestone struct {
	ID     string  `yaml:"id" json:"id"`
	Node   string  `yaml:"node" json:"node"`
	Zone   string  `yaml:"zone" json:"zone,omitempty"`
	Level  int     `yaml:"level" json:"level"`
	Grants []Grant `yaml:"grants" json:"grants,omitempty"`
}

// Buff declares timed effects. Effects may be authored structured or as an
// embedded JSON string; see normalizeBuffs.
type Buff struct {
	ID              string   `yaml:"id" json:"id"`
	Label           string   `yaml:"label" json:"label,omitempty"`
	DurationSeconds float64  `yaml:"duration_seconds" json:"duration_seconds,omitempty"`
	Effects         []Effect `yaml:"effects" json:"effects,omitempty"`
	EffectsJSON     string   `yaml:"effects_json" json:"effects_json,omitempty"`
}

// Condition gates a trigger. Evaluated in declaration order.
type Condition struct {
	Type  string `yaml:"type" json:"type"`
	Value string `yaml:"value" json:"value,omitempty"`
}

// Action is executed when all of a trigger's conditions hold.
type Action struct {
	Type     string  `yaml:"type" json:"type"`
	Pool     string  `yaml:"pool" json:"pool,omitempty"`
	Resource string  `yaml:"resource" json:"resource,omitempty"`
	Amount   float64 `yaml:"amount" json:"amount,omitempty"`
}

// Trigger is a declarative event -> conditions -> actions rule. The event
// type may be authored under either the `event` alias or `event_type`;
// EventType() returns the canonical value.
type Trigger struct {
	ID         string      `yaml:"id" json:"id"`
	Event      string      `yaml:"event" json:"event,omitempty"`
	EventName  string      `yaml:"event_type" json:"event_type,omitempty"`
	Conditions []Condition `yaml:"conditions" json:"conditions,omitempty"`
	Actions    []Action    `yaml:"actions" json:"actions,omitempty"`
}

// EventType returns the canonical event type, preferring the explicit
// event_type field over the event alias.
func (t Trigger) EventType() string {
	if t.EventName != "" {
		return t.EventName
	}
	return t.Event
}

// RewardEntry pairs a relative probability mass with an action.
type RewardEntry struct {
	Weight float64 `yaml:"weight" json:"weight"`
	Action Action  `yaml:"action" json:"action"`
}

// RewardPool is a weighted set of reward actions; one entry is selected
// per roll.
type RewardPool struct {
	ID      string        `yaml:"id" json:"id"`
	Entries []RewardEntry `yaml:"entries" json:"entries"`
}

// Zone is a region of the unlock graph.
type Zone struct {
	ID         string     `yaml:"id" json:"id"`
	Label      string     `yaml:"label" json:"label,omitempty"`
	UnlockedBy string     `yaml:"unlocked_by" json:"unlocked_by,omitempty"`
	UnlockCost []CostItem `yaml:"unlock_cost" json:"unlock_cost,omitempty"`
}

// ComputedVar is a named derived value with resource-qualified dependencies.
type ComputedVar struct {
	ID        string   `yaml:"id" json:"id"`
	DependsOn []string `yaml:"depends_on" json:"depends_on,omitempty"`
	Formula   string   `yaml:"formula" json:"formula,omitempty"`
}

// Prestige holds the meta-progression layer.
type Prestige struct {
	Currency     string        `yaml:"currency" json:"currency"`
	MetaUpgrades []MetaUpgrade `yaml:"meta_upgrades" json:"meta_upgrades,omitempty"`
}

// MetaUpgrade scales a resource-qualified base value into prestige currency.
type MetaUpgrade struct {
	ID         string  `yaml:"id" json:"id"`
	BasedOn    string  `yaml:"based_on" json:"based_on,omitempty"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier,omitempty"`
	Cost       float64 `yaml:"cost" json:"cost,omitempty"`
}

// Definition is the validated, normalized content model. It is immutable
// after Load and shared by reference with every component.
type Definition struct {
	Resources     []Resource
	Nodes         []Node
	NodeInstances []NodeInstance
	Modifiers     []Modifier
	Upgrades      []Upgrade
	Milestones    []Milestone
	Buffs         []Buff
	Triggers      []Trigger
	RewardPools   []RewardPool
	Zones         []Zone
	ComputedVars  []ComputedVar
	Prestige      *Prestige

	// Diagnostics collects non-fatal findings from normalization, e.g.
	// target paths that could not be canonicalized.
	Diagnostics []string

	resourceByID     map[string]Resource
	nodeByID         map[string]Node
	instanceByID     map[string]NodeInstance
	poolByID         map[string]RewardPool
	milestonesByNode map[string][]Milestone
	primaryResource  string
}

// ResourceByID looks up a resource definition.
func (d *Definition) ResourceByID(id string) (Resource, bool) {
	r, ok := d.resourceByID[id]
	return r, ok
}

// NodeByID looks up a node definition.
func (d *Definition) NodeByID(id string) (Node, bool) {
	n, ok := d.nodeByID[id]
	return n, ok
}

// InstanceByID looks up a node-instance definition.
func (d *Definition) InstanceByID(id string) (NodeInstance, bool) {
	ni, ok := d.instanceByID[id]
	return ni, ok
}

// PoolByID looks up a reward pool.
func (d *Definition) PoolByID(id string) (RewardPool, bool) {
	p, ok := d.poolByID[id]
	return p, ok
}

// MilestonesForNode returns the milestones owned by a node, in declaration
// order.
func (d *Definition) MilestonesForNode(nodeID string) []Milestone {
	return d.milestonesByNode[nodeID]
}

// PrimaryResource is the accrual resource the offline simulator integrates:
// the first declared resource of kind softCurrency, falling back to the
// first declared resource.
func (d *Definition) PrimaryResource() string {
	return d.primaryResource
}
