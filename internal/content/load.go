package content

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Duplicate-id handling is deliberately not uniform across tables. Node
// instances and triggers are fail-loud because a duplicate there silently
// doubles production or reward rules; catalog-style tables keep the first
// entry and drop later ones, which is what shipped content has always
// relied on. Changing a policy changes content compatibility.
type dupPolicy int

const (
	dupFirstWins dupPolicy = iota
	dupFailLoud
)

var duplicatePolicy = map[string]dupPolicy{
	"resources":      dupFirstWins,
	"nodes":          dupFirstWins,
	"node_instances": dupFailLoud,
	"modifiers":      dupFirstWins,
	"upgrades":       dupFirstWins,
	"milestones":     dupFirstWins,
	"buffs":          dupFirstWins,
	"triggers":       dupFailLoud,
	"reward_pools":   dupFirstWins,
	"zones":          dupFirstWins,
}

// Load reads and validates a content document from disk.
func Load(path string) (*Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes, validates, and normalizes a content document. Any
// structural violation fails the whole load; there is no partial content
// activation.
func Parse(b []byte) (*Definition, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode content document: %w", err)
	}
	return Build(doc)
}

// Build validates an already-decoded document into a Definition.
func Build(doc Document) (*Definition, error) {
	def := &Definition{}

	var err error
	if def.Resources, err = dedupResources(doc.Resources); err != nil {
		return nil, err
	}
	if def.Nodes, err = dedupNodes(doc.Nodes); err != nil {
		return nil, err
	}
	if def.NodeInstances, err = dedupInstances(doc.NodeInstances); err != nil {
		return nil, err
	}
	if def.Modifiers, err = dedupModifiers(doc.Modifiers); err != nil {
		return nil, err
	}
	if def.Upgrades, err = dedupUpgrades(doc.Upgrades); err != nil {
		return nil, err
	}
	if def.Milestones, err = dedupMilestones(doc.Milestones); err != nil {
		return nil, err
	}
	if def.Buffs, err = dedupBuffs(doc.Buffs); err != nil {
		return nil, err
	}
	if def.Triggers, err = dedupTriggers(doc.Triggers); err != nil {
		return nil, err
	}
	if def.RewardPools, err = dedupPools(doc.RewardPools); err != nil {
		return nil, err
	}
	if def.Zones, err = dedupZones(doc.Zones); err != nil {
		return nil, err
	}
	def.ComputedVars = append([]ComputedVar(nil), doc.ComputedVars...)
	def.Prestige = doc.Prestige

	if len(def.Resources) == 0 {
		return nil, fmt.Errorf("%w: resources", ErrMissingRequiredRoot)
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("%w: nodes", ErrMissingRequiredRoot)
	}
	if len(def.NodeInstances) == 0 {
		return nil, fmt.Errorf("%w: node_instances", ErrMissingRequiredRoot)
	}

	def.buildIndexes()

	if err := def.normalizeBuffs(); err != nil {
		return nil, err
	}
	def.canonicalizePaths()

	if err := def.checkReferences(); err != nil {
		return nil, err
	}

	// First declared soft currency is the accrual resource; fall back to
	// the first declared resource for content without one.
	def.primaryResource = def.Resources[0].ID
	for _, r := range def.Resources {
		if r.Kind == KindSoftCurrency {
			def.primaryResource = r.ID
			break
		}
	}

	return def, nil
}

func (d *Definition) buildIndexes() {
	d.resourceByID = make(map[string]Resource, len(d.Resources))
	for _, r := range d.Resources {
		d.resourceByID[r.ID] = r
	}
	d.nodeByID = make(map[string]Node, len(d.Nodes))
	for _, n := range d.Nodes {
		d.nodeByID[n.ID] = n
	}
	d.instanceByID = make(map[string]NodeInstance, len(d.NodeInstances))
	for _, ni := range d.NodeInstances {
		d.instanceByID[ni.ID] = ni
	}
	d.poolByID = make(map[string]RewardPool, len(d.RewardPools))
	for _, p := range d.RewardPools {
		d.poolByID[p.ID] = p
	}
	d.milestonesByNode = make(map[string][]Milestone)
	for _, m := range d.Milestones {
		d.milestonesByNode[m.Node] = append(d.milestonesByNode[m.Node], m)
	}
}

// normalizeBuffs resolves the effects_json escape hatch: when a buff has no
// structured effects, the raw JSON string must decode to a single effect
// object or a list of them.
func (d *Definition) normalizeBuffs() error {
	for i := range d.Buffs {
		b := &d.Buffs[i]
		if len(b.Effects) > 0 || strings.TrimSpace(b.EffectsJSON) == "" {
			continue
		}
		raw := []byte(b.EffectsJSON)
		var list []Effect
		if err := json.Unmarshal(raw, &list); err == nil {
			b.Effects = list
			continue
		}
		var single Effect
		if err := json.Unmarshal(raw, &single); err != nil {
			return &InvalidEmbeddedJSONError{BuffID: b.ID, Err: err}
		}
		b.Effects = []Effect{single}
	}
	return nil
}

// canonicalizePaths rewrites every resource-qualified path field into
// bracket form. Unrecognized forms are kept as authored but recorded as
// diagnostics.
func (d *Definition) canonicalizePaths() {
	diag := func(where, path string) {
		d.Diagnostics = append(d.Diagnostics,
			fmt.Sprintf("%s: path %q is not canonicalizable", where, path))
	}

	for i := range d.Modifiers {
		m := &d.Modifiers[i]
		c, ok := CanonicalTarget(m.Target)
		if !ok {
			diag("modifier "+m.ID, m.Target)
		}
		m.Target = c
		if m.Operation != OpMultiply && m.Operation != OpAdd {
			d.Diagnostics = append(d.Diagnostics,
				fmt.Sprintf("modifier %s: unknown operation %q", m.ID, m.Operation))
		}
	}
	for i := range d.ComputedVars {
		v := &d.ComputedVars[i]
		for j, dep := range v.DependsOn {
			c, ok := CanonicalTarget(dep)
			if !ok {
				diag("computed_var "+v.ID, dep)
			}
			v.DependsOn[j] = c
		}
	}
	if d.Prestige != nil {
		for i := range d.Prestige.MetaUpgrades {
			mu := &d.Prestige.MetaUpgrades[i]
			if mu.BasedOn == "" {
				continue
			}
			c, ok := CanonicalTarget(mu.BasedOn)
			if !ok {
				diag("meta_upgrade "+mu.ID, mu.BasedOn)
			}
			mu.BasedOn = c
		}
	}
}

func (d *Definition) checkReferences() error {
	for _, n := range d.Nodes {
		for _, out := range n.Outputs {
			if _, ok := d.resourceByID[out.Resource]; !ok {
				return &UnknownReferenceError{Table: "nodes", ID: n.ID, Field: "outputs.resource", Ref: out.Resource}
			}
		}
	}
	for _, ni := range d.NodeInstances {
		if _, ok := d.nodeByID[ni.Node]; !ok {
			return &UnknownReferenceError{Table: "node_instances", ID: ni.ID, Field: "node", Ref: ni.Node}
		}
	}
	for _, m := range d.Milestones {
		if _, ok := d.nodeByID[m.Node]; !ok {
			return &UnknownReferenceError{Table: "milestones", ID: m.ID, Field: "node", Ref: m.Node}
		}
	}
	for _, t := range d.Triggers {
		for _, a := range t.Actions {
			if a.Pool == "" {
				continue
			}
			if _, ok := d.poolByID[a.Pool]; !ok {
				return &UnknownReferenceError{Table: "triggers", ID: t.ID, Field: "actions.pool", Ref: a.Pool}
			}
		}
	}
	for _, p := range d.RewardPools {
		for _, e := range p.Entries {
			if e.Action.Resource == "" {
				continue
			}
			if _, ok := d.resourceByID[e.Action.Resource]; !ok {
				return &UnknownReferenceError{Table: "reward_pools", ID: p.ID, Field: "entries.action.resource", Ref: e.Action.Resource}
			}
		}
	}
	return nil
}

// dedupKeep reports whether an id should be kept, enforcing the per-table
// duplicate policy. Empty ids (after trimming) are treated as absent and
// never inserted.
func dedupKeep(table string, id string, seen map[string]bool) (keep bool, err error) {
	if id == "" {
		return false, nil
	}
	if seen[id] {
		if duplicatePolicy[table] == dupFailLoud {
			return false, &DuplicateIDError{Table: table, ID: id}
		}
		return false, nil
	}
	seen[id] = true
	return true, nil
}

func dedupResources(in []Resource) ([]Resource, error) {
	out := make([]Resource, 0, len(in))
	seen := map[string]bool{}
	for _, r := range in {
		r.ID = strings.TrimSpace(r.ID)
		keep, err := dedupKeep("resources", r.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, r)
		}
	}
	return out, nil
}

func dedupNodes(in []Node) ([]Node, error) {
	out := make([]Node, 0, len(in))
	seen := map[string]bool{}
	for _, n := range in {
		n.ID = strings.TrimSpace(n.ID)
		keep, err := dedupKeep("nodes", n.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, n)
		}
	}
	return out, nil
}

func dedupInstances(in []NodeInstance) ([]NodeInstance, error) {
	out := make([]NodeInstance, 0, len(in))
	seen := map[string]bool{}
	for _, ni := range in {
		ni.ID = strings.TrimSpace(ni.ID)
		ni.Node = strings.TrimSpace(ni.Node)
		keep, err := dedupKeep("node_instances", ni.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, ni)
		}
	}
	return out, nil
}

func dedupModifiers(in []Modifier) ([]Modifier, error) {
	out := make([]Modifier, 0, len(in))
	seen := map[string]bool{}
	for _, m := range in {
		m.ID = strings.TrimSpace(m.ID)
		keep, err := dedupKeep("modifiers", m.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, m)
		}
	}
	return out, nil
}

func dedupUpgrades(in []Upgrade) ([]Upgrade, error) {
	out := make([]Upgrade, 0, len(in))
	seen := map[string]bool{}
	for _, u := range in {
		u.ID = strings.TrimSpace(u.ID)
		keep, err := dedupKeep("upgrades", u.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, u)
		}
	}
	return out, nil
}

func dedupMilestones(in []Milestone) ([]Milestone, error) {
	out := make([]Milestone, 0, len(in))
	seen := map[string]bool{}
	for _, m := range in {
		m.ID = strings.TrimSpace(m.ID)
		m.Node = strings.TrimSpace(m.Node)
		keep, err := dedupKeep("milestones", m.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, m)
		}
	}
	return out, nil
}

func dedupBuffs(in []Buff) ([]Buff, error) {
	out := make([]Buff, 0, len(in))
	seen := map[string]bool{}
	for _, b := range in {
		b.ID = strings.TrimSpace(b.ID)
		keep, err := dedupKeep("buffs", b.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, b)
		}
	}
	return out, nil
}

func dedupTriggers(in []Trigger) ([]Trigger, error) {
	out := make([]Trigger, 0, len(in))
	seen := map[string]bool{}
	for _, t := range in {
		t.ID = strings.TrimSpace(t.ID)
		keep, err := dedupKeep("triggers", t.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, t)
		}
	}
	return out, nil
}

func dedupPools(in []RewardPool) ([]RewardPool, error) {
	out := make([]RewardPool, 0, len(in))
	seen := map[string]bool{}
	for _, p := range in {
		p.ID = strings.TrimSpace(p.ID)
		keep, err := dedupKeep("reward_pools", p.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, p)
		}
	}
	return out, nil
}

func dedupZones(in []Zone) ([]Zone, error) {
	out := make([]Zone, 0, len(in))
	seen := map[string]bool{}
	for _, z := range in {
		z.ID = strings.TrimSpace(z.ID)
		keep, err := dedupKeep("zones", z.ID, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, z)
		}
	}
	return out, nil
}
