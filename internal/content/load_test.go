package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalDoc() Document {
	return Document{
		Resources: []Resource{
			{ID: "currencySoft", Kind: KindSoftCurrency},
			{ID: "gem", Kind: KindHardCurrency},
		},
		Nodes: []Node{
			{
				ID:           "apple",
				CycleSeconds: 2,
				Outputs:      []Output{{Resource: "currencySoft", PerCycle: 1}},
			},
		},
		NodeInstances: []NodeInstance{
			{ID: "orchard.apple.1", Node: "apple", Zone: "orchard", Level: 1, Enabled: true},
		},
	}
}

func TestBuild_MinimalDocument(t *testing.T) {
	def, err := Build(minimalDoc())
	require.NoError(t, err)

	r, ok := def.ResourceByID("currencySoft")
	require.True(t, ok)
	assert.Equal(t, KindSoftCurrency, r.Kind)

	_, ok = def.NodeByID("apple")
	assert.True(t, ok)
	_, ok = def.InstanceByID("orchard.apple.1")
	assert.True(t, ok)

	assert.Equal(t, "currencySoft", def.PrimaryResource())
	assert.Empty(t, def.Diagnostics)
}

func TestBuild_PrimaryResourceFallsBackToFirst(t *testing.T) {
	doc := minimalDoc()
	doc.Resources = []Resource{{ID: "gem", Kind: KindHardCurrency}}
	doc.Nodes[0].Outputs[0].Resource = "gem"
	def, err := Build(doc)
	require.NoError(t, err)
	assert.Equal(t, "gem", def.PrimaryResource())
}

func TestBuild_MissingRequiredRoots(t *testing.T) {
	for name, mutate := range map[string]func(*Document){
		"resources":      func(d *Document) { d.Resources = nil },
		"nodes":          func(d *Document) { d.Nodes = nil },
		"node_instances": func(d *Document) { d.NodeInstances = nil },
	} {
		t.Run(name, func(t *testing.T) {
			doc := minimalDoc()
			mutate(&doc)
			_, err := Build(doc)
			assert.ErrorIs(t, err, ErrMissingRequiredRoot)
		})
	}
}

func TestBuild_WhitespaceOnlyIDsAreAbsent(t *testing.T) {
	doc := minimalDoc()
	doc.Resources = append(doc.Resources, Resource{ID: "   ", Kind: KindMaterial})
	doc.Upgrades = []Upgrade{{ID: " \t "}}

	def, err := Build(doc)
	require.NoError(t, err)
	assert.Len(t, def.Resources, 2)
	assert.Empty(t, def.Upgrades)
}

func TestBuild_DuplicateInstanceIDFailsLoud(t *testing.T) {
	doc := minimalDoc()
	doc.NodeInstances = append(doc.NodeInstances, doc.NodeInstances[0])

	_, err := Build(doc)
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "node_instances", dup.Table)
	assert.Equal(t, "orchard.apple.1", dup.ID)
}

func TestBuild_DuplicateTriggerIDFailsLoud(t *testing.T) {
	doc := minimalDoc()
	doc.Triggers = []Trigger{
		{ID: "trig", Event: "milestone_fired"},
		{ID: "trig", Event: "milestone_fired"},
	}
	_, err := Build(doc)
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "triggers", dup.Table)
}

func TestBuild_DuplicateCatalogEntriesFirstWins(t *testing.T) {
	doc := minimalDoc()
	doc.Upgrades = []Upgrade{
		{ID: "upgrade.sprinklers", Label: "first"},
		{ID: "upgrade.sprinklers", Label: "second"},
	}
	doc.Resources = append(doc.Resources, Resource{ID: "currencySoft", Kind: KindMaterial})

	def, err := Build(doc)
	require.NoError(t, err)
	require.Len(t, def.Upgrades, 1)
	assert.Equal(t, "first", def.Upgrades[0].Label)

	r, _ := def.ResourceByID("currencySoft")
	assert.Equal(t, KindSoftCurrency, r.Kind, "first declaration should win")
}

func TestBuild_CanonicalizesLegacyDottedTargets(t *testing.T) {
	doc := minimalDoc()
	doc.Modifiers = []Modifier{
		{ID: "m1", Scope: Scope{Kind: ScopeGlobal}, Operation: OpMultiply, Target: "output.currencySoft", Value: 0.5},
		{ID: "m2", Scope: Scope{Kind: ScopeGlobal}, Operation: OpMultiply, Target: "speed[currencySoft]", Value: 0.1},
		{ID: "m3", Scope: Scope{Kind: ScopeGlobal}, Operation: OpMultiply, Target: "garbage", Value: 0.1},
	}

	def, err := Build(doc)
	require.NoError(t, err)
	assert.Equal(t, "output[currencySoft]", def.Modifiers[0].Target)
	assert.Equal(t, "speed[currencySoft]", def.Modifiers[1].Target)
	assert.Equal(t, "garbage", def.Modifiers[2].Target, "unrecognized forms stay untouched")
	require.Len(t, def.Diagnostics, 1)
	assert.Contains(t, def.Diagnostics[0], "garbage")
}

func TestBuild_FlagsUnknownModifierOperation(t *testing.T) {
	doc := minimalDoc()
	doc.Modifiers = []Modifier{
		{ID: "m1", Scope: Scope{Kind: ScopeGlobal}, Operation: "divide", Target: "output[currencySoft]", Value: 2},
	}
	def, err := Build(doc)
	require.NoError(t, err)
	require.Len(t, def.Diagnostics, 1)
	assert.Contains(t, def.Diagnostics[0], "divide")
}

func TestBuild_BuffEffectsJSON(t *testing.T) {
	t.Run("list form", func(t *testing.T) {
		doc := minimalDoc()
		doc.Buffs = []Buff{{
			ID:          "buff.rush",
			EffectsJSON: `[{"type":"multiply","target":"speed[currencySoft]","value":1.0}]`,
		}}
		def, err := Build(doc)
		require.NoError(t, err)
		require.Len(t, def.Buffs[0].Effects, 1)
		assert.Equal(t, "multiply", def.Buffs[0].Effects[0].Type)
	})

	t.Run("single object form", func(t *testing.T) {
		doc := minimalDoc()
		doc.Buffs = []Buff{{
			ID:          "buff.rush",
			EffectsJSON: `{"type":"multiply","target":"speed[currencySoft]","value":1.0}`,
		}}
		def, err := Build(doc)
		require.NoError(t, err)
		require.Len(t, def.Buffs[0].Effects, 1)
	})

	t.Run("structured list wins over raw string", func(t *testing.T) {
		doc := minimalDoc()
		doc.Buffs = []Buff{{
			ID:          "buff.rush",
			Effects:     []Effect{{Type: "add"}},
			EffectsJSON: `not even json`,
		}}
		def, err := Build(doc)
		require.NoError(t, err)
		require.Len(t, def.Buffs[0].Effects, 1)
		assert.Equal(t, "add", def.Buffs[0].Effects[0].Type)
	})

	t.Run("malformed json fails naming the buff", func(t *testing.T) {
		doc := minimalDoc()
		doc.Buffs = []Buff{{ID: "buff.broken", EffectsJSON: `{"type":`}}
		_, err := Build(doc)
		var bad *InvalidEmbeddedJSONError
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, "buff.broken", bad.BuffID)
	})
}

func TestBuild_UnknownReferences(t *testing.T) {
	t.Run("instance to missing node", func(t *testing.T) {
		doc := minimalDoc()
		doc.NodeInstances[0].Node = "pear"
		_, err := Build(doc)
		var ref *UnknownReferenceError
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, "pear", ref.Ref)
	})

	t.Run("trigger to missing pool", func(t *testing.T) {
		doc := minimalDoc()
		doc.Triggers = []Trigger{{
			ID:      "trig",
			Event:   "milestone_fired",
			Actions: []Action{{Type: "roll_reward_pool", Pool: "pool.nope"}},
		}}
		_, err := Build(doc)
		var ref *UnknownReferenceError
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, "pool.nope", ref.Ref)
	})
}

func TestParse_YAMLDocument(t *testing.T) {
	def, err := Parse([]byte(`
resources:
  - id: currencySoft
    kind: softCurrency
nodes:
  - id: apple
    cycle_seconds: 2
    outputs:
      - resource: currencySoft
        per_cycle: 1
node_instances:
  - id: orchard.apple.1
    node: apple
    zone: orchard
    level: 3
`))
	require.NoError(t, err)
	inst, ok := def.InstanceByID("orchard.apple.1")
	require.True(t, ok)
	assert.Equal(t, 3, inst.Level)
}

func TestTrigger_EventTypeAlias(t *testing.T) {
	assert.Equal(t, "milestone_fired", Trigger{Event: "milestone_fired"}.EventType())
	assert.Equal(t, "explicit", Trigger{Event: "alias", EventName: "explicit"}.EventType())
}

func TestBuild_MilestoneIndex(t *testing.T) {
	doc := minimalDoc()
	doc.Milestones = []Milestone{
		{ID: "milestone.apple.25", Node: "apple", Level: 25},
		{ID: "milestone.apple.50", Node: "apple", Level: 50},
	}
	def, err := Build(doc)
	require.NoError(t, err)
	ms := def.MilestonesForNode("apple")
	require.Len(t, ms, 2)
	assert.Equal(t, "milestone.apple.25", ms[0].ID)
}
