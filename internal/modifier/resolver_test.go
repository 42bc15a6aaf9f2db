package modifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleforge/internal/content"
)

func buildDef(t *testing.T, mods []content.Modifier) *content.Definition {
	t.Helper()
	def, err := content.Build(content.Document{
		Resources: []content.Resource{
			{ID: "currencySoft", Kind: content.KindSoftCurrency},
		},
		Nodes: []content.Node{
			{ID: "apple", Tags: []string{"food"}, CycleSeconds: 2,
				Outputs: []content.Output{{Resource: "currencySoft", PerCycle: 1}}},
			{ID: "mine", CycleSeconds: 4,
				Outputs: []content.Output{{Resource: "currencySoft", PerCycle: 3}}},
		},
		NodeInstances: []content.NodeInstance{
			{ID: "orchard.apple.1", Node: "apple", Zone: "orchard", Level: 1},
			{ID: "cavern.mine.1", Node: "mine", Zone: "cavern", Level: 1},
		},
		Modifiers: mods,
	})
	require.NoError(t, err)
	return def
}

func TestResolve_NoMatchingModifiersIsNeutral(t *testing.T) {
	r := NewResolver(buildDef(t, nil))
	assert.Equal(t, 1.0, r.Resolve(KindOutput, "currencySoft", "orchard.apple.1"))
}

func TestResolve_MultiplicativeComposition(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "a", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 0.5},
		{ID: "b", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 0.2},
	}))
	got := r.Resolve(KindOutput, "currencySoft", "orchard.apple.1")
	assert.InDelta(t, 1.5*1.2, got, 1e-12)
}

func TestResolve_AdditiveTermAppliesBeforeProduct(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "a", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpAdd, Target: "output[currencySoft]", Value: 0.3},
		{ID: "b", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpAdd, Target: "output[currencySoft]", Value: 0.2},
		{ID: "c", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 1.0},
	}))
	got := r.Resolve(KindOutput, "currencySoft", "orchard.apple.1")
	assert.InDelta(t, (1+0.5)*2, got, 1e-12)
}

func TestResolve_ZoneScope(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "z", Scope: content.Scope{Kind: content.ScopeZone, Zone: "orchard"}, Operation: content.OpMultiply, Target: "speed[currencySoft]", Value: 0.25},
	}))
	assert.InDelta(t, 1.25, r.Resolve(KindSpeed, "currencySoft", "orchard.apple.1"), 1e-12)
	assert.Equal(t, 1.0, r.Resolve(KindSpeed, "currencySoft", "cavern.mine.1"))
}

func TestResolve_NodeScopeByIDAndTag(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "byid", Scope: content.Scope{Kind: content.ScopeNode, Node: "mine"}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 1},
		{ID: "bytag", Scope: content.Scope{Kind: content.ScopeNode, NodeTag: "food"}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 0.5},
	}))
	assert.InDelta(t, 2.0, r.Resolve(KindOutput, "currencySoft", "cavern.mine.1"), 1e-12)
	assert.InDelta(t, 1.5, r.Resolve(KindOutput, "currencySoft", "orchard.apple.1"), 1e-12)
}

func TestResolve_ResourceScopeIgnoresInstance(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "res", Scope: content.Scope{Kind: content.ScopeResource, Resource: "currencySoft"}, Operation: content.OpMultiply, Target: "resourceGain[currencySoft]", Value: 0.1},
	}))
	assert.InDelta(t, 1.1, r.Resolve(KindResourceGain, "currencySoft", ""), 1e-12)
	assert.InDelta(t, 1.1, r.Resolve(KindResourceGain, "currencySoft", "orchard.apple.1"), 1e-12)
}

func TestResolve_UnknownInstanceNeverMatchesScopedEntries(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "z", Scope: content.Scope{Kind: content.ScopeZone, Zone: "orchard"}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 9},
	}))
	assert.Equal(t, 1.0, r.Resolve(KindOutput, "currencySoft", "no.such.instance"))
}

func TestResolve_CorruptValuesCollapseToNeutral(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), -1, -5} {
		r := NewResolver(buildDef(t, []content.Modifier{
			{ID: "bad", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: v},
		}))
		got := r.Resolve(KindOutput, "currencySoft", "orchard.apple.1")
		assert.Equal(t, 1.0, got, "value %v", v)
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "a", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpMultiply, Target: "output[currencySoft]", Value: 0.37},
		{ID: "b", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpAdd, Target: "output[currencySoft]", Value: 0.11},
	}))
	first := r.Resolve(KindOutput, "currencySoft", "orchard.apple.1")
	for i := 0; i < 100; i++ {
		assert.Equal(t, math.Float64bits(first), math.Float64bits(r.Resolve(KindOutput, "currencySoft", "orchard.apple.1")))
	}
}

func TestResolve_NonCanonicalTargetsAreSkipped(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "garbage", Scope: content.Scope{Kind: content.ScopeGlobal}, Operation: content.OpMultiply, Target: "garbage", Value: 10},
	}))
	assert.Equal(t, 1.0, r.Resolve(KindOutput, "currencySoft", "orchard.apple.1"))
}

func TestAutomationEnabled(t *testing.T) {
	r := NewResolver(buildDef(t, []content.Modifier{
		{ID: "auto", Scope: content.Scope{Kind: content.ScopeZone, Zone: "orchard"}, Operation: content.OpAdd, Target: "automation[currencySoft]", Value: 1},
		{ID: "noop", Scope: content.Scope{Kind: content.ScopeZone, Zone: "cavern"}, Operation: content.OpAdd, Target: "automation[currencySoft]", Value: 0},
	}))
	assert.True(t, r.AutomationEnabled("currencySoft", "orchard.apple.1"))
	assert.False(t, r.AutomationEnabled("currencySoft", "cavern.mine.1"), "zero-valued flags do not enable")
}
