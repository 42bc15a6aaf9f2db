package modifier

import (
	"math"

	"idleforge/internal/content"
)

// Kind selects which operation class of modifier targets to aggregate.
// The kind string equals the property segment of the canonical target path,
// e.g. "speed[currencySoft]" feeds KindSpeed.
type Kind string

const (
	// KindOutput scales a node's per-cycle output.
	KindOutput Kind = "output"
	// KindSpeed scales a node's cycle speed (shorter cycles).
	KindSpeed Kind = "speed"
	// KindResourceGain scales every gain of a resource at the ledger.
	KindResourceGain Kind = "resourceGain"
	// KindAutomation is a flag target: any non-zero matching entry enables
	// automation for the subject.
	KindAutomation Kind = "automation"
)

type entry struct {
	mod      content.Modifier
	property string
	resource string
}

// Resolver aggregates layered modifier entries for a subject. It parses
// every target path once at construction; resolution never re-parses.
// Entries combine in content-declaration order so floating-point results
// are reproducible across runs.
type Resolver struct {
	def     *content.Definition
	entries []entry
}

func NewResolver(def *content.Definition) *Resolver {
	r := &Resolver{def: def}
	for _, m := range def.Modifiers {
		property, resource, ok := content.SplitTarget(m.Target)
		if !ok {
			// Non-canonical targets were already flagged as diagnostics
			// at load; they never match a lookup.
			continue
		}
		r.entries = append(r.entries, entry{mod: m, property: property, resource: resource})
	}
	return r
}

// Resolve combines every applicable modifier for the subject into one
// multiplier: additive entries sum into a term applied before the product
// of multiplicative (1+value) contributions. Corrupt results (NaN, Inf,
// non-positive) collapse to the neutral 1 so broken content can only ever
// leave production unchanged.
func (r *Resolver) Resolve(kind Kind, resourceID, instanceID string) float64 {
	addSum := 0.0
	product := 1.0
	for _, e := range r.entries {
		if e.property != string(kind) || e.resource != resourceID {
			continue
		}
		if !r.scopeMatches(e.mod.Scope, resourceID, instanceID) {
			continue
		}
		switch e.mod.Operation {
		case content.OpAdd:
			addSum += e.mod.Value
		case content.OpMultiply:
			product *= 1 + e.mod.Value
		}
	}
	return sanitize((1 + addSum) * product)
}

// AutomationEnabled reports whether any automation-flag modifier with a
// non-zero value applies to the subject.
func (r *Resolver) AutomationEnabled(resourceID, instanceID string) bool {
	for _, e := range r.entries {
		if e.property != string(KindAutomation) || e.resource != resourceID {
			continue
		}
		if e.mod.Value == 0 {
			continue
		}
		if r.scopeMatches(e.mod.Scope, resourceID, instanceID) {
			return true
		}
	}
	return false
}

func (r *Resolver) scopeMatches(s content.Scope, resourceID, instanceID string) bool {
	switch s.Kind {
	case content.ScopeGlobal:
		return true
	case content.ScopeZone:
		inst, ok := r.def.InstanceByID(instanceID)
		return ok && inst.Zone == s.Zone
	case content.ScopeNode:
		inst, ok := r.def.InstanceByID(instanceID)
		if !ok {
			return false
		}
		if s.Node != "" && inst.Node == s.Node {
			return true
		}
		if s.NodeTag == "" {
			return false
		}
		node, ok := r.def.NodeByID(inst.Node)
		if !ok {
			return false
		}
		for _, tag := range node.Tags {
			if tag == s.NodeTag {
				return true
			}
		}
		return false
	case content.ScopeResource:
		return s.Resource == resourceID
	}
	return false
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 1
	}
	return v
}
