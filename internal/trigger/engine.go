package trigger

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"idleforge/internal/content"
	"idleforge/internal/event"
	"idleforge/internal/wallet"
)

// Canonical event types this engine build implements. This is a closed
// allow-list: new event types are code, not content.
const EventMilestoneFired = "milestone_fired"

// Condition and action types implemented by this build.
const (
	CondMilestoneIDEquals = "milestone_id_equals"
	ActionRollRewardPool  = "roll_reward_pool"
	ActionAddResource     = "add_resource"
)

// DuplicateTriggerIDError reports two triggers sharing an id.
type DuplicateTriggerIDError struct {
	ID string
}

func (e *DuplicateTriggerIDError) Error() string {
	return fmt.Sprintf("duplicate trigger id %q", e.ID)
}

// UnsupportedRuleError reports a trigger naming an event, condition, or
// action type this engine does not implement. Fatal on purpose: silently
// skipping an unknown rule would hide content bugs.
type UnsupportedRuleError struct {
	TriggerID string
	Kind      string
	Type      string
}

func (e *UnsupportedRuleError) Error() string {
	return fmt.Sprintf("trigger %q: unsupported %s type %q", e.TriggerID, e.Kind, e.Type)
}

// InvalidRewardPoolError reports an empty, unknown, or malformed pool at
// roll time.
type InvalidRewardPoolError struct {
	Pool   string
	Reason string
}

func (e *InvalidRewardPoolError) Error() string {
	return fmt.Sprintf("invalid reward pool %q: %s", e.Pool, e.Reason)
}

// Engine evaluates declarative triggers against fired domain events and
// executes their actions against the ledger. Stateless between firings;
// exactly-once milestone emission is the scheduler's persisted fact, not
// re-derived here.
type Engine struct {
	def     *content.Definition
	wallet  *wallet.Wallet
	rng     *rand.Rand
	byEvent map[string][]content.Trigger
}

// NewEngine indexes the content triggers by canonical event type. Fails on
// duplicate trigger ids and on event types outside the allow-list.
func NewEngine(def *content.Definition, w *wallet.Wallet, rng *rand.Rand) (*Engine, error) {
	e := &Engine{
		def:     def,
		wallet:  w,
		rng:     rng,
		byEvent: map[string][]content.Trigger{},
	}
	seen := map[string]bool{}
	for _, t := range def.Triggers {
		if seen[t.ID] {
			return nil, &DuplicateTriggerIDError{ID: t.ID}
		}
		seen[t.ID] = true

		et, ok := canonicalEventType(t.EventType())
		if !ok {
			return nil, &UnsupportedRuleError{TriggerID: t.ID, Kind: "event", Type: t.EventType()}
		}
		e.byEvent[et] = append(e.byEvent[et], t)
	}
	return e, nil
}

// canonicalEventType folds the authored aliases for each supported event
// into one canonical name.
func canonicalEventType(s string) (string, bool) {
	switch strings.TrimSpace(s) {
	case EventMilestoneFired, "milestoneFired", "milestone.fired":
		return EventMilestoneFired, true
	}
	return "", false
}

// HandleMilestoneFired evaluates every trigger registered for the
// milestone-fired event. Conditions short-circuit on the first failure;
// unsupported condition or action types fail loud.
func (e *Engine) HandleMilestoneFired(ev event.MilestoneFired) error {
	for _, t := range e.byEvent[EventMilestoneFired] {
		matched, err := e.conditionsMatch(t, ev)
		if err != nil {
			return err
		}
		if !matched {
			continue
		}
		for _, a := range t.Actions {
			switch a.Type {
			case ActionRollRewardPool:
				if err := e.RollPool(a.Pool); err != nil {
					return err
				}
			default:
				return &UnsupportedRuleError{TriggerID: t.ID, Kind: "action", Type: a.Type}
			}
		}
	}
	return nil
}

func (e *Engine) conditionsMatch(t content.Trigger, ev event.MilestoneFired) (bool, error) {
	for _, c := range t.Conditions {
		switch c.Type {
		case CondMilestoneIDEquals:
			if c.Value != ev.MilestoneID {
				return false, nil
			}
		default:
			return false, &UnsupportedRuleError{TriggerID: t.ID, Kind: "condition", Type: c.Type}
		}
	}
	return true, nil
}

// RollPool draws one entry from a reward pool with probability
// proportional to its weight and applies the entry's action through the
// ledger's gain path.
func (e *Engine) RollPool(poolID string) error {
	pool, ok := e.def.PoolByID(poolID)
	if !ok {
		return &InvalidRewardPoolError{Pool: poolID, Reason: "unknown pool"}
	}
	if len(pool.Entries) == 0 {
		return &InvalidRewardPoolError{Pool: poolID, Reason: "empty pool"}
	}

	total := 0.0
	for _, entry := range pool.Entries {
		if math.IsNaN(entry.Weight) || math.IsInf(entry.Weight, 0) {
			return &InvalidRewardPoolError{Pool: poolID, Reason: "non-finite weight"}
		}
		if entry.Weight < 0 {
			return &InvalidRewardPoolError{Pool: poolID, Reason: "negative weight"}
		}
		total += entry.Weight
	}
	if total <= 0 {
		return &InvalidRewardPoolError{Pool: poolID, Reason: "zero total weight"}
	}

	draw := e.rng.Float64() * total
	selected := pool.Entries[len(pool.Entries)-1]
	acc := 0.0
	for _, entry := range pool.Entries {
		acc += entry.Weight
		if draw < acc {
			selected = entry
			break
		}
	}

	switch selected.Action.Type {
	case ActionAddResource:
		return e.wallet.Add(selected.Action.Resource, selected.Action.Amount)
	default:
		return &UnsupportedRuleError{TriggerID: poolID, Kind: "action", Type: selected.Action.Type}
	}
}
