package event

import "sync"

// Type names a domain event.
type Type string

const (
	// TypeIncrementBalance asks the ledger to apply a gain.
	TypeIncrementBalance Type = "increment_balance"
	// TypeMilestoneFired announces a milestone reached exactly once per
	// node instance and threshold. Emission is owned by the scheduler;
	// this core only consumes it.
	TypeMilestoneFired Type = "milestone_fired"
	// TypeBalanceChanged announces a ledger balance mutation.
	TypeBalanceChanged Type = "balance_changed"
)

// IncrementBalance is the inbound gain event applied via the ledger's gain
// path.
type IncrementBalance struct {
	Resource string  `json:"resource"`
	Amount   float64 `json:"amount"`
}

// MilestoneFired carries the identity of a fired milestone.
type MilestoneFired struct {
	MilestoneID string `json:"milestone_id"`
	NodeID      string `json:"node_id"`
	ZoneID      string `json:"zone_id"`
	AtLevel     int    `json:"at_level"`
}

// BalanceChanged is published after every balance mutation.
type BalanceChanged struct {
	Resource string  `json:"resource"`
	Balance  float64 `json:"balance"`
	Delta    float64 `json:"delta"`
}

// Handler receives a published event payload.
type Handler func(payload any)

// Bus is an explicitly constructed synchronous event bus. Publish does not
// return until every subscriber has observed the event, so rule execution
// for a milestone completes before the publishing call site continues.
// Whoever composes the session owns the bus lifecycle.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[Type][]Handler{}}
}

// Subscribe registers a handler for an event type. Handlers run in
// subscription order.
func (b *Bus) Subscribe(t Type, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], h)
	b.mu.Unlock()
}

// Publish delivers payload to every subscriber of t, synchronously.
func (b *Bus) Publish(t Type, payload any) {
	b.mu.RLock()
	hs := b.handlers[t]
	b.mu.RUnlock()
	for _, h := range hs {
		h(payload)
	}
}
