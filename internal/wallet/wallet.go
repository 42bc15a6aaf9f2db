package wallet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"idleforge/internal/content"
	"idleforge/internal/event"
	"idleforge/internal/state"
)

// epsilon is the float-noise floor: gain/spend magnitudes below it are
// treated as zero so repeated tiny mutations cannot drift a balance.
const epsilon = 1e-9

// ErrInvalidAmount marks a non-finite or unparsable numeric input. It is a
// call-site bug or corrupt content, never silently coerced.
var ErrInvalidAmount = errors.New("invalid amount")

// UnknownResourceError reports a balance access for a resource the wallet
// was never initialized with. A programming or content-mismatch bug; never
// defaulted to zero.
type UnknownResourceError struct {
	Resource string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource %q", e.Resource)
}

// DuplicateResourceError reports a duplicate id in the resource list
// handed to Initialize.
type DuplicateResourceError struct {
	Resource string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource %q", e.Resource)
}

// GainMultiplier supplies the gain-side multiplier for a resource,
// typically backed by the modifier resolver. Non-finite or non-positive
// results are treated as neutral.
type GainMultiplier func(resourceID string) float64

// Listener observes balance mutations. Notification is synchronous.
type Listener func(event.BalanceChanged)

// Options configures a Wallet.
type Options struct {
	// Store receives a write-back for every mutation. Required.
	Store state.Store
	// Bus, when set, gets a BalanceChanged publish per mutation.
	Bus *event.Bus
	// Gain scales positive amounts on the Add path.
	Gain GainMultiplier
}

// Wallet is the authoritative resource ledger: one balance per declared
// resource, atomic multi-item spend, and lifetime-earnings bookkeeping for
// soft currencies. All mutation goes through Add/AddRaw/TrySpend; the
// single mutex is the mutual-exclusion boundary for concurrent callers.
type Wallet struct {
	mu        sync.Mutex
	store     state.Store
	bus       *event.Bus
	gain      GainMultiplier
	balances  map[string]float64
	kinds     map[string]string
	listeners []Listener
}

func New(opts Options) *Wallet {
	return &Wallet{
		store:    opts.Store,
		bus:      opts.Bus,
		gain:     opts.Gain,
		balances: map[string]float64{},
		kinds:    map[string]string{},
	}
}

// Initialize creates one zero balance per declared resource, then restores
// any persisted balances from the store. A duplicate resource id fails.
func (w *Wallet) Initialize(resources []content.Resource) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range resources {
		if _, dup := w.balances[r.ID]; dup {
			return &DuplicateResourceError{Resource: r.ID}
		}
		w.balances[r.ID] = 0
		w.kinds[r.ID] = r.Kind
	}

	persisted, err := w.store.Balances()
	if err != nil {
		return fmt.Errorf("restore balances: %w", err)
	}
	for id, bal := range persisted {
		if _, known := w.balances[id]; known {
			w.balances[id] = bal
		}
	}
	return nil
}

// AddListener registers a synchronous balance-change observer.
func (w *Wallet) AddListener(l Listener) {
	if l == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, l)
	w.mu.Unlock()
}

// Balance returns the current balance for a resource.
func (w *Wallet) Balance(resourceID string) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	bal, ok := w.balances[resourceID]
	if !ok {
		return 0, &UnknownResourceError{Resource: resourceID}
	}
	return bal, nil
}

// Balances returns a copy of every balance.
func (w *Wallet) Balances() map[string]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]float64, len(w.balances))
	for k, v := range w.balances {
		out[k] = v
	}
	return out
}

// LifetimeEarned reports the persisted lifetime earnings for a resource.
func (w *Wallet) LifetimeEarned(resourceID string) (float64, error) {
	w.mu.Lock()
	if _, ok := w.balances[resourceID]; !ok {
		w.mu.Unlock()
		return 0, &UnknownResourceError{Resource: resourceID}
	}
	w.mu.Unlock()
	return w.store.Lifetime(resourceID)
}

// Add applies a gain or loss through the gain path: positive amounts are
// scaled by the gain multiplier before landing.
func (w *Wallet) Add(resourceID string, amount float64) error {
	return w.add(resourceID, amount, true)
}

// AddRaw applies an amount without the gain multiplier. Used by callers
// that already folded the multiplier in, e.g. the offline simulator.
func (w *Wallet) AddRaw(resourceID string, amount float64) error {
	return w.add(resourceID, amount, false)
}

func (w *Wallet) add(resourceID string, amount float64, applyGain bool) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: add %v to %s", ErrInvalidAmount, amount, resourceID)
	}
	if math.Abs(amount) < epsilon {
		return nil
	}

	w.mu.Lock()
	bal, ok := w.balances[resourceID]
	if !ok {
		w.mu.Unlock()
		return &UnknownResourceError{Resource: resourceID}
	}

	if applyGain && amount > 0 && w.gain != nil {
		amount *= sanitizeMultiplier(w.gain(resourceID))
	}

	next := bal + amount
	w.balances[resourceID] = next
	if amount > 0 && w.kinds[resourceID] == content.KindSoftCurrency {
		_ = w.store.AddLifetime(resourceID, amount)
	}
	w.persist(resourceID, next)
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	w.notify(listeners, event.BalanceChanged{Resource: resourceID, Balance: next, Delta: amount})
	return nil
}

// TrySpend deducts a multi-resource cost atomically. Phase one parses
// every item and aggregates the required amount per resource, so a cost
// naming the same resource twice is verified against the cumulative total,
// never item by item. Only if every aggregate is affordable does phase two
// deduct. Returns false with no mutation when the cost is unaffordable.
// Unparsable or negative amounts are errors, not a false result.
func (w *Wallet) TrySpend(items []content.CostItem) (bool, error) {
	w.mu.Lock()

	need := make(map[string]float64, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		amt, err := strconv.ParseFloat(strings.TrimSpace(it.Amount), 64)
		if err != nil || math.IsNaN(amt) || math.IsInf(amt, 0) || amt < 0 {
			w.mu.Unlock()
			return false, fmt.Errorf("%w: cost %q for %s", ErrInvalidAmount, it.Amount, it.Resource)
		}
		if _, ok := w.balances[it.Resource]; !ok {
			w.mu.Unlock()
			return false, &UnknownResourceError{Resource: it.Resource}
		}
		if _, seen := need[it.Resource]; !seen {
			order = append(order, it.Resource)
		}
		need[it.Resource] += amt
	}

	for _, resource := range order {
		if need[resource] > w.balances[resource]+epsilon {
			w.mu.Unlock()
			return false, nil
		}
	}

	changes := make([]event.BalanceChanged, 0, len(order))
	for _, resource := range order {
		amt := need[resource]
		if amt < epsilon {
			continue
		}
		next := w.balances[resource] - amt
		w.balances[resource] = next
		w.persist(resource, next)
		changes = append(changes, event.BalanceChanged{Resource: resource, Balance: next, Delta: -amt})
	}
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	for _, ch := range changes {
		w.notify(listeners, ch)
	}
	return true, nil
}

// persist writes a balance back to the store. Callers hold the mutex so
// write-backs reach the store in application order and the store ends a
// burst of mutations holding the final value.
func (w *Wallet) persist(resourceID string, balance float64) {
	_ = w.store.WriteBalance(resourceID, balance)
	w.store.RequestSave()
}

func (w *Wallet) notify(listeners []Listener, ch event.BalanceChanged) {
	for _, l := range listeners {
		l(ch)
	}
	if w.bus != nil {
		w.bus.Publish(event.TypeBalanceChanged, ch)
	}
}

// sanitizeMultiplier collapses corrupt multipliers to neutral so a bad
// modifier can never zero out or invert a gain.
func sanitizeMultiplier(m float64) float64 {
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return 1
	}
	return m
}
