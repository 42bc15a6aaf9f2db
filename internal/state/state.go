package state

import "time"

// GeneratorState is the mutable runtime state behind one node instance.
// One per node-instance id, created at first run or restored from the
// persisted snapshot, never duplicated. Automated is distinct from
// AutomationPurchased: the former can be toggled by content, the latter is
// a player purchase.
type GeneratorState struct {
	ID                  string `json:"id"`
	Level               int    `json:"level"`
	Owned               bool   `json:"owned"`
	Automated           bool   `json:"automated"`
	AutomationPurchased bool   `json:"automation_purchased"`
	Enabled             bool   `json:"enabled"`
}

// Store is the persistence collaborator. The core never opens files or
// databases itself; it calls through this interface and the store decides
// its own save cadence. RequestSave may be debounced, but after any burst
// of writes the store must end up persisting the final values.
type Store interface {
	Balances() (map[string]float64, error)
	WriteBalance(resourceID string, balance float64) error

	Lifetime(resourceID string) (float64, error)
	AddLifetime(resourceID string, delta float64) error

	Generators() ([]GeneratorState, error)
	WriteGenerator(gs GeneratorState) error

	// LastSeen is the offline-duration source: the wall-clock instant the
	// previous session last checkpointed. ok is false on first run.
	LastSeen() (t time.Time, ok bool, err error)
	TouchSeen(t time.Time) error

	RequestSave()
	Close() error
}
