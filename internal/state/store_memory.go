package state

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store, used by tests and as the embedded
// state of the file store.
type MemoryStore struct {
	mu         sync.RWMutex
	balances   map[string]float64
	lifetime   map[string]float64
	generators map[string]GeneratorState
	lastSeen   time.Time
	seenSet    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:   map[string]float64{},
		lifetime:   map[string]float64{},
		generators: map[string]GeneratorState{},
	}
}

func (s *MemoryStore) Balances() (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) WriteBalance(resourceID string, balance float64) error {
	s.mu.Lock()
	s.balances[resourceID] = balance
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Lifetime(resourceID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifetime[resourceID], nil
}

func (s *MemoryStore) AddLifetime(resourceID string, delta float64) error {
	s.mu.Lock()
	s.lifetime[resourceID] += delta
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Generators() ([]GeneratorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GeneratorState, 0, len(s.generators))
	for _, gs := range s.generators {
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) WriteGenerator(gs GeneratorState) error {
	s.mu.Lock()
	s.generators[gs.ID] = gs
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LastSeen() (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen, s.seenSet, nil
}

func (s *MemoryStore) TouchSeen(t time.Time) error {
	s.mu.Lock()
	s.lastSeen = t
	s.seenSet = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RequestSave() {}

func (s *MemoryStore) Close() error { return nil }
