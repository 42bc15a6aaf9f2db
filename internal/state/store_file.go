package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileSnapshot struct {
	Balances   map[string]float64        `json:"balances"`
	Lifetime   map[string]float64        `json:"lifetime"`
	Generators map[string]GeneratorState `json:"generators"`
	LastSeen   *time.Time                `json:"last_seen,omitempty"`
}

func newFileSnapshot() fileSnapshot {
	return fileSnapshot{
		Balances:   map[string]float64{},
		Lifetime:   map[string]float64{},
		Generators: map[string]GeneratorState{},
	}
}

// FileStore persists the session snapshot as a single JSON file. Writes
// mutate the in-memory snapshot immediately; RequestSave debounces the
// actual disk write so a burst of balance mutations costs one write, and
// the write always serializes the current (final) snapshot.
type FileStore struct {
	mu    sync.Mutex
	path  string
	snap  fileSnapshot
	delay time.Duration
	timer *time.Timer
}

// NewFileStore loads (or initializes) the snapshot under dataDir.
func NewFileStore(dataDir string, saveDelay time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	s := &FileStore{
		path:  filepath.Join(dataDir, "session.json"),
		snap:  newFileSnapshot(),
		delay: saveDelay,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap fileSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	if snap.Balances == nil {
		snap.Balances = map[string]float64{}
	}
	if snap.Lifetime == nil {
		snap.Lifetime = map[string]float64{}
	}
	if snap.Generators == nil {
		snap.Generators = map[string]GeneratorState{}
	}
	s.snap = snap
	return nil
}

func (s *FileStore) saveLocked() error {
	b, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Balances() (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.snap.Balances))
	for k, v := range s.snap.Balances {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) WriteBalance(resourceID string, balance float64) error {
	s.mu.Lock()
	s.snap.Balances[resourceID] = balance
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Lifetime(resourceID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Lifetime[resourceID], nil
}

func (s *FileStore) AddLifetime(resourceID string, delta float64) error {
	s.mu.Lock()
	s.snap.Lifetime[resourceID] += delta
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Generators() ([]GeneratorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GeneratorState, 0, len(s.snap.Generators))
	for _, gs := range s.snap.Generators {
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) WriteGenerator(gs GeneratorState) error {
	s.mu.Lock()
	s.snap.Generators[gs.ID] = gs
	s.mu.Unlock()
	return nil
}

func (s *FileStore) LastSeen() (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.LastSeen == nil {
		return time.Time{}, false, nil
	}
	return *s.snap.LastSeen, true, nil
}

func (s *FileStore) TouchSeen(t time.Time) error {
	s.mu.Lock()
	s.snap.LastSeen = &t
	s.mu.Unlock()
	return nil
}

// RequestSave schedules a debounced write. A zero delay writes through
// immediately, which tests rely on.
func (s *FileStore) RequestSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delay <= 0 {
		_ = s.saveLocked()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		_ = s.saveLocked()
		s.mu.Unlock()
	})
}

// Close flushes any pending save.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.saveLocked()
}
