package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	require.NoError(t, s.WriteBalance("currencySoft", 123.5))
	require.NoError(t, s.AddLifetime("currencySoft", 200))
	require.NoError(t, s.WriteGenerator(GeneratorState{
		ID: "orchard.apple.1", Level: 7, Owned: true, AutomationPurchased: true, Enabled: true,
	}))
	seen := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchSeen(seen))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	defer reopened.Close()

	bals, err := reopened.Balances()
	require.NoError(t, err)
	assert.Equal(t, 123.5, bals["currencySoft"])

	life, err := reopened.Lifetime("currencySoft")
	require.NoError(t, err)
	assert.Equal(t, 200.0, life)

	gens, err := reopened.Generators()
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, 7, gens[0].Level)
	assert.True(t, gens[0].AutomationPurchased)

	got, ok, err := reopened.LastSeen()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(seen))
}

func TestFileStore_FreshStoreHasNoLastSeen(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.LastSeen()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_ZeroDelayWritesThrough(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteBalance("currencySoft", 9))
	s.RequestSave()

	b, err := os.ReadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)

	var snap struct {
		Balances map[string]float64 `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(b, &snap))
	assert.Equal(t, 9.0, snap.Balances["currencySoft"])
}

func TestFileStore_DebounceCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	path := filepath.Join(dir, "session.json")
	for i := 1; i <= 50; i++ {
		require.NoError(t, s.WriteBalance("currencySoft", float64(i)))
		s.RequestSave()
	}

	// Nothing should have hit disk yet; the timer keeps getting pushed.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	assert.Eventually(t, func() bool {
		b, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var snap struct {
			Balances map[string]float64 `json:"balances"`
		}
		if json.Unmarshal(b, &snap) != nil {
			return false
		}
		return snap.Balances["currencySoft"] == 50
	}, time.Second, 5*time.Millisecond, "debounced write serializes the final snapshot")
}

func TestFileStore_CloseFlushesPendingSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.WriteBalance("currencySoft", 3))
	s.RequestSave()
	require.NoError(t, s.Close())

	b, err := os.ReadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "currencySoft")
}

func TestFileStore_CorruptSnapshotFailsOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("{nope"), 0o644))

	_, err := NewFileStore(dir, 0)
	assert.Error(t, err)
}

func TestMemoryStore_GeneratorsSortedByID(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.WriteGenerator(GeneratorState{ID: "b"}))
	require.NoError(t, s.WriteGenerator(GeneratorState{ID: "a"}))
	require.NoError(t, s.WriteGenerator(GeneratorState{ID: "c"}))

	gens, err := s.Generators()
	require.NoError(t, err)
	require.Len(t, gens, 3)
	assert.Equal(t, "a", gens[0].ID)
	assert.Equal(t, "c", gens[2].ID)
}

func TestMemoryStore_LifetimeAccumulates(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.AddLifetime("currencySoft", 10))
	require.NoError(t, s.AddLifetime("currencySoft", 5))

	life, err := s.Lifetime("currencySoft")
	require.NoError(t, err)
	assert.Equal(t, 15.0, life)
}
