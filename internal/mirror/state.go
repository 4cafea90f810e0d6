package mirror

import (
	"context"
	"sync"
	"time"
)

// SyncState is the last known-good fingerprint of a file pair, recorded after
// every successful sync.
type SyncState struct {
	StructuredSum string
	ReadableSum   string
	SyncedAt      time.Time
}

// StateStore persists SyncState between invocations, keyed by file pair.
type StateStore interface {
	LoadState(ctx context.Context, key string) (SyncState, bool, error)
	SaveState(ctx context.Context, key string, st SyncState) error
}

// MemoryState is a process-local StateStore.
type MemoryState struct {
	mu     sync.Mutex
	states map[string]SyncState
}

// NewMemoryState returns an empty in-memory store.
func NewMemoryState() *MemoryState {
	return &MemoryState{states: make(map[string]SyncState)}
}

// LoadState implements StateStore.
func (m *MemoryState) LoadState(_ context.Context, key string) (SyncState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	return st, ok, nil
}

// SaveState implements StateStore.
func (m *MemoryState) SaveState(_ context.Context, key string, st SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
	return nil
}
