package store

import (
	"context"
	"sort"
	"sync"

	"github.com/flowmesh/flowmesh/core"
)

// InMemoryStore is a volatile core.Store implementation keeping snapshots in
// a process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo setups. Snapshots are cloned on both save and load
// to prevent external mutation of internal state.
type InMemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*core.GraphSnapshot
}

// NewInMemoryStore constructs an empty in-memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snaps: make(map[string]*core.GraphSnapshot)}
}

// Save stores a clone of the snapshot, overwriting any record with the same
// session ID. The previous record is not preserved.
func (s *InMemoryStore) Save(ctx context.Context, snap *core.GraphSnapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.snaps[snap.SessionID]
	s.snaps[snap.SessionID] = snap.Clone()

	return replaced, nil
}

// Load returns a clone of the latest snapshot saved under sessionID.
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (*core.GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[sessionID]
	if !ok {
		return nil, &core.NotFoundError{Kind: "session", Name: sessionID}
	}

	return snap.Clone(), nil
}

// List returns the stored session IDs in sorted order.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
