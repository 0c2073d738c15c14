package registry

import (
	"context"
	"sort"
	"sync"

	"torwatch/internal/app/node"
)

// MemoryStore keeps the watch registry in process memory. It backs the
// STORAGE=memory development mode and the test suites. A single RWMutex
// serializes mutations; per-user granularity is not worth the complexity at
// this scale since the critical sections never block on I/O.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[node.UserID]map[node.Fingerprint]struct{}
}

// NewMemoryStore returns an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[node.UserID]map[node.Fingerprint]struct{}),
	}
}

// EnsureUser registers the user if unseen.
func (s *MemoryStore) EnsureUser(ctx context.Context, id node.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; ok {
		return false, nil
	}
	s.users[id] = make(map[node.Fingerprint]struct{})
	return true, nil
}

// Add inserts the fingerprint into the user's watch set.
func (s *MemoryStore) Add(ctx context.Context, id node.UserID, fp node.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[id]
	if !ok {
		set = make(map[node.Fingerprint]struct{})
		s.users[id] = set
	}

	if _, present := set[fp]; present {
		return ErrAlreadyPresent
	}
	set[fp] = struct{}{}
	return nil
}

// Remove deletes the fingerprint from the user's watch set.
func (s *MemoryStore) Remove(ctx context.Context, id node.UserID, fp node.Fingerprint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[id]
	if !ok {
		return false, nil
	}

	if _, present := set[fp]; !present {
		return false, nil
	}
	delete(set, fp)
	return true, nil
}

// List returns the user's fingerprints sorted ascending.
func (s *MemoryStore) List(ctx context.Context, id node.UserID) ([]node.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}

	return sortedFingerprints(set), nil
}

// AllUsersWithNodes returns a snapshot of every user with a non-empty set.
func (s *MemoryStore) AllUsersWithNodes(ctx context.Context) ([]UserNodes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot []UserNodes
	for id, set := range s.users {
		if len(set) == 0 {
			continue
		}
		snapshot = append(snapshot, UserNodes{
			UserID:       id,
			Fingerprints: sortedFingerprints(set),
		})
	}

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].UserID < snapshot[j].UserID
	})

	return snapshot, nil
}

func sortedFingerprints(set map[node.Fingerprint]struct{}) []node.Fingerprint {
	out := make([]node.Fingerprint, 0, len(set))
	for fp := range set {
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
