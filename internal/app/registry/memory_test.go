package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"torwatch/internal/app/node"
)

func fp(c byte) node.Fingerprint {
	return node.Fingerprint(strings.Repeat(string(c), 40))
}

func TestEnsureUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.EnsureUser(ctx, 42)
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if !created {
		t.Fatalf("expected first EnsureUser to report created")
	}

	created, err = store.EnsureUser(ctx, 42)
	if err != nil {
		t.Fatalf("ensure user again: %v", err)
	}
	if created {
		t.Fatalf("expected second EnsureUser to report existing")
	}
}

func TestAddListRemove(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.EnsureUser(ctx, 42); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	// Insertion order B then A; List must sort ascending.
	if err := store.Add(ctx, 42, fp('B')); err != nil {
		t.Fatalf("add B: %v", err)
	}
	if err := store.Add(ctx, 42, fp('A')); err != nil {
		t.Fatalf("add A: %v", err)
	}

	list, err := store.List(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0] != fp('A') || list[1] != fp('B') {
		t.Fatalf("list mismatch: got=%v", list)
	}

	removed, err := store.Remove(ctx, 42, fp('B'))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal of present fingerprint")
	}

	list, err = store.List(ctx, 42)
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	if len(list) != 1 || list[0] != fp('A') {
		t.Fatalf("list after remove mismatch: got=%v", list)
	}
}

func TestAddDuplicate(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Add(ctx, 7, fp('A')); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := store.Add(ctx, 7, fp('A'))
	if !errors.Is(err, ErrAlreadyPresent) {
		t.Fatalf("expected ErrAlreadyPresent, got %v", err)
	}

	list, err := store.List(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("duplicate add changed the set: got=%v", list)
	}
}

func TestAddAutoRegistersUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Add(ctx, 99, fp('C')); err != nil {
		t.Fatalf("add for unseen user: %v", err)
	}

	list, err := store.List(ctx, 99)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != fp('C') {
		t.Fatalf("list mismatch: got=%v", list)
	}
}

func TestRemoveAbsentIsNotAnError(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	removed, err := store.Remove(ctx, 1, fp('A'))
	if err != nil {
		t.Fatalf("remove from unknown user: %v", err)
	}
	if removed {
		t.Fatalf("unexpected removal from unknown user")
	}

	if _, err := store.EnsureUser(ctx, 1); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	removed, err = store.Remove(ctx, 1, fp('A'))
	if err != nil {
		t.Fatalf("remove absent fingerprint: %v", err)
	}
	if removed {
		t.Fatalf("unexpected removal of absent fingerprint")
	}
}

func TestListUnknownUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	_, err := store.List(context.Background(), 1234)
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestListEmptyIsDistinctFromUnknown(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.EnsureUser(ctx, 5); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	list, err := store.List(ctx, 5)
	if err != nil {
		t.Fatalf("list registered empty user: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for c := byte('A'); c <= 'Z'; c++ {
		wg.Add(1)
		go func(c byte) {
			defer wg.Done()
			if err := store.Add(ctx, 7, fp(c)); err != nil {
				t.Errorf("add %c: %v", c, err)
			}
		}(c)
	}
	wg.Wait()

	list, err := store.List(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 26 {
		t.Fatalf("lost updates: got=%d want=26", len(list))
	}
}

func TestAllUsersWithNodes(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	// User 1 has nodes, user 2 is registered but empty.
	if err := store.Add(ctx, 1, fp('B')); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(ctx, 1, fp('A')); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.EnsureUser(ctx, 2); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	snapshot, err := store.AllUsersWithNodes(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("snapshot size mismatch: got=%d want=1", len(snapshot))
	}
	if snapshot[0].UserID != 1 {
		t.Fatalf("snapshot user mismatch: got=%d want=1", snapshot[0].UserID)
	}
	if len(snapshot[0].Fingerprints) != 2 || snapshot[0].Fingerprints[0] != fp('A') {
		t.Fatalf("snapshot fingerprints mismatch: got=%v", snapshot[0].Fingerprints)
	}
}
