/*
Package registry implements the per-user watch registry: which relay
fingerprints each user wants monitored.

The Store interface is the seam between the command/watchdog logic and the
storage engine. Two implementations exist: PostgresStore for production and
MemoryStore for development and tests.
*/
package registry

import (
	"context"
	"errors"

	"torwatch/internal/app/node"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrAlreadyPresent reports an Add of a fingerprint already in the user's set.
	ErrAlreadyPresent = errors.New("fingerprint already present")

	// ErrUnknownUser reports a read of a user ID that was never registered.
	ErrUnknownUser = errors.New("unknown user")
)

// UserNodes pairs a user with their watched fingerprints, as consumed by the
// watchdog scheduler once per poll cycle.
type UserNodes struct {
	UserID       node.UserID
	Fingerprints []node.Fingerprint
}

// Store is the persistence contract for the watch registry.
//
// Mutations for the same user must not lose updates under concurrency;
// mutations for different users must not serialize against each other.
type Store interface {
	// EnsureUser registers id if unseen. The returned bool reports whether
	// the user was newly created.
	EnsureUser(ctx context.Context, id node.UserID) (bool, error)

	// Add inserts fp into the user's set, registering the user first if
	// needed. Returns ErrAlreadyPresent when fp is already watched.
	Add(ctx context.Context, id node.UserID, fp node.Fingerprint) error

	// Remove deletes fp from the user's set. Absence of the fingerprint or
	// the user is not an error; the bool reports whether a row was removed.
	Remove(ctx context.Context, id node.UserID, fp node.Fingerprint) (bool, error)

	// List returns the user's fingerprints sorted ascending, or
	// ErrUnknownUser when id was never registered. An empty slice is a
	// valid result for a registered user with no nodes.
	List(ctx context.Context, id node.UserID) ([]node.Fingerprint, error)

	// AllUsersWithNodes returns a fresh snapshot of every user holding a
	// non-empty set, with fingerprints sorted ascending.
	AllUsersWithNodes(ctx context.Context) ([]UserNodes, error)
}
