/*
Package conversation tracks the short-lived two-message flows in which a user
is prompted for a fingerprint and replies with free text.

Each user has at most one pending action at a time. Selecting a second menu
action before answering the first overwrites it; there is no queueing.
*/
package conversation

import (
	"time"

	"github.com/puzpuzpuz/xsync"

	"torwatch/internal/app/node"
)

// Action identifies which follow-up input is expected from a user.
type Action int

const (
	// ActionNone means no follow-up input is expected.
	ActionNone Action = iota

	// ActionAdd means the next free-text message is a fingerprint to watch.
	ActionAdd

	// ActionRemove means the next free-text message is a fingerprint to drop.
	ActionRemove
)

// pendingEntry records what is awaited and since when.
type pendingEntry struct {
	action    Action
	createdAt time.Time
}

// Tracker holds the per-user pending action slots. Safe for concurrent use.
type Tracker struct {
	ttl     time.Duration
	now     func() time.Time
	pending *xsync.MapOf[string, pendingEntry]
}

// NewTracker creates a Tracker whose pending actions expire after ttl.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:     ttl,
		now:     time.Now,
		pending: xsync.NewMapOf[pendingEntry](),
	}
}

// Begin records that the next free-text message from the user answers the
// given action. Any previously pending action is overwritten.
func (t *Tracker) Begin(id node.UserID, action Action) {
	t.pending.Store(id.String(), pendingEntry{
		action:    action,
		createdAt: t.now(),
	})
}

// Consume atomically reads and clears the user's pending action. The bool is
// false when nothing was pending or the pending action had expired, in which
// case the caller should fall back to generic guidance.
func (t *Tracker) Consume(id node.UserID) (Action, bool) {
	entry, ok := t.pending.LoadAndDelete(id.String())
	if !ok {
		return ActionNone, false
	}

	if t.now().Sub(entry.createdAt) > t.ttl {
		// A stale prompt must not capture an unrelated later message.
		return ActionNone, false
	}

	return entry.action, true
}

// Cancel clears the user's pending action, if any.
func (t *Tracker) Cancel(id node.UserID) {
	t.pending.Delete(id.String())
}
