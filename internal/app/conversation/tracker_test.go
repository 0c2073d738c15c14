package conversation

import (
	"testing"
	"time"
)

func TestConsumeWithoutBegin(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(5 * time.Minute)

	if _, ok := tracker.Consume(42); ok {
		t.Fatalf("expected no pending action")
	}
}

func TestBeginConsumeOnce(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(5 * time.Minute)
	tracker.Begin(42, ActionAdd)

	action, ok := tracker.Consume(42)
	if !ok {
		t.Fatalf("expected pending action")
	}
	if action != ActionAdd {
		t.Fatalf("action mismatch: got=%v want=%v", action, ActionAdd)
	}

	// Exactly one consume clears the slot.
	if _, ok := tracker.Consume(42); ok {
		t.Fatalf("expected second consume to find nothing")
	}
}

func TestBeginOverwrites(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(5 * time.Minute)
	tracker.Begin(42, ActionAdd)
	tracker.Begin(42, ActionRemove)

	action, ok := tracker.Consume(42)
	if !ok {
		t.Fatalf("expected pending action")
	}
	if action != ActionRemove {
		t.Fatalf("last begin must win: got=%v want=%v", action, ActionRemove)
	}
}

func TestPendingActionsAreScopedPerUser(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(5 * time.Minute)
	tracker.Begin(1, ActionAdd)

	if _, ok := tracker.Consume(2); ok {
		t.Fatalf("user 2 must not see user 1's pending action")
	}

	if _, ok := tracker.Consume(1); !ok {
		t.Fatalf("user 1's pending action lost")
	}
}

func TestExpiredActionIsNotConsumed(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(time.Minute)

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.Begin(42, ActionAdd)

	current = current.Add(2 * time.Minute)
	if _, ok := tracker.Consume(42); ok {
		t.Fatalf("expired action must not capture a later message")
	}

	// The expired slot is gone for good.
	if _, ok := tracker.Consume(42); ok {
		t.Fatalf("expected nothing pending after expiry")
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(5 * time.Minute)
	tracker.Begin(42, ActionRemove)
	tracker.Cancel(42)

	if _, ok := tracker.Consume(42); ok {
		t.Fatalf("expected nothing pending after cancel")
	}
}
