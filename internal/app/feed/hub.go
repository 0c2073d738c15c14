/*
Package feed broadcasts watchdog poll results to in-process subscribers.

The operator WebSocket endpoint subscribes here to stream live events; the
hub keeps no history, matching the system's no-historical-persistence rule.
*/
package feed

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"torwatch/internal/pkg/logx"
)

// Outcome values carried by events.
const (
	OutcomeRunning      = "running"
	OutcomeOffline      = "offline"
	OutcomeNotFound     = "not_found"
	OutcomeLookupFailed = "lookup_failed"
)

// Event is one poll result for one fingerprint.
type Event struct {
	// CycleID correlates all events of one watchdog cycle.
	CycleID string `json:"cycleId"`

	// UserID is the owner of the watched fingerprint.
	UserID int64 `json:"userId"`

	// Fingerprint identifies the polled relay.
	Fingerprint string `json:"fingerprint"`

	// Outcome is one of the Outcome* constants.
	Outcome string `json:"outcome"`

	// Detail carries the error text for failed lookups.
	Detail string `json:"detail,omitempty"`

	// At is when the poll result was observed.
	At time.Time `json:"at"`
}

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing events rather than stalling the
// watchdog.
const subscriberBuffer = 64

// Hub fans events out to all current subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
	logger      zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		logger:      logx.Logger().With().Str("component", "FeedHub").Logger(),
	}
}

// Subscribe registers a new subscriber and returns its event channel plus an
// unsubscribe function. The channel is closed on unsubscribe or hub shutdown.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug().Int("subscribers", count).Msg("Subscriber registered.")

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Slow
// subscribers drop events.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Warn().
				Str("fingerprint", event.Fingerprint).
				Msg("Subscriber buffer full; event dropped.")
		}
	}
}

// Shutdown closes all subscriber channels and rejects further publishes.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil

	h.logger.Info().Msg("Feed hub shutdown complete.")
}
