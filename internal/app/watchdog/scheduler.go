/*
Package watchdog implements the background poller that re-checks every
registered fingerprint against the directory service on a fixed interval.

The loop is the availability-critical piece of the system: it must survive
any single lookup failure, any storage hiccup, and even a panic in one poll
without the watchdog thread dying. Failures are contained per fingerprint
and per cycle, logged, and the loop carries on.
*/
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"torwatch/internal/app/directory"
	"torwatch/internal/app/feed"
	"torwatch/internal/app/node"
	"torwatch/internal/app/registry"
	"torwatch/internal/configs"
	"torwatch/internal/pkg/logx"
)

// Lookuper is the directory lookup seam, satisfied by *directory.Client.
type Lookuper interface {
	Lookup(ctx context.Context, fp node.Fingerprint) (*directory.RelayInfo, error)
}

// Notifier pushes an unsolicited message to a user, satisfied by the
// Telegram transport.
type Notifier interface {
	Notify(ctx context.Context, id node.UserID, text string) error
}

// Config carries the scheduler's tunables.
type Config struct {
	// Interval is the sleep between poll cycles.
	Interval time.Duration

	// Mode is configs.ReportModeAlert or configs.ReportModeAlways.
	Mode string

	// Concurrency bounds the per-cycle worker pool.
	Concurrency int

	// LookupRate caps directory lookups per second across the whole cycle.
	LookupRate float64
}

// Scheduler runs the poll loop over all registered users and fingerprints.
type Scheduler struct {
	store    registry.Store
	dir      Lookuper
	notifier Notifier
	hub      *feed.Hub
	cfg      Config
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewScheduler wires the scheduler's collaborators. hub may be nil when no
// event feed is wanted.
func NewScheduler(store registry.Store, dir Lookuper, notifier Notifier, hub *feed.Hub, cfg Config) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.LookupRate <= 0 {
		cfg.LookupRate = 1
	}

	return &Scheduler{
		store:    store,
		dir:      dir,
		notifier: notifier,
		hub:      hub,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.LookupRate), cfg.Concurrency),
		logger:   logx.Logger().With().Str("component", "Watchdog").Logger(),
	}
}

// Run executes poll cycles until ctx is cancelled. It blocks and is meant to
// be started in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Str("mode", s.cfg.Mode).
		Int("concurrency", s.cfg.Concurrency).
		Msg("Watchdog started.")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Watchdog stopped.")
			return
		case <-timer.C:
		}

		s.runCycleGuarded(ctx)

		timer.Reset(s.cfg.Interval)
	}
}

// runCycleGuarded contains any panic escaping a cycle so the loop survives.
func (s *Scheduler) runCycleGuarded(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Msg("Poll cycle panicked; watchdog continues with next cycle.")
		}
	}()

	s.RunCycle(ctx)
}

// RunCycle performs one full pass over all users with watched nodes.
// Exported so tests and operator tooling can trigger a cycle directly.
func (s *Scheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	logger := s.logger.With().Str("cycle_id", cycleID).Logger()

	started := time.Now()

	snapshot, err := s.store.AllUsersWithNodes(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to snapshot registry; skipping cycle.")
		return
	}

	total := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, entry := range snapshot {
		for _, fp := range entry.Fingerprints {
			total++
			userID, fingerprint := entry.UserID, fp
			g.Go(func() error {
				s.pollOne(gctx, logger, cycleID, userID, fingerprint)
				// Errors stay inside pollOne: one bad fingerprint must
				// not cancel the rest of the cycle.
				return nil
			})
		}
	}

	// Workers never return errors.
	_ = g.Wait()

	logger.Info().
		Int("users", len(snapshot)).
		Int("fingerprints", total).
		Dur("elapsed", time.Since(started)).
		Msg("Poll cycle complete.")
}

// pollOne looks up a single fingerprint and notifies its owner per the
// configured report mode. All failure handling is local to this call.
func (s *Scheduler) pollOne(ctx context.Context, logger zerolog.Logger, cycleID string, userID node.UserID, fp node.Fingerprint) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("fingerprint", string(fp)).
				Msg("Poll of one fingerprint panicked; cycle continues.")
		}
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	info, err := s.dir.Lookup(ctx, fp)
	now := time.Now()

	var message, outcome, detail string
	switch {
	case errors.Is(err, directory.ErrNotFound):
		outcome = feed.OutcomeNotFound
		message = fmt.Sprintf("No relay found for fingerprint %s. It may have left the network.", fp)
	case err != nil:
		outcome = feed.OutcomeLookupFailed
		detail = err.Error()
		logger.Warn().Err(err).Str("fingerprint", string(fp)).Msg("Directory lookup failed.")
		message = fmt.Sprintf("Could not check node %s: directory service unavailable.", fp)
	case info.Running:
		outcome = feed.OutcomeRunning
		if s.cfg.Mode == configs.ReportModeAlways {
			message = directory.FormatStatusReport(fp, info, now)
		}
	default:
		outcome = feed.OutcomeOffline
		message = directory.FormatStatusReport(fp, info, now)
	}

	if s.hub != nil {
		s.hub.Publish(feed.Event{
			CycleID:     cycleID,
			UserID:      int64(userID),
			Fingerprint: string(fp),
			Outcome:     outcome,
			Detail:      detail,
			At:          now,
		})
	}

	if message == "" {
		return
	}

	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		logger.Warn().
			Err(err).
			Int64("user_id", int64(userID)).
			Str("fingerprint", string(fp)).
			Msg("Failed to deliver notification.")
	}
}
