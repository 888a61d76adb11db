// Package scheduler keeps the stored events consistent with wall-clock time:
// it closes started games, opens games whose signup window arrived and
// creates the games of the coming weeks.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/pickup-games/internal/metrics"
	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/recurrence"
)

// DefaultLookaheadWeeks is used when Config.LookaheadWeeks is not positive.
const DefaultLookaheadWeeks = 4

// EventStore is the subset of the event repository a pass writes through.
type EventStore interface {
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error)
	CreateEvent(ctx context.Context, event persistence.Event) error
	SetEventActive(ctx context.Context, id string, active bool) error
}

// Config lists the collaborators of a Reconciler.
type Config struct {
	Store          EventStore
	Calendar       *recurrence.Calendar
	LookaheadWeeks int
	IDGenerator    func() string
	Now            func() time.Time
	Metrics        metrics.Recorder
	Logger         *slog.Logger
}

// Report summarizes one pass. Upcoming and Active count events that start
// after the pass began, as read back from the store.
type Report struct {
	Closed   int
	Opened   int
	Created  int
	Failures int
	Upcoming int
	Active   int
	NextGame time.Time
	Duration time.Duration
}

// Reconciler runs reconciliation passes. Passes of one Reconciler never
// overlap.
type Reconciler struct {
	store       EventStore
	calendar    *recurrence.Calendar
	lookahead   int
	idGenerator func() string
	now         func() time.Time
	metrics     metrics.Recorder
	logger      *slog.Logger

	mu sync.Mutex
}

// NewReconciler constructs a Reconciler.
func NewReconciler(cfg Config) *Reconciler {
	if cfg.LookaheadWeeks <= 0 {
		cfg.LookaheadWeeks = DefaultLookaheadWeeks
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reconciler{
		store:       cfg.Store,
		calendar:    cfg.Calendar,
		lookahead:   cfg.LookaheadWeeks,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		metrics:     metrics.OrNop(cfg.Metrics),
		logger:      cfg.Logger.With("component", "scheduler"),
	}
}

// Run executes one pass: close, open, create. Every write targets a single
// event, so a failed write is logged, counted and retried by the next pass.
// Running a second pass at the same instant changes nothing.
func (r *Reconciler) Run(ctx context.Context) (report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	now := r.now()
	logger := r.logger.With("pass_time", now)

	defer func() {
		report.Duration = time.Since(started)
		r.metrics.ObservePass(metrics.Pass{
			Closed:   report.Closed,
			Opened:   report.Opened,
			Created:  report.Created,
			Failures: report.Failures,
			Upcoming: report.Upcoming,
			Active:   report.Active,
			Duration: report.Duration,
		})
		logger.InfoContext(ctx, "reconciliation pass finished",
			"closed", report.Closed,
			"opened", report.Opened,
			"created", report.Created,
			"failures", report.Failures,
			"upcoming", report.Upcoming,
			"active", report.Active,
			"next_game", report.NextGame,
		)
		if report.Upcoming < r.lookahead {
			logger.WarnContext(ctx, "fewer upcoming events than the look-ahead window",
				"upcoming", report.Upcoming,
				"lookahead_weeks", r.lookahead,
			)
		}
	}()

	report.NextGame = r.calendar.NextOccurrence(now)

	r.closeStarted(ctx, logger, now, &report)
	if ctx.Err() != nil {
		return
	}
	r.openDue(ctx, logger, now, &report)
	if ctx.Err() != nil {
		return
	}
	r.createMissing(ctx, logger, now, &report)
	if ctx.Err() != nil {
		return
	}
	r.countFuture(ctx, logger, now, &report)
	return
}

// closeStarted deactivates every active event whose start is not after now.
func (r *Reconciler) closeStarted(ctx context.Context, logger *slog.Logger, now time.Time, report *Report) {
	active, err := r.store.ListEvents(ctx, persistence.EventFilter{Active: persistence.BoolPtr(true)})
	if err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "list active events failed", "step", "close", "error", err)
		return
	}
	for _, event := range active {
		if event.StartTime.After(now) {
			continue
		}
		if err := r.store.SetEventActive(ctx, event.ID, false); err != nil {
			report.Failures++
			logger.ErrorContext(ctx, "close event failed", "event_id", event.ID, "error", err)
			continue
		}
		report.Closed++
		logger.InfoContext(ctx, "event closed", "event_id", event.ID, "start_time", event.StartTime)
	}
}

// openDue activates inactive future events whose signup window has started.
func (r *Reconciler) openDue(ctx context.Context, logger *slog.Logger, now time.Time, report *Report) {
	pending, err := r.store.ListEvents(ctx, persistence.EventFilter{
		Active:      persistence.BoolPtr(false),
		StartsAfter: persistence.TimePtr(now),
	})
	if err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "list pending events failed", "step", "open", "error", err)
		return
	}
	for _, event := range pending {
		r.openIfDue(ctx, logger, now, event, report)
	}
}

// openIfDue checks the start explicitly; the stored flag alone never implies
// the event is still in the future.
func (r *Reconciler) openIfDue(ctx context.Context, logger *slog.Logger, now time.Time, event persistence.Event, report *Report) {
	if !r.calendar.IsSignupWindowOpen(now, event.StartTime) {
		return
	}
	if err := r.store.SetEventActive(ctx, event.ID, true); err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "open event failed", "event_id", event.ID, "error", err)
		return
	}
	report.Opened++
	logger.InfoContext(ctx, "event opened", "event_id", event.ID, "start_time", event.StartTime)
}

// createMissing inserts one inactive event per upcoming game date without a
// stored event. A date taken by a concurrent writer counts as existing.
func (r *Reconciler) createMissing(ctx context.Context, logger *slog.Logger, now time.Time, report *Report) {
	occurrences := r.calendar.Upcoming(now, r.lookahead)
	if len(occurrences) == 0 {
		return
	}

	// Any event on the first occurrence's date blocks it, even one that
	// already started today.
	first := occurrences[0].In(r.calendar.Location())
	y, m, d := first.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, r.calendar.Location())

	existing, err := r.store.ListEvents(ctx, persistence.EventFilter{
		StartsAfter: persistence.TimePtr(dayStart.Add(-time.Nanosecond)),
	})
	if err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "list existing events failed", "step", "create", "error", err)
		return
	}
	taken := make(map[string]struct{}, len(existing))
	for _, event := range existing {
		taken[r.calendar.DateKey(event.StartTime)] = struct{}{}
	}

	for _, occurrence := range occurrences {
		date := r.calendar.DateKey(occurrence)
		if _, ok := taken[date]; ok {
			continue
		}
		event := persistence.Event{
			ID:        r.idGenerator(),
			StartTime: occurrence,
			Active:    false,
			CreatedAt: now,
		}
		if err := r.store.CreateEvent(ctx, event); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				logger.DebugContext(ctx, "event already exists", "game_date", date)
				taken[date] = struct{}{}
				continue
			}
			report.Failures++
			logger.ErrorContext(ctx, "create event failed", "game_date", date, "error", err)
			continue
		}
		taken[date] = struct{}{}
		report.Created++
		logger.InfoContext(ctx, "event created", "event_id", event.ID, "start_time", event.StartTime)

		r.openIfDue(ctx, logger, now, event, report)
	}
}

// countFuture reads back the events that start after now.
func (r *Reconciler) countFuture(ctx context.Context, logger *slog.Logger, now time.Time, report *Report) {
	future, err := r.store.ListEvents(ctx, persistence.EventFilter{StartsAfter: persistence.TimePtr(now)})
	if err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "count upcoming events failed", "error", err)
		return
	}
	report.Upcoming = len(future)
	for _, event := range future {
		if event.Active {
			report.Active++
		}
	}
}
