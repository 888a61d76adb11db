package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/example/pickup-games/internal/metrics"
	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/recurrence"
	"github.com/example/pickup-games/internal/teams"
)

// SignupLister lists the signups of an event in signup order.
type SignupLister interface {
	ListSignups(ctx context.Context, eventID string) ([]persistence.Signup, error)
}

// DrawServiceConfig lists the collaborators of a DrawService. Rand may be nil
// to use the package-level source.
type DrawServiceConfig struct {
	Events   EventReader
	Signups  SignupLister
	Teams    persistence.TeamRepository
	Calendar *recurrence.Calendar
	Table    teams.Table
	Rand     *rand.Rand
	Now      func() time.Time
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// DrawService assigns the participants of an event to teams.
type DrawService struct {
	events   EventReader
	signups  SignupLister
	teams    persistence.TeamRepository
	calendar *recurrence.Calendar
	table    teams.Table
	now      func() time.Time
	metrics  metrics.Recorder
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDrawService constructs a DrawService.
func NewDrawService(cfg DrawServiceConfig) *DrawService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &DrawService{
		events:   cfg.Events,
		signups:  cfg.Signups,
		teams:    cfg.Teams,
		calendar: cfg.Calendar,
		table:    cfg.Table,
		rng:      cfg.Rand,
		now:      cfg.Now,
		metrics:  metrics.OrNop(cfg.Metrics),
		logger:   defaultLogger(cfg.Logger),
	}
}

func (s *DrawService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DrawService", operation, attrs...)
}

func (s *DrawService) ready() error {
	if s == nil {
		return fmt.Errorf("DrawService is nil")
	}
	if s.events == nil || s.signups == nil || s.teams == nil || s.calendar == nil {
		return fmt.Errorf("draw service not configured")
	}
	return nil
}

// Draw partitions the signups of an active event into teams and replaces its
// stored assignments. It requires the draw window to be open. Participant
// counts without a configured shape return ErrManualAssignmentRequired and
// leave stored assignments untouched.
func (s *DrawService) Draw(ctx context.Context, eventID string) (result []Team, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Draw", "event_id", eventID)
	defer func() {
		s.metrics.ObserveAction("draw", outcome(err))
		if err != nil {
			logger.ErrorContext(ctx, "draw failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("teams", len(result)).InfoContext(ctx, "teams drawn")
	}()

	if !s.calendar.IsDrawWindowOpen(s.now()) {
		err = ErrDrawWindowClosed
		return
	}

	var event persistence.Event
	if event, err = s.events.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = fmt.Errorf("%w: event %s does not exist", ErrNoActiveEvent, eventID)
			return
		}
		err = mapStoreError(err)
		return
	}
	if !event.Active {
		err = fmt.Errorf("%w: event %s is closed", ErrNoActiveEvent, eventID)
		return
	}

	var signups []persistence.Signup
	if signups, err = s.signups.ListSignups(ctx, eventID); err != nil {
		err = mapStoreError(err)
		return
	}
	nicknames := make([]string, 0, len(signups))
	for _, signup := range signups {
		nicknames = append(nicknames, signup.Nickname)
	}

	var drawn []teams.Team
	if drawn, err = s.draw(nicknames); err != nil {
		return
	}

	assignments := make([]persistence.TeamAssignment, 0, len(drawn))
	for i, team := range drawn {
		assignments = append(assignments, persistence.TeamAssignment{
			EventID:  eventID,
			Label:    team.Label,
			Position: i,
			Members:  team.Members,
		})
	}
	if err = s.teams.ReplaceTeamAssignments(ctx, eventID, assignments); err != nil {
		err = mapStoreError(err)
		return
	}

	result = teamsFromPersistence(assignments)
	return
}

// Teams returns the stored teams of an event in draw order.
func (s *DrawService) Teams(ctx context.Context, eventID string) ([]Team, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	stored, err := s.teams.ListTeamAssignments(ctx, eventID)
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "Teams", "event_id", eventID).
			ErrorContext(ctx, "list teams failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return teamsFromPersistence(stored), nil
}

func (s *DrawService) draw(nicknames []string) ([]teams.Team, error) {
	if s.rng == nil {
		return teams.Draw(nicknames, s.table, nil)
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return teams.Draw(nicknames, s.table, s.rng)
}
