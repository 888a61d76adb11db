package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/pickup-games/internal/metrics"
	"github.com/example/pickup-games/internal/persistence"
)

// EventReader exposes the event lookups the services need.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error)
}

// PasswordHasher derives a storable hash from a password.
type PasswordHasher func(password string) (string, error)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// SignupServiceConfig lists the collaborators of a SignupService. Only Events
// and Signups are required.
type SignupServiceConfig struct {
	Events      EventReader
	Signups     persistence.SignupRepository
	Hash        PasswordHasher
	Verify      PasswordVerifier
	IDGenerator func() string
	Now         func() time.Time
	Metrics     metrics.Recorder
	Logger      *slog.Logger
}

// SignupService registers and removes participants of active events.
type SignupService struct {
	events      EventReader
	signups     persistence.SignupRepository
	hash        PasswordHasher
	verify      PasswordVerifier
	idGenerator func() string
	now         func() time.Time
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// NewSignupService constructs a SignupService, filling unset collaborators
// with argon2id hashing, uuid ids, time.Now and a no-op recorder.
func NewSignupService(cfg SignupServiceConfig) *SignupService {
	if cfg.Hash == nil {
		cfg.Hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if cfg.Verify == nil {
		cfg.Verify = VerifyPassword
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SignupService{
		events:      cfg.Events,
		signups:     cfg.Signups,
		hash:        cfg.Hash,
		verify:      cfg.Verify,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		metrics:     metrics.OrNop(cfg.Metrics),
		logger:      defaultLogger(cfg.Logger),
	}
}

func (s *SignupService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SignupService", operation, attrs...)
}

func (s *SignupService) ready() error {
	if s == nil {
		return fmt.Errorf("SignupService is nil")
	}
	if s.events == nil || s.signups == nil {
		return fmt.Errorf("signup store not configured")
	}
	return nil
}

// Signup registers a nickname for an active event. Checks run in order: rate
// limit, input validation, event state, nickname uniqueness. A concurrent
// signup that wins the race surfaces as ErrDuplicateNickname.
func (s *SignupService) Signup(ctx context.Context, params SignupParams) (result Signup, err error) {
	if err = s.ready(); err != nil {
		return
	}

	nickname := NormalizeText(params.Nickname)
	password := NormalizeText(params.Password)

	logger := s.loggerWith(ctx, "Signup",
		"event_id", params.EventID,
		"nickname", nickname,
	)
	defer func() {
		s.metrics.ObserveAction(string(ActionSignup), outcome(err))
		if err != nil {
			logger.ErrorContext(ctx, "signup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("signup_id", result.ID).InfoContext(ctx, "signup succeeded")
	}()

	if err = params.Limiter.Allow(ActionSignup); err != nil {
		return
	}
	if vErr := validateCredentials(nickname, password); vErr != nil {
		err = vErr
		return
	}

	now := s.now()
	if err = s.requireOpenEvent(ctx, params.EventID, now); err != nil {
		return
	}

	_, err = s.signups.FindSignup(ctx, params.EventID, nickname)
	switch {
	case err == nil:
		err = ErrDuplicateNickname
		return
	case !errors.Is(err, persistence.ErrNotFound):
		err = mapStoreError(err)
		return
	}

	var hash string
	if hash, err = s.hash(password); err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	signup := persistence.Signup{
		ID:           s.idGenerator(),
		EventID:      params.EventID,
		Nickname:     nickname,
		PasswordHash: hash,
		Timestamp:    now,
	}
	if err = s.signups.CreateSignup(ctx, signup); err != nil {
		switch {
		case errors.Is(err, persistence.ErrDuplicate):
			err = fmt.Errorf("%w: %v", ErrDuplicateNickname, err)
		case errors.Is(err, persistence.ErrNotFound):
			err = fmt.Errorf("%w: %v", ErrNoActiveEvent, err)
		default:
			err = mapStoreError(err)
		}
		return
	}

	result = signupFromPersistence(signup)
	return
}

// Signout removes a signup after verifying its password. A wrong password
// never deletes the record. Signout does not require the event to be active.
func (s *SignupService) Signout(ctx context.Context, params SignupParams) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	nickname := NormalizeText(params.Nickname)
	password := NormalizeText(params.Password)

	logger := s.loggerWith(ctx, "Signout",
		"event_id", params.EventID,
		"nickname", nickname,
	)
	defer func() {
		s.metrics.ObserveAction(string(ActionSignout), outcome(err))
		if err != nil {
			logger.ErrorContext(ctx, "signout failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "signout succeeded")
	}()

	if err = params.Limiter.Allow(ActionSignout); err != nil {
		return
	}
	if vErr := validateSignoutInput(nickname, password); vErr != nil {
		err = vErr
		return
	}

	var signup persistence.Signup
	if signup, err = s.signups.FindSignup(ctx, params.EventID, nickname); err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.verify(signup.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			err = fmt.Errorf("verify password of signup %s: %w", signup.ID, err)
		}
		return
	}

	if err = s.signups.DeleteSignup(ctx, signup.ID); err != nil {
		err = mapStoreError(err)
		return
	}
	return nil
}

// ListSignups returns the signups of an event in signup order.
func (s *SignupService) ListSignups(ctx context.Context, eventID string) ([]Signup, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	stored, err := s.signups.ListSignups(ctx, eventID)
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "ListSignups", "event_id", eventID).
			ErrorContext(ctx, "list signups failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	out := make([]Signup, 0, len(stored))
	for _, signup := range stored {
		out = append(out, signupFromPersistence(signup))
	}
	return out, nil
}

// ActiveEvents returns the events currently open for signup, soonest first.
func (s *SignupService) ActiveEvents(ctx context.Context) ([]Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	stored, err := s.events.ListEvents(ctx, persistence.EventFilter{
		Active:      persistence.BoolPtr(true),
		StartsAfter: persistence.TimePtr(s.now()),
	})
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "ActiveEvents").
			ErrorContext(ctx, "list active events failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	out := make([]Event, 0, len(stored))
	for _, event := range stored {
		out = append(out, eventFromPersistence(event))
	}
	return out, nil
}

// requireOpenEvent fails with ErrNoActiveEvent unless the event exists, is
// flagged active and has not started yet.
func (s *SignupService) requireOpenEvent(ctx context.Context, eventID string, now time.Time) error {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("%w: event %s does not exist", ErrNoActiveEvent, eventID)
		}
		return mapStoreError(err)
	}
	if !event.Active || !now.Before(event.StartTime) {
		return fmt.Errorf("%w: event %s is closed", ErrNoActiveEvent, eventID)
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return ErrorKind(err)
}
