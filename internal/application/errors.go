package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/teams"
)

var (
	// ErrNotFound is returned when the requested event or signup does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrDuplicateNickname is returned when the nickname is already signed up for the event.
	ErrDuplicateNickname = errors.New("application: nickname already signed up")
	// ErrInvalidCredentials is returned when a signout password does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("application: rate limited")
	// ErrNoActiveEvent is returned when the event is not open for signups or draws.
	ErrNoActiveEvent = errors.New("application: no active event")
	// ErrStoreUnavailable wraps transient store failures. Callers may retry.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrDrawWindowClosed is returned when a draw is requested outside the draw window.
	ErrDrawWindowClosed = errors.New("application: draw window closed")
	// ErrManualAssignmentRequired is returned when no team shape exists for the
	// participant count.
	ErrManualAssignmentRequired = teams.ErrManualAssignmentRequired
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// RateLimitError reports an attempt rejected by a Limiter.
type RateLimitError struct {
	Action   ActionKind
	Cooldown time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("application: rate limited: %s, retry in %s", e.Action, e.Cooldown)
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// CooldownSeconds returns the cooldown in whole seconds.
func (e *RateLimitError) CooldownSeconds() int {
	return int(e.Cooldown / time.Second)
}

// mapStoreError translates persistence failures into application errors.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// UserMessage returns text suitable for showing to the participant. Store and
// unexpected failures yield a generic message without internal detail.
func UserMessage(err error) string {
	var (
		vErr  *ValidationError
		rlErr *RateLimitError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		fields := make([]string, 0, len(vErr.FieldErrors))
		for field := range vErr.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		msgs := make([]string, 0, len(fields))
		for _, field := range fields {
			msgs = append(msgs, vErr.FieldErrors[field])
		}
		return strings.Join(msgs, " ")
	case errors.As(err, &rlErr):
		return fmt.Sprintf("Too many attempts. Try again in %d seconds.", rlErr.CooldownSeconds())
	case errors.Is(err, ErrDuplicateNickname):
		return "This nickname is already signed up for the game. Pick another one."
	case errors.Is(err, ErrInvalidCredentials):
		return "The password does not match this signup."
	case errors.Is(err, ErrNoActiveEvent):
		return "Signups are not open for this game."
	case errors.Is(err, ErrDrawWindowClosed):
		return "Teams can only be drawn during the draw window."
	case errors.Is(err, ErrManualAssignmentRequired):
		return "No team layout is configured for this number of players. Assign teams manually."
	case errors.Is(err, ErrNotFound):
		return "No signup found for this nickname."
	}
	return "Something went wrong. Please try again later."
}
