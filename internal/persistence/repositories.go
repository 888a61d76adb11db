package persistence

import (
	"context"
	"time"
)

// EventFilter narrows event queries. Nil fields do not constrain the result.
type EventFilter struct {
	Active       *bool
	StartsBefore *time.Time
	StartsAfter  *time.Time
}

// EventRepository stores game events. Each calendar date holds at most one
// event; CreateEvent returns ErrDuplicate for a second one.
type EventRepository interface {
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	CreateEvent(ctx context.Context, event Event) error
	SetEventActive(ctx context.Context, id string, active bool) error
}

// SignupRepository stores signups. ListSignups orders by timestamp ascending;
// CreateSignup returns ErrDuplicate when the nickname is taken for the event.
type SignupRepository interface {
	ListSignups(ctx context.Context, eventID string) ([]Signup, error)
	FindSignup(ctx context.Context, eventID, nickname string) (Signup, error)
	CreateSignup(ctx context.Context, signup Signup) error
	DeleteSignup(ctx context.Context, id string) error
}

// TeamRepository stores drawn teams. ReplaceTeamAssignments discards every
// previous assignment of the event in the same transaction.
type TeamRepository interface {
	ReplaceTeamAssignments(ctx context.Context, eventID string, teams []TeamAssignment) error
	ListTeamAssignments(ctx context.Context, eventID string) ([]TeamAssignment, error)
}

// BoolPtr returns a pointer to v, for building filters.
func BoolPtr(v bool) *bool {
	return &v
}

// TimePtr returns a pointer to t, for building filters.
func TimePtr(t time.Time) *time.Time {
	return &t
}
