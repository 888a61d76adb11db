package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/pickup-games/internal/persistence"
)

var (
	eventCounter  uint64
	signupCounter uint64
)

// referenceTime is a Tuesday morning before a Wednesday 18:30 game in
// Europe/Warsaw (UTC+1 in March).
var referenceTime = time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceGame is the first game after ReferenceTime: Wednesday 2024-03-06
// 18:30 in Europe/Warsaw.
func ReferenceGame() time.Time {
	return time.Date(2024, time.March, 6, 17, 30, 0, 0, time.UTC)
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture is a deterministic event record.
type EventFixture struct {
	ID        string
	StartTime time.Time
	Active    bool
	CreatedAt time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns an active event on the reference game slot, shifted
// by one week for every fixture created so dates never collide.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		StartTime: ReferenceGame().AddDate(0, 0, 7*int(idx-1)),
		Active:    true,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventStart overrides the start time.
func WithEventStart(t time.Time) EventOption {
	return func(f *EventFixture) {
		f.StartTime = t
	}
}

// WithEventActive sets the active flag.
func WithEventActive(active bool) EventOption {
	return func(f *EventFixture) {
		f.Active = active
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		StartTime: f.StartTime,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Signup fixtures ----------------------------

// SignupFixture is a deterministic signup record.
type SignupFixture struct {
	ID           string
	EventID      string
	Nickname     string
	PasswordHash string
	Timestamp    time.Time
}

// SignupOption configures the generated signup fixture.
type SignupOption func(*SignupFixture)

// NewSignupFixture returns a signup for eventID. Timestamps advance by one
// minute per fixture so list order is deterministic.
func NewSignupFixture(eventID string, opts ...SignupOption) SignupFixture {
	idx := atomic.AddUint64(&signupCounter, 1)
	fixture := SignupFixture{
		ID:           fmt.Sprintf("signup-%03d", idx),
		EventID:      eventID,
		Nickname:     fmt.Sprintf("player %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Timestamp:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSignupID overrides the generated signup ID.
func WithSignupID(id string) SignupOption {
	return func(f *SignupFixture) {
		f.ID = id
	}
}

// WithNickname overrides the nickname.
func WithNickname(nickname string) SignupOption {
	return func(f *SignupFixture) {
		f.Nickname = nickname
	}
}

// WithPasswordHash overrides the stored hash.
func WithPasswordHash(hash string) SignupOption {
	return func(f *SignupFixture) {
		f.PasswordHash = hash
	}
}

// WithSignupTimestamp overrides the signup time.
func WithSignupTimestamp(t time.Time) SignupOption {
	return func(f *SignupFixture) {
		f.Timestamp = t
	}
}

// Persistence returns the fixture as a persistence.Signup value.
func (f SignupFixture) Persistence() persistence.Signup {
	return persistence.Signup{
		ID:           f.ID,
		EventID:      f.EventID,
		Nickname:     f.Nickname,
		PasswordHash: f.PasswordHash,
		Timestamp:    f.Timestamp,
	}
}
