package application

import (
	"time"

	"github.com/example/pickup-games/internal/persistence"
)

// Event is a game as shown to participants.
type Event struct {
	ID        string
	StartTime time.Time
	Active    bool
}

// Signup is a participant registration without its password hash.
type Signup struct {
	ID        string
	EventID   string
	Nickname  string
	Timestamp time.Time
}

// Team is one drawn team of an event.
type Team struct {
	Label   string
	Members []string
}

// SignupParams carries a signup or signout request. Limiter is the caller
// session's counter; nil disables rate limiting.
type SignupParams struct {
	EventID  string
	Nickname string
	Password string
	Limiter  *Limiter
}

func eventFromPersistence(e persistence.Event) Event {
	return Event{ID: e.ID, StartTime: e.StartTime, Active: e.Active}
}

func signupFromPersistence(s persistence.Signup) Signup {
	return Signup{ID: s.ID, EventID: s.EventID, Nickname: s.Nickname, Timestamp: s.Timestamp}
}

func teamsFromPersistence(stored []persistence.TeamAssignment) []Team {
	out := make([]Team, 0, len(stored))
	for _, t := range stored {
		out = append(out, Team{Label: t.Label, Members: append([]string(nil), t.Members...)})
	}
	return out
}
