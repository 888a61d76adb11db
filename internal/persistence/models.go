package persistence

import "time"

// Event is one scheduled occurrence of the weekly game.
type Event struct {
	ID        string
	StartTime time.Time
	Active    bool
	CreatedAt time.Time
}

// Signup is one participant's registration for an event. The nickname is
// unique within its event.
type Signup struct {
	ID           string
	EventID      string
	Nickname     string
	PasswordHash string
	Timestamp    time.Time
}

// TeamAssignment is one drawn team of an event.
type TeamAssignment struct {
	EventID  string
	Label    string
	Position int
	Members  []string
}
