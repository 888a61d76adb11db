package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/pickup-games/internal/metrics"
	"github.com/example/pickup-games/internal/persistence"
)

var testArgon2idParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func fastHash(password string) (string, error) {
	return CreatePasswordHash(password, testArgon2idParams)
}

// storeStub is an in-memory store with per-method error injection. Unique
// constraints mirror the SQLite schema.
type storeStub struct {
	mu      sync.Mutex
	events  map[string]persistence.Event
	signups map[string]persistence.Signup
	teams   map[string][]persistence.TeamAssignment

	getEventErr   error
	listEventsErr error
	findErr       error
	createErr     error
	deleteErr     error
	replaceErr    error

	// hideSignups makes FindSignup miss, simulating a concurrent writer that
	// passed the duplicate check at the same time.
	hideSignups bool

	createCalls  int
	deleteCalls  int
	replaceCalls int
}

func newStoreStub() *storeStub {
	return &storeStub{
		events:  make(map[string]persistence.Event),
		signups: make(map[string]persistence.Signup),
		teams:   make(map[string][]persistence.TeamAssignment),
	}
}

func (s *storeStub) addEvent(id string, start time.Time, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = persistence.Event{ID: id, StartTime: start, Active: active}
}

func (s *storeStub) GetEvent(_ context.Context, id string) (persistence.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getEventErr != nil {
		return persistence.Event{}, s.getEventErr
	}
	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (s *storeStub) ListEvents(_ context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listEventsErr != nil {
		return nil, s.listEventsErr
	}
	var out []persistence.Event
	for _, event := range s.events {
		if filter.Active != nil && event.Active != *filter.Active {
			continue
		}
		if filter.StartsBefore != nil && !event.StartTime.Before(*filter.StartsBefore) {
			continue
		}
		if filter.StartsAfter != nil && !event.StartTime.After(*filter.StartsAfter) {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *storeStub) ListSignups(_ context.Context, eventID string) ([]persistence.Signup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []persistence.Signup
	for _, signup := range s.signups {
		if signup.EventID == eventID {
			out = append(out, signup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *storeStub) FindSignup(_ context.Context, eventID, nickname string) (persistence.Signup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return persistence.Signup{}, s.findErr
	}
	if !s.hideSignups {
		for _, signup := range s.signups {
			if signup.EventID == eventID && signup.Nickname == nickname {
				return signup, nil
			}
		}
	}
	return persistence.Signup{}, persistence.ErrNotFound
}

func (s *storeStub) CreateSignup(_ context.Context, signup persistence.Signup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.events[signup.EventID]; !ok {
		return persistence.ErrNotFound
	}
	for _, existing := range s.signups {
		if existing.EventID == signup.EventID && existing.Nickname == signup.Nickname {
			return persistence.ErrDuplicate
		}
	}
	s.signups[signup.ID] = signup
	return nil
}

func (s *storeStub) DeleteSignup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.signups[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.signups, id)
	return nil
}

func (s *storeStub) ReplaceTeamAssignments(_ context.Context, eventID string, teams []persistence.TeamAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.teams[eventID] = append([]persistence.TeamAssignment(nil), teams...)
	return nil
}

func (s *storeStub) ListTeamAssignments(_ context.Context, eventID string) ([]persistence.TeamAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]persistence.TeamAssignment(nil), s.teams[eventID]...), nil
}

func (s *storeStub) signupCount(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, signup := range s.signups {
		if signup.EventID == eventID {
			n++
		}
	}
	return n
}

// recorderStub counts observed actions by "action/outcome".
type recorderStub struct {
	mu      sync.Mutex
	actions map[string]int
}

func (r *recorderStub) ObservePass(metrics.Pass) {}

func (r *recorderStub) ObserveAction(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actions == nil {
		r.actions = make(map[string]int)
	}
	r.actions[action+"/"+outcome]++
}
