package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout formats the calendar date used to key occurrences.
const DateLayout = "2006-01-02"

// ErrInvalidSlot indicates a weekly slot is outside the supported ranges.
var ErrInvalidSlot = errors.New("recurrence: invalid weekly slot")

// Slot is a weekday and wall-clock time that recurs every week.
type Slot struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Validate reports whether the slot describes a real weekly instant.
func (s Slot) Validate() error {
	if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d", ErrInvalidSlot, s.Weekday)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidSlot, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalidSlot, s.Minute)
	}
	return nil
}

// String renders the slot as "Wednesday 18:30".
func (s Slot) String() string {
	return fmt.Sprintf("%s %02d:%02d", s.Weekday, s.Hour, s.Minute)
}

func (s Slot) minuteOfDay() int {
	return s.Hour*60 + s.Minute
}

// on returns the slot's wall-clock time on the date of day, in loc.
func (s Slot) on(day time.Time, offsetDays int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+offsetDays, s.Hour, s.Minute, 0, 0, loc)
}

// Rule bundles the three weekly slots that drive a game series.
type Rule struct {
	Game       Slot
	SignupOpen Slot
	Draw       Slot
}

// Validate checks every slot of the rule.
func (r Rule) Validate() error {
	if err := r.Game.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if err := r.SignupOpen.Validate(); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	if err := r.Draw.Validate(); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// Calendar evaluates a Rule in a single time zone. It holds no other state and
// never consults persisted data.
type Calendar struct {
	rule     Rule
	location *time.Location
}

// NewCalendar constructs a Calendar. If loc is nil, UTC is used.
func NewCalendar(rule Rule, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{rule: rule, location: loc}
}

// Rule returns the weekly rule the calendar evaluates.
func (c *Calendar) Rule() Rule {
	return c.rule
}

// Location returns the zone every computed instant is expressed in.
func (c *Calendar) Location() *time.Location {
	return c.location
}

// NextOccurrence returns the first game instant strictly after now. A now that
// falls on the game day at or after the game time yields next week's game.
func (c *Calendar) NextOccurrence(now time.Time) time.Time {
	local := now.In(c.location)
	ahead := daysBetween(local.Weekday(), c.rule.Game.Weekday)
	candidate := c.rule.Game.on(local, ahead, c.location)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// PreviousOccurrence returns the most recent game instant at or before now.
func (c *Calendar) PreviousOccurrence(now time.Time) time.Time {
	local := now.In(c.location)
	back := daysBetween(c.rule.Game.Weekday, local.Weekday())
	candidate := c.rule.Game.on(local, -back, c.location)
	if candidate.After(local) {
		candidate = candidate.AddDate(0, 0, -7)
	}
	return candidate
}

// Upcoming returns the next n occurrences, one week apart, starting with
// NextOccurrence(now). Weekly steps keep the wall-clock time across DST changes.
func (c *Calendar) Upcoming(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	first := c.NextOccurrence(now)
	out := make([]time.Time, 0, n)
	for week := 0; week < n; week++ {
		out = append(out, first.AddDate(0, 0, 7*week))
	}
	return out
}

// SignupOpeningFor returns the signup slot instant that most recently precedes
// occurrence. When the signup slot would fall on or after the occurrence within
// the same week, the previous week's slot is used.
func (c *Calendar) SignupOpeningFor(occurrence time.Time) time.Time {
	local := occurrence.In(c.location)
	back := daysBetween(c.rule.SignupOpen.Weekday, local.Weekday())
	candidate := c.rule.SignupOpen.on(local, -back, c.location)
	if !candidate.Before(local) {
		candidate = candidate.AddDate(0, 0, -7)
	}
	return candidate
}

// IsSignupWindowOpen reports whether now lies in [SignupOpeningFor(start), start).
func (c *Calendar) IsSignupWindowOpen(now, start time.Time) bool {
	if !now.Before(start) {
		return false
	}
	return !now.Before(c.SignupOpeningFor(start))
}

// IsDrawWindowOpen reports whether team drawing is permitted at now: on the draw
// weekday from the draw time until the end of that day.
func (c *Calendar) IsDrawWindowOpen(now time.Time) bool {
	local := now.In(c.location)
	if local.Weekday() != c.rule.Draw.Weekday {
		return false
	}
	return local.Hour()*60+local.Minute() >= c.rule.Draw.minuteOfDay()
}

// DateKey returns the calendar date of t in the calendar's zone.
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.location).Format(DateLayout)
}

// daysBetween counts the days from weekday "from" forward to weekday "to".
func daysBetween(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

// ParseWeekday accepts English weekday names (full or three-letter, any case)
// or a number where 0 is Sunday.
func ParseWeekday(value string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > 6 {
			return time.Sunday, fmt.Errorf("%w: weekday %d", ErrInvalidSlot, n)
		}
		return time.Weekday(n), nil
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if v == name || v == name[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSlot, value)
}
