// Package teams partitions signed-up participants into labelled teams
// according to a table of supported participant counts.
package teams

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// ErrManualAssignmentRequired is returned when the participant count has no
// configured shape. It is a rejection, not a failure: callers fall back to
// assigning teams by hand.
var ErrManualAssignmentRequired = errors.New("teams: manual assignment required")

// ErrInvalidTable indicates the shape table is inconsistent.
var ErrInvalidTable = errors.New("teams: invalid shape table")

// Slot is one labelled team of a fixed size.
type Slot struct {
	Label string
	Size  int
}

// Shape is the ordered list of teams for one participant count.
type Shape []Slot

// Total returns the number of participants the shape accommodates.
func (s Shape) Total() int {
	total := 0
	for _, slot := range s {
		total += slot.Size
	}
	return total
}

// Table maps supported participant counts to their shape.
type Table map[int]Shape

// Validate checks that every shape covers exactly its key, that sizes are
// positive, and that labels are distinct within a shape.
func (t Table) Validate() error {
	for count, shape := range t {
		if len(shape) == 0 {
			return fmt.Errorf("%w: count %d has no teams", ErrInvalidTable, count)
		}
		seen := make(map[string]struct{}, len(shape))
		for _, slot := range shape {
			if slot.Label == "" {
				return fmt.Errorf("%w: count %d has an unlabelled team", ErrInvalidTable, count)
			}
			if slot.Size <= 0 {
				return fmt.Errorf("%w: count %d team %q has size %d", ErrInvalidTable, count, slot.Label, slot.Size)
			}
			if _, dup := seen[slot.Label]; dup {
				return fmt.Errorf("%w: count %d repeats label %q", ErrInvalidTable, count, slot.Label)
			}
			seen[slot.Label] = struct{}{}
		}
		if total := shape.Total(); total != count {
			return fmt.Errorf("%w: count %d has team sizes summing to %d", ErrInvalidTable, count, total)
		}
	}
	return nil
}

// Supports reports whether count has a configured shape.
func (t Table) Supports(count int) bool {
	_, ok := t[count]
	return ok
}

// Counts returns the supported participant counts in ascending order.
func (t Table) Counts() []int {
	counts := make([]int, 0, len(t))
	for count := range t {
		counts = append(counts, count)
	}
	sort.Ints(counts)
	return counts
}

// Team is one drawn team.
type Team struct {
	Label   string
	Members []string
}

// Draw shuffles participants uniformly and slices the permutation into the
// shape configured for their count, in shape order. Only the permutation is
// random; team sizes always match the table. participants is not modified.
// A nil rng uses the package-level source.
func Draw(participants []string, table Table, rng *rand.Rand) ([]Team, error) {
	shape, ok := table[len(participants)]
	if !ok {
		return nil, ErrManualAssignmentRequired
	}
	if shape.Total() != len(participants) {
		return nil, fmt.Errorf("%w: count %d has team sizes summing to %d", ErrInvalidTable, len(participants), shape.Total())
	}

	shuffled := make([]string, len(participants))
	copy(shuffled, participants)
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if rng != nil {
		rng.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}

	out := make([]Team, 0, len(shape))
	start := 0
	for _, slot := range shape {
		end := start + slot.Size
		members := make([]string, end-start)
		copy(members, shuffled[start:end])
		out = append(out, Team{Label: slot.Label, Members: members})
		start = end
	}
	return out, nil
}
