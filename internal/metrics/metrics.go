// Package metrics records reconciliation and signup outcomes.
package metrics

import "time"

// Pass summarizes one scheduler reconciliation pass.
type Pass struct {
	Closed   int
	Opened   int
	Created  int
	Failures int
	Upcoming int
	Active   int
	Duration time.Duration
}

// Recorder receives metric observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObservePass records the outcome of a reconciliation pass.
	ObservePass(pass Pass)
	// ObserveAction records one user action (signup, signout, draw) and its
	// outcome label ("ok" or an error kind).
	ObserveAction(action, outcome string)
}

// Nop discards every observation.
type Nop struct{}

var _ Recorder = Nop{}

// ObservePass discards the pass.
func (Nop) ObservePass(Pass) {}

// ObserveAction discards the action.
func (Nop) ObserveAction(string, string) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
