package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, label := range m.GetLabel() {
				key += "|" + label.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return values
}

func TestPrometheus_ObservePass(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewPrometheus(reg, "test")

	rec.ObservePass(Pass{Closed: 1, Opened: 2, Created: 3, Failures: 1, Upcoming: 4, Active: 1, Duration: 20 * time.Millisecond})
	rec.ObservePass(Pass{Created: 1, Upcoming: 4, Active: 1})

	values := gatherValues(t, reg)
	want := map[string]float64{
		"test_scheduler_passes_total":                 2,
		"test_scheduler_event_changes_total|closed":   1,
		"test_scheduler_event_changes_total|opened":   2,
		"test_scheduler_event_changes_total|created":  4,
		"test_scheduler_record_failures_total":        1,
		"test_scheduler_upcoming_events":              4,
		"test_scheduler_active_events":                1,
		"test_scheduler_pass_duration_seconds":        2,
	}
	for key, expected := range want {
		if got := values[key]; got != expected {
			t.Fatalf("%s = %v, want %v", key, got, expected)
		}
	}
}

func TestPrometheus_ObserveAction(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewPrometheus(reg, "")

	rec.ObserveAction("signup", "ok")
	rec.ObserveAction("signup", "ok")
	rec.ObserveAction("signup", "rate_limited")

	values := gatherValues(t, reg)
	if got := values["games_signups_actions_total|signup|ok"]; got != 2 {
		t.Fatalf("expected 2 successful signups, got %v", got)
	}
	if got := values["games_signups_actions_total|signup|rate_limited"]; got != 1 {
		t.Fatalf("expected 1 rate limited signup, got %v", got)
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if _, ok := OrNop(nil).(Nop); !ok {
		t.Fatalf("expected Nop for nil recorder")
	}
	rec := NewPrometheus(prometheus.NewRegistry(), "x")
	if OrNop(rec) != Recorder(rec) {
		t.Fatalf("expected recorder to be returned unchanged")
	}
	Nop{}.ObservePass(Pass{})
	Nop{}.ObserveAction("signup", "ok")
}
