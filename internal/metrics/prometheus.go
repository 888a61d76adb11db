package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder with Prometheus collectors. Collectors are
// registered lazily on the first observation.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	passes       prometheus.Counter
	changes      *prometheus.CounterVec
	failures     prometheus.Counter
	upcoming     prometheus.Gauge
	active       prometheus.Gauge
	passDuration prometheus.Histogram
	actions      *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates a Prometheus recorder. A nil reg uses
// prometheus.DefaultRegisterer; an empty namespace defaults to "games".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "games"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.passes = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "passes_total",
			Help:      "Total reconciliation passes.",
		})
		p.changes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "event_changes_total",
			Help:      "Events changed by reconciliation, by kind (closed, opened, created).",
		}, []string{"kind"})
		p.failures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "record_failures_total",
			Help:      "Per-record store failures during reconciliation.",
		})
		p.upcoming = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "upcoming_events",
			Help:      "Future events (active or pending) after the last pass.",
		})
		p.active = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "active_events",
			Help:      "Events open for signup after the last pass.",
		})
		p.passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		})
		p.actions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "signups",
			Name:      "actions_total",
			Help:      "User actions by action and outcome.",
		}, []string{"action", "outcome"})

		p.reg.MustRegister(p.passes)
		p.reg.MustRegister(p.changes)
		p.reg.MustRegister(p.failures)
		p.reg.MustRegister(p.upcoming)
		p.reg.MustRegister(p.active)
		p.reg.MustRegister(p.passDuration)
		p.reg.MustRegister(p.actions)
	})
}

// ObservePass records a reconciliation pass.
func (p *Prometheus) ObservePass(pass Pass) {
	p.ensureRegistered()
	p.passes.Inc()
	p.changes.WithLabelValues("closed").Add(float64(pass.Closed))
	p.changes.WithLabelValues("opened").Add(float64(pass.Opened))
	p.changes.WithLabelValues("created").Add(float64(pass.Created))
	p.failures.Add(float64(pass.Failures))
	p.upcoming.Set(float64(pass.Upcoming))
	p.active.Set(float64(pass.Active))
	p.passDuration.Observe(pass.Duration.Seconds())
}

// ObserveAction counts a user action.
func (p *Prometheus) ObserveAction(action, outcome string) {
	p.ensureRegistered()
	p.actions.WithLabelValues(action, outcome).Inc()
}
