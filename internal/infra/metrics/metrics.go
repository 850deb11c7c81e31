package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks planning passes and reminder delivery.
type Metrics struct {
	PlanningPasses      prometheus.Counter
	PlanningFailures    prometheus.Counter
	RemindersPlanned    prometheus.Counter
	EnqueueFailures     prometheus.Counter
	RemindersDispatched prometheus.Counter
	DispatchFailures    prometheus.Counter
	PassDuration        prometheus.Histogram
}

// New registers all metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PlanningPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "birthday_planning_passes_total",
			Help: "Total number of completed planning passes",
		}),
		PlanningFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "birthday_planning_pass_failures_total",
			Help: "Planning passes aborted before enqueueing",
		}),
		RemindersPlanned: f.NewCounter(prometheus.CounterOpts{
			Name: "birthday_reminders_planned_total",
			Help: "Reminder instructions produced by planning passes",
		}),
		EnqueueFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "birthday_reminders_enqueue_failures_total",
			Help: "Reminder instructions the delivery store rejected",
		}),
		RemindersDispatched: f.NewCounter(prometheus.CounterOpts{
			Name: "birthday_reminders_dispatched_total",
			Help: "Reminders sent to the notification channel",
		}),
		DispatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "birthday_reminders_dispatch_failures_total",
			Help: "Reminders that failed to send or to be marked delivered",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "birthday_planning_pass_duration_seconds",
			Help:    "Duration of a full planning pass including delivery store writes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObservePass records the duration of a planning pass.
// Call with time.Now() at the start of the pass.
func (m *Metrics) ObservePass(start time.Time) {
	m.PassDuration.Observe(time.Since(start).Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
