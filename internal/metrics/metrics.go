// Package metrics mirrors scheduler.Observer lifecycle events onto
// Prometheus collectors using the real client_golang library rather than
// hand-rolled text-format exposition.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// Metrics holds every collector the scheduler exposes. Register with a
// prometheus.Registerer of the caller's choosing (internal/app and the
// tests each pass their own prometheus.NewRegistry()).
type Metrics struct {
	events      *prometheus.CounterVec
	queueLength *prometheus.GaugeVec
	retryLength prometheus.Gauge
}

// New constructs and registers the collectors. The queue/retry length
// gauges are not fed by Attach, since Observer itself has no notion of
// "all known types"; they change only through SetQueueLength and
// SetRetryLength.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "job_scheduler",
			Name:      "events_total",
			Help:      "Count of scheduler lifecycle events by kind.",
		}, []string{"event"}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "job_scheduler",
			Name:      "queue_length",
			Help:      "Current number of pending jobs per type.",
		}, []string{"type"}),
		retryLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "job_scheduler",
			Name:      "retry_registry_length",
			Help:      "Current total number of jobs awaiting retry admission.",
		}),
	}
	reg.MustRegister(m.events, m.queueLength, m.retryLength)
	return m
}

// Attach subscribes to every lifecycle event on obs and increments the
// matching counter. Returns a combined unsubscribe func.
func (m *Metrics) Attach(obs *scheduler.Observer) (unsubscribe func()) {
	names := []scheduler.EventName{
		scheduler.EventJobRegistered,
		scheduler.EventJobRejected,
		scheduler.EventJobStarted,
		scheduler.EventJobSucceeded,
		scheduler.EventJobFailed,
		scheduler.EventJobExpired,
		scheduler.EventRetryAdmitted,
	}
	unsubs := make([]func(), 0, len(names))
	for _, name := range names {
		name := name
		unsubs = append(unsubs, obs.AddObserver(name, func(scheduler.Event) {
			m.events.WithLabelValues(string(name)).Inc()
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// SetQueueLength updates the gauge for one job type. Observer events are
// edge-triggered (counts), not level-triggered (current lengths), so this
// gauge moves only when a caller sets it; neither the dispatcher nor
// internal/app calls it.
func (m *Metrics) SetQueueLength(jobType string, n int) {
	m.queueLength.WithLabelValues(jobType).Set(float64(n))
}

// SetRetryLength updates the total-retry-registry-size gauge.
func (m *Metrics) SetRetryLength(n int) {
	m.retryLength.Set(float64(n))
}
