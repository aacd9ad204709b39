// Package metrics exposes Prometheus counters for the poll loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Notification results.
const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Metrics collects the counters reported by the bot.
type Metrics struct {
	gatherer      prometheus.Gatherer
	polls         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cursor        prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homeworkbot_polls_total",
		Help: "Total poll iterations by outcome.",
	}, []string{"outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homeworkbot_failures_total",
		Help: "Total failed iterations by error kind.",
	}, []string{"kind"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homeworkbot_notifications_total",
		Help: "Total notification attempts by result.",
	}, []string{"result"})
	cursor := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "homeworkbot_cursor_seconds",
		Help: "Current from_date cursor as a Unix timestamp.",
	})

	polls = registerCounterVec(reg, polls)
	failures = registerCounterVec(reg, failures)
	notifications = registerCounterVec(reg, notifications)
	if err := reg.Register(cursor); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				cursor = existing
			}
		}
	}

	return &Metrics{
		gatherer:      reg,
		polls:         polls,
		failures:      failures,
		notifications: notifications,
		cursor:        cursor,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncPoll(outcome string) {
	if m == nil || m.polls == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFailure(kind string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncNotification(result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCursor(cursor int64) {
	if m == nil || m.cursor == nil {
		return
	}
	m.cursor.Set(float64(cursor))
}

func registerCounterVec(registerer prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return counter
}
