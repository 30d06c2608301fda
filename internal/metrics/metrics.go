// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdholdren/matsubo/internal/notify"
)

const namespace = "matsubo"

// Metrics are registered once per registry; tests use their own.
type Metrics struct {
	JobDuration   *prometheus.HistogramVec
	JobFailures   *prometheus.CounterVec
	Messages      *prometheus.CounterVec
	Reminders     *prometheus.CounterVec
	ScrapedEvents *prometheus.CounterVec
	Requests      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers every collector with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent running a job",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		JobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failures_total",
			Help:      "Number of job runs that ended in an error",
		}, []string{"job"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Event posts by what was done with them",
		}, []string{"action"}),
		Reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminders by what was done with them",
		}, []string{"action"}),
		ScrapedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scraped_events_total",
			Help:      "Events read off listing pages",
		}, []string{"source"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests to the operator API",
		}, []string{"code", "method"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.JobDuration, m.JobFailures,
		m.Messages, m.Reminders, m.ScrapedEvents,
		m.Requests,
	)

	return m
}

// Handler exports everything in the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument counts requests to next by status code and method.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.Requests, next)
}

// ObserveNotify records the outcome of a notify run.
func (m *Metrics) ObserveNotify(res notify.Result) {
	m.Messages.WithLabelValues("posted").Add(float64(res.Posted))
	m.Messages.WithLabelValues("edited").Add(float64(res.Edited))
	m.Messages.WithLabelValues("unchanged").Add(float64(res.Unchanged))
	m.Messages.WithLabelValues("skipped_cancelled").Add(float64(res.SkippedCancelled))
	m.Messages.WithLabelValues("failed").Add(float64(res.Failed))
}

// ObserveRemind records the outcome of a remind run.
func (m *Metrics) ObserveRemind(res notify.RemindResult) {
	m.Reminders.WithLabelValues("sent").Add(float64(res.Sent))
	m.Reminders.WithLabelValues("replaced").Add(float64(res.Replaced))
	m.Reminders.WithLabelValues("unchanged").Add(float64(res.Unchanged))
	m.Reminders.WithLabelValues("kept_oversized").Add(float64(res.KeptOversized))
}
