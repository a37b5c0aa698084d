package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EmailsSent    *prometheus.CounterVec
	EmailsFailed  *prometheus.CounterVec
	EmailsRetried *prometheus.CounterVec
	SendLatency   *prometheus.HistogramVec
	PendingItems  prometheus.Gauge
	BudgetUsed    *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of successfully delivered emails.",
		}, []string{"category"}),

		EmailsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Total number of permanently failed emails (retries exhausted).",
		}, []string{"category"}),

		EmailsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emails_retried_total",
			Help: "Total number of failed attempts that were requeued.",
		}, []string{"category"}),

		SendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "email_send_seconds",
			Help:    "Latency of a single send attempt, compose to provider ack.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),

		PendingItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "email_queue_pending",
			Help: "Current number of pending items in the email queue.",
		}),

		BudgetUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "email_daily_budget_used",
			Help: "Emails sent so far today, per category.",
		}, []string{"category"}),
	}

	reg.MustRegister(
		m.EmailsSent,
		m.EmailsFailed,
		m.EmailsRetried,
		m.SendLatency,
		m.PendingItems,
		m.BudgetUsed,
	)

	return m
}

// WorkerHooks returns the metric callbacks wired into the delivery worker.
// Centralises the prometheus observation calls so the worker stays import-free.
func (m *Metrics) WorkerHooks() worker.Hooks {
	return worker.Hooks{
		OnSent: func(cat domain.Category, latency time.Duration) {
			m.EmailsSent.WithLabelValues(string(cat)).Inc()
			m.SendLatency.WithLabelValues(string(cat)).Observe(latency.Seconds())
		},
		OnFailed: func(cat domain.Category) {
			m.EmailsFailed.WithLabelValues(string(cat)).Inc()
		},
		OnRetry: func(cat domain.Category) {
			m.EmailsRetried.WithLabelValues(string(cat)).Inc()
		},
	}
}

// ObserveQueue refreshes the backlog and budget gauges from a stats snapshot.
func (m *Metrics) ObserveQueue(stats *domain.QueueStats, counts domain.DailyCounts) {
	m.PendingItems.Set(float64(stats.Pending))
	m.BudgetUsed.WithLabelValues(string(domain.CategoryEvaluation)).Set(float64(counts.Evaluation))
	m.BudgetUsed.WithLabelValues(string(domain.CategoryCertificate)).Set(float64(counts.Certificate))
}
