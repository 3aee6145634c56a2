package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It implements usecase.MetricsRecorder.
type Metrics struct {
	// Write path metrics
	AuditChanges *prometheus.CounterVec

	// Ledger metrics
	LedgerEntries   *prometheus.CounterVec
	LedgerConflicts prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Idempotency and rate limiting metrics
	IdempotencyReplays prometheus.Counter
	RateLimitHits      prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuditChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poslite_audit_changes_total",
				Help: "Changes processed by the audit pipeline by entity and classification",
			},
			[]string{"entity", "classification"},
		),

		LedgerEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poslite_ledger_writes_total",
				Help: "Ledger writes by reference type and outcome",
			},
			[]string{"ref_type", "outcome"},
		),
		LedgerConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "poslite_ledger_conflicts_total",
			Help: "Ledger writes that failed after exhausting conflict retries",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poslite_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poslite_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poslite_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		IdempotencyReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "poslite_idempotency_replays_total",
			Help: "Responses served from the idempotency store",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "poslite_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

func (m *Metrics) RecordAuditChange(entity, classification string) {
	m.AuditChanges.WithLabelValues(entity, classification).Inc()
}

func (m *Metrics) RecordLedgerEntry(refType, outcome string) {
	m.LedgerEntries.WithLabelValues(refType, outcome).Inc()
}

func (m *Metrics) RecordLedgerConflict() {
	m.LedgerConflicts.Inc()
}
