package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core auto-transform metrics shared across the service.
// Per-tenant daily usage buckets live in the store layer; these are the
// process-level Prometheus views.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	TransformsTotal    *prometheus.CounterVec
	RuleMatchesTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	TransformDuration  prometheus.Histogram
	StoreErrorsTotal   *prometheus.CounterVec
	NATSConnected      prometheus.Gauge
}

// Decision label values for EvaluationsTotal
const (
	DecisionTransform = "transform"
	DecisionDisabled  = "disabled"
	DecisionTooShort  = "too_short"
	DecisionNoRules   = "no_rules"
	DecisionNoMatch   = "no_match"
	DecisionRejected  = "rejected"
)

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tonebridge",
				Subsystem: "autotransform",
				Name:      "evaluations_total",
				Help:      "Total number of message evaluations by decision",
			},
			[]string{"tenant", "decision"},
		),

		TransformsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tonebridge",
				Subsystem: "autotransform",
				Name:      "transforms_total",
				Help:      "Total number of transformation attempts by status",
			},
			[]string{"tenant", "status"},
		),

		RuleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tonebridge",
				Subsystem: "autotransform",
				Name:      "rule_matches_total",
				Help:      "Total number of winning rule matches by rule",
			},
			[]string{"tenant", "rule"},
		),

		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tonebridge",
				Subsystem: "autotransform",
				Name:      "evaluation_duration_seconds",
				Help:      "Evaluation pipeline duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		TransformDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tonebridge",
				Subsystem: "autotransform",
				Name:      "transform_duration_seconds",
				Help:      "External transform service call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tonebridge",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total number of persistence errors",
			},
			[]string{"store", "operation"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tonebridge",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordEvaluation increments the evaluation counter for a decision
func (m *Metrics) RecordEvaluation(tenant, decision string) {
	m.EvaluationsTotal.WithLabelValues(tenant, decision).Inc()
}

// RecordTransform increments the transform counter for a status
func (m *Metrics) RecordTransform(tenant, status string) {
	m.TransformsTotal.WithLabelValues(tenant, status).Inc()
}

// RecordRuleMatch increments the winning-rule counter
func (m *Metrics) RecordRuleMatch(tenant, ruleID string) {
	m.RuleMatchesTotal.WithLabelValues(tenant, ruleID).Inc()
}

// RecordEvaluationDuration records time spent in the evaluation pipeline
func (m *Metrics) RecordEvaluationDuration(operation string, d time.Duration) {
	m.EvaluationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordTransformDuration records time spent calling the transform service
func (m *Metrics) RecordTransformDuration(d time.Duration) {
	m.TransformDuration.Observe(d.Seconds())
}

// RecordStoreError increments the persistence error counter
func (m *Metrics) RecordStoreError(store, operation string) {
	m.StoreErrorsTotal.WithLabelValues(store, operation).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}
