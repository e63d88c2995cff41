// Package metric provides Prometheus metrics for the auto-transform service:
// a registry wrapper that prevents duplicate registrations plus the core
// metric set (evaluation decisions, transform outcomes, rule matches,
// durations, store errors, NATS connectivity).
//
// Components register their own metrics through MetricsRegistrar; the
// registry exposes the underlying *prometheus.Registry for the /metrics
// endpoint in cmd/autotransform.
package metric
