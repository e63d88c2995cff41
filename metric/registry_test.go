package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/House-lovers7/tone-bridge/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())
}

func TestRegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test counter",
	})

	err := registry.RegisterCounter("coordinator", "test_counter", counter)
	require.NoError(t, err)

	// Same logical name again is rejected before touching prometheus
	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "other_counter_total",
		Help: "other counter",
	})
	err = registry.RegisterCounter("coordinator", "test_counter", other)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterConflictingCollector(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_total",
		Help: "dup",
	})
	second := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_total",
		Help: "dup",
	})

	require.NoError(t, registry.RegisterCounter("a", "first", first))

	// Different registry key but identical prometheus identity
	err := registry.RegisterCounter("b", "second", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "test gauge",
	})
	require.NoError(t, registry.RegisterGauge("engine", "test_gauge", gauge))

	assert.True(t, registry.Unregister("engine", "test_gauge"))
	assert.False(t, registry.Unregister("engine", "test_gauge"))

	// Re-registration works after unregister
	require.NoError(t, registry.RegisterGauge("engine", "test_gauge", gauge))
}

func TestCoreMetricRecording(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	// Smoke test the record helpers; values are verified via Gather
	m.RecordEvaluation("tenant-1", DecisionTransform)
	m.RecordEvaluation("tenant-1", DecisionTooShort)
	m.RecordTransform("tenant-1", "transformed")
	m.RecordRuleMatch("tenant-1", "rule-9")
	m.RecordEvaluationDuration("evaluate", 25*time.Millisecond)
	m.RecordTransformDuration(120 * time.Millisecond)
	m.RecordStoreError("rules", "get")
	m.RecordNATSStatus(true)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"tonebridge_autotransform_evaluations_total",
		"tonebridge_autotransform_transforms_total",
		"tonebridge_autotransform_rule_matches_total",
		"tonebridge_autotransform_evaluation_duration_seconds",
		"tonebridge_autotransform_transform_duration_seconds",
		"tonebridge_store_errors_total",
		"tonebridge_nats_connected",
	} {
		assert.True(t, names[want], "expected metric family %s", want)
	}
}
