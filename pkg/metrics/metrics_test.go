package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testMetricName        = "test_metric"
	testMetricName2       = "test_metric_2"
	testMetricDisplayName = "Test Metric"
	testMetricDescription = "A test metric for unit testing"
	testMetricType        = "quality"
)

// scaleMetric multiplies its input by a fixed factor.
type scaleMetric struct {
	MetricMeta

	factor float64
}

func (m *scaleMetric) Compute(input float64) float64 {
	return input * m.factor
}

func newScaleMetric(name string, factor float64) *scaleMetric {
	return &scaleMetric{
		MetricMeta: MetricMeta{
			MetricName:        name,
			MetricDisplayName: testMetricDisplayName,
			MetricDescription: testMetricDescription,
			MetricType:        testMetricType,
		},
		factor: factor,
	}
}

func TestMetricMeta(t *testing.T) {
	t.Parallel()

	m := newScaleMetric(testMetricName, 1)

	assert.Equal(t, testMetricName, m.Name())
	assert.Equal(t, testMetricDisplayName, m.DisplayName())
	assert.Equal(t, testMetricDescription, m.Description())
	assert.Equal(t, testMetricType, m.Type())
}

func TestRegistry_Empty(t *testing.T) {
	t.Parallel()

	registry := NewRegistry[float64, float64]()

	assert.Empty(t, registry.Names())
	assert.Empty(t, registry.ComputeAll(1))
}

func TestRegistry_Get(t *testing.T) {
	t.Parallel()

	registry := NewRegistry[float64, float64]()
	metric := newScaleMetric(testMetricName, 2)
	registry.Register(metric)

	got, found := registry.Get(testMetricName)
	assert.True(t, found)
	assert.Equal(t, metric, got)

	got, found = registry.Get("nonexistent_metric")
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRegistry_NamesKeepRegistrationOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry[float64, float64]()
	registry.Register(newScaleMetric(testMetricName2, 1))
	registry.Register(newScaleMetric(testMetricName, 1))
	registry.Register(newScaleMetric(testMetricName2, 3))

	assert.Equal(t, []string{testMetricName2, testMetricName}, registry.Names())
}

func TestRegistry_ComputeAll(t *testing.T) {
	t.Parallel()

	registry := NewRegistry[float64, float64]()
	registry.Register(newScaleMetric(testMetricName, 2))
	registry.Register(newScaleMetric(testMetricName2, 0.5))

	got := registry.ComputeAll(4)

	assert.InDelta(t, 8.0, got[testMetricName], 0.0001)
	assert.InDelta(t, 2.0, got[testMetricName2], 0.0001)
}
