package grading_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
)

func uniform(v float64) quality.Metrics {
	return quality.Metrics{Blur: v, Contrast: v, EdgeIntegrity: v}
}

func TestGrade_Bands(t *testing.T) {
	t.Parallel()

	engine := grading.Default()

	tests := []struct {
		name      string
		composite float64
		want      grading.Grade
	}{
		{name: "perfect", composite: 1.0, want: grading.A},
		{name: "a_boundary", composite: 0.85, want: grading.A},
		{name: "just_below_a", composite: 0.8499, want: grading.B},
		{name: "b_boundary", composite: 0.70, want: grading.B},
		{name: "just_below_b", composite: 0.6999, want: grading.C},
		{name: "c_boundary", composite: 0.55, want: grading.C},
		{name: "d_boundary", composite: 0.40, want: grading.D},
		{name: "just_below_d", composite: 0.3999, want: grading.F},
		{name: "zero", composite: 0, want: grading.F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := engine.Grade(uniform(tt.composite))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Grade)
			assert.InDelta(t, tt.composite, res.Composite, 1e-12)
			assert.InDelta(t, tt.want.Score(), res.Score, 1e-12)
		})
	}
}

func TestGrade_WorstMetricWins(t *testing.T) {
	t.Parallel()

	engine := grading.Default()

	res, err := engine.Grade(quality.Metrics{Blur: 0.99, Contrast: 0.39, EdgeIntegrity: 0.95})
	require.NoError(t, err)
	assert.Equal(t, grading.F, res.Grade)
	assert.InDelta(t, 0.39, res.Composite, 1e-12)

	res, err = engine.Grade(quality.Metrics{Blur: 0.85, Contrast: 0.9, EdgeIntegrity: 0.86})
	require.NoError(t, err)
	assert.Equal(t, grading.A, res.Grade)

	// Sweep the metric space: all >= 0.85 is A, any < 0.40 is F.
	for _, hi := range []float64{0.85, 0.9, 0.97, 1} {
		for _, lo := range []float64{0, 0.1, 0.25, 0.3999} {
			res, err = engine.Grade(quality.Metrics{Blur: hi, Contrast: hi, EdgeIntegrity: hi})
			require.NoError(t, err)
			assert.Equal(t, grading.A, res.Grade)

			res, err = engine.Grade(quality.Metrics{Blur: hi, Contrast: lo, EdgeIntegrity: hi})
			require.NoError(t, err)
			assert.Equal(t, grading.F, res.Grade)

			res, err = engine.Grade(quality.Metrics{Blur: hi, Contrast: hi, EdgeIntegrity: lo})
			require.NoError(t, err)
			assert.Equal(t, grading.F, res.Grade)
		}
	}
}

func TestGrade_Deterministic(t *testing.T) {
	t.Parallel()

	engine := grading.Default()
	m := quality.Metrics{Blur: 0.71, Contrast: 0.88, EdgeIntegrity: 0.93}

	first, err := engine.Grade(m)
	require.NoError(t, err)

	for range 100 {
		again, err := engine.Grade(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGrade_InvalidMetric(t *testing.T) {
	t.Parallel()

	engine := grading.Default()

	tests := []struct {
		name    string
		metrics quality.Metrics
	}{
		{name: "negative", metrics: quality.Metrics{Blur: -0.01, Contrast: 0.5, EdgeIntegrity: 0.5}},
		{name: "above_one", metrics: quality.Metrics{Blur: 0.5, Contrast: 1.01, EdgeIntegrity: 0.5}},
		{name: "nan", metrics: quality.Metrics{Blur: 0.5, Contrast: 0.5, EdgeIntegrity: math.NaN()}},
		{name: "inf", metrics: quality.Metrics{Blur: math.Inf(1), Contrast: 0.5, EdgeIntegrity: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := engine.Grade(tt.metrics)
			require.ErrorIs(t, err, grading.ErrInvalidMetric)
		})
	}
}

func TestNewEngine_CustomBands(t *testing.T) {
	t.Parallel()

	engine, err := grading.NewEngine(grading.Bands{A: 0.9, B: 0.8, C: 0.6, D: 0.5})
	require.NoError(t, err)

	res, err := engine.Grade(uniform(0.85))
	require.NoError(t, err)
	assert.Equal(t, grading.B, res.Grade)

	res, err = engine.Grade(uniform(0.45))
	require.NoError(t, err)
	assert.Equal(t, grading.F, res.Grade)
}

func TestBands_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, grading.DefaultBands().Validate())

	tests := []struct {
		name  string
		bands grading.Bands
	}{
		{name: "zero_value", bands: grading.Bands{}},
		{name: "not_decreasing", bands: grading.Bands{A: 0.8, B: 0.8, C: 0.5, D: 0.4}},
		{name: "inverted", bands: grading.Bands{A: 0.4, B: 0.55, C: 0.7, D: 0.85}},
		{name: "above_one", bands: grading.Bands{A: 1.2, B: 0.7, C: 0.55, D: 0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := grading.NewEngine(tt.bands)
			require.ErrorIs(t, err, grading.ErrInvalidBands)
		})
	}
}

func TestGrade_PassesAndScore(t *testing.T) {
	t.Parallel()

	assert.True(t, grading.A.Passes(grading.C))
	assert.True(t, grading.C.Passes(grading.C))
	assert.False(t, grading.D.Passes(grading.C))
	assert.InDelta(t, 4.0, grading.A.Score(), 0)
	assert.InDelta(t, 0.0, grading.F.Score(), 0)
	assert.Equal(t, grading.F, grading.Failed().Grade)
}

func TestParseGrade(t *testing.T) {
	t.Parallel()

	for _, g := range grading.All() {
		parsed, err := grading.ParseGrade(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}

	parsed, err := grading.ParseGrade(" b ")
	require.NoError(t, err)
	assert.Equal(t, grading.B, parsed)

	_, err = grading.ParseGrade("E")
	require.ErrorIs(t, err, grading.ErrUnknownGrade)

	data, err := json.Marshal(grading.Result{Grade: grading.C, Composite: 0.6, Score: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"grade":"C","composite":0.6,"score":2}`, string(data))
}
