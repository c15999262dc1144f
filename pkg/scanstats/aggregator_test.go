package scanstats_test

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

func record(g grading.Grade, sym symbology.Symbology, admitted bool) scan.Record {
	return scan.Record{Grade: g, Symbology: sym, Admitted: admitted, Defect: quality.DefectNone}
}

func TestAggregator_Empty(t *testing.T) {
	t.Parallel()

	v := scanstats.New(grading.C).Snapshot()

	assert.Zero(t, v.Total)
	assert.InDelta(t, 1.0, v.PassRate, 0)
	assert.Len(t, v.Grades, 5)
	assert.Zero(t, v.FPS)
	assert.Zero(t, v.MaxFPS)
}

func TestAggregator_Counts(t *testing.T) {
	t.Parallel()

	agg := scanstats.New(grading.C)

	agg.Record(record(grading.A, symbology.QR, true))
	agg.Record(record(grading.C, symbology.QR, true))
	agg.Record(record(grading.D, symbology.Code128, true))
	agg.Record(record(grading.A, symbology.QR, false))

	invalid := record(grading.F, symbology.EAN13, true)
	invalid.Defect = quality.DefectInvalid
	invalid.Diagnostics = []scan.Diagnostic{scan.DiagInvalidRegion}
	agg.Record(invalid)

	v := agg.Snapshot()

	assert.Equal(t, 5, v.Total)
	assert.Equal(t, 4, v.Admitted)
	assert.Equal(t, 1, v.Suppressed)
	assert.Equal(t, 2, v.GradeCount(grading.A))
	assert.Equal(t, 1, v.GradeCount(grading.F))
	assert.Equal(t, map[string]int{"QR": 3, "CODE-128": 1, "EAN-13": 1}, v.Symbologies)
	assert.Equal(t, map[string]int{"OK": 4, "INVALID": 1}, v.Defects)
	assert.Equal(t, 1, v.Invalid)
	assert.Equal(t, 2, v.Passed)
	assert.InDelta(t, 0.5, v.PassRate, 1e-12)
	assert.Equal(t, grading.C, v.PassGrade)
}

func TestAggregator_PassGradeThreshold(t *testing.T) {
	t.Parallel()

	strict := scanstats.New(grading.A)
	lenient := scanstats.New(grading.D)

	for _, g := range []grading.Grade{grading.A, grading.B, grading.D, grading.F} {
		strict.Record(record(g, symbology.QR, true))
		lenient.Record(record(g, symbology.QR, true))
	}

	assert.InDelta(t, 0.25, strict.Snapshot().PassRate, 1e-12)
	assert.InDelta(t, 0.75, lenient.Snapshot().PassRate, 1e-12)
}

func TestAggregator_HistogramSumEqualsTotal(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	agg := scanstats.New(grading.C)
	grades := grading.All()
	syms := symbology.All()

	for i := range 500 {
		agg.Record(record(grades[rng.IntN(len(grades))], syms[rng.IntN(len(syms))], rng.IntN(3) > 0))

		if i%50 == 0 {
			v := agg.Snapshot()

			var gradeSum, symSum int
			for _, n := range v.Grades {
				gradeSum += n
			}

			for _, n := range v.Symbologies {
				symSum += n
			}

			require.Equal(t, v.Total, gradeSum)
			require.Equal(t, v.Total, symSum)
			require.Equal(t, v.Total, v.Admitted+v.Suppressed)
		}
	}
}

func TestAggregator_Frames(t *testing.T) {
	t.Parallel()

	agg := scanstats.New(grading.C)

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	// Frames arrive every 100ms but take 20ms each to process.
	for i := range 10 {
		agg.RecordFrame(start.Add(time.Duration(i)*100*time.Millisecond), 20*time.Millisecond, false)
	}

	agg.RecordFrame(start.Add(time.Second), 20*time.Millisecond, true)

	v := agg.Snapshot()
	assert.Equal(t, 11, v.Frames)
	assert.Equal(t, 1, v.Skipped)
	assert.Equal(t, 20*time.Millisecond, v.MeanLatency)
	assert.Equal(t, 20*time.Millisecond, v.P95Latency)
	assert.InDelta(t, 10.0, v.FPS, 1e-6)
	assert.InDelta(t, 50.0, v.MaxFPS, 1e-6)
}

func TestAggregator_FPSFromCaptureTimes(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		captures []time.Duration
		want     float64
	}{
		{name: "single_frame", captures: []time.Duration{0}, want: 0},
		{name: "same_instant", captures: []time.Duration{0, 0, 0}, want: 0},
		{name: "steady_30fps", captures: []time.Duration{0, time.Second / 30, 2 * time.Second / 30, time.Second / 10}, want: 30},
		{name: "out_of_order", captures: []time.Duration{200 * time.Millisecond, 0, 100 * time.Millisecond}, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agg := scanstats.New(grading.C)
			for _, c := range tt.captures {
				agg.RecordFrame(start.Add(c), time.Millisecond, false)
			}

			agg.RecordFrame(time.Time{}, time.Millisecond, false)

			assert.InDelta(t, tt.want, agg.Snapshot().FPS, 1e-6)
		})
	}
}

func TestAggregator_P95LatencyOverRecentFrames(t *testing.T) {
	t.Parallel()

	agg := scanstats.New(grading.C)

	// Old slow frames fall out of the window.
	for range 300 {
		agg.RecordFrame(time.Time{}, time.Second, false)
	}

	for i := range 256 {
		d := 10 * time.Millisecond
		if i%20 == 0 {
			d = 90 * time.Millisecond
		}

		agg.RecordFrame(time.Time{}, d, false)
	}

	v := agg.Snapshot()
	assert.Less(t, v.P95Latency, 100*time.Millisecond)
	assert.GreaterOrEqual(t, v.P95Latency, 10*time.Millisecond)
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	agg := scanstats.New(grading.C)
	agg.Record(record(grading.B, symbology.QR, true))

	v := agg.Snapshot()
	v.Grades["B"] = 100
	v.Symbologies["QR"] = 100

	again := agg.Snapshot()
	assert.Equal(t, 1, again.GradeCount(grading.B))
	assert.Equal(t, 1, again.Symbologies["QR"])
}

func TestAggregator_Reset(t *testing.T) {
	t.Parallel()

	agg := scanstats.New(grading.B)
	agg.Record(record(grading.A, symbology.QR, true))
	agg.RecordFrame(time.Time{}, time.Millisecond, false)
	agg.Reset()

	v := agg.Snapshot()
	assert.Zero(t, v.Total)
	assert.Zero(t, v.Frames)
	assert.Zero(t, v.MeanLatency)
	assert.Equal(t, grading.B, v.PassGrade)
}

func TestAggregator_Concurrent(t *testing.T) {
	t.Parallel()

	agg := scanstats.New(grading.C)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				agg.Record(record(grading.B, symbology.QR, true))
				_ = agg.Snapshot()
			}
		}()
	}

	wg.Wait()

	v := agg.Snapshot()
	assert.Equal(t, 800, v.Total)
	assert.Equal(t, 800, v.GradeCount(grading.B))
}
