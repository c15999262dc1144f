// Package scanstats keeps running counters over the scan record stream.
package scanstats

import (
	"maps"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
)

// View is a point-in-time copy of the aggregated counters.
type View struct {
	Total       int            `json:"total"        yaml:"total"`
	Admitted    int            `json:"admitted"     yaml:"admitted"`
	Suppressed  int            `json:"suppressed"   yaml:"suppressed"`
	Grades      map[string]int `json:"grades"       yaml:"grades"`
	Symbologies map[string]int `json:"symbologies"  yaml:"symbologies"`
	Defects     map[string]int `json:"defects"      yaml:"defects"`
	Invalid     int            `json:"invalid"      yaml:"invalid"`
	Passed      int            `json:"passed"       yaml:"passed"`
	PassGrade   grading.Grade  `json:"pass_grade"   yaml:"pass_grade"`
	PassRate    float64        `json:"pass_rate"    yaml:"pass_rate"`
	Frames      int            `json:"frames"       yaml:"frames"`
	Skipped     int            `json:"skipped"      yaml:"skipped"`
	MeanLatency time.Duration  `json:"mean_latency" yaml:"mean_latency"`
	P95Latency  time.Duration  `json:"p95_latency"  yaml:"p95_latency"`
	// FPS is the stream's frame rate, measured between the first and last capture times.
	FPS         float64        `json:"fps"          yaml:"fps"`
	// MaxFPS is the frame rate the engine could sustain at the mean processing latency.
	MaxFPS      float64        `json:"max_fps"      yaml:"max_fps"`
}

// GradeCount returns the number of records with grade g.
func (v View) GradeCount(g grading.Grade) int {
	return v.Grades[g.String()]
}

// Aggregator accumulates scan records. It is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	passGrade grading.Grade

	total       int
	admitted    int
	invalid     int
	passed      int
	grades      map[grading.Grade]int
	symbologies map[string]int
	defects     map[quality.Defect]int

	frames  int
	skipped int
	latency *latencyTracker

	// stamped counts frames with a capture time between firstCapture and lastCapture.
	stamped      int
	firstCapture time.Time
	lastCapture  time.Time
}

// New creates an aggregator that counts admitted records graded passGrade or
// better as passed.
func New(passGrade grading.Grade) *Aggregator {
	a := &Aggregator{passGrade: passGrade}
	a.resetLocked()

	return a
}

// Record adds one scan record.
func (a *Aggregator) Record(r scan.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.grades[r.Grade]++
	a.symbologies[r.Symbology.String()]++
	a.defects[r.Defect]++

	if r.Has(scan.DiagInvalidRegion) || r.Has(scan.DiagInvalidMetric) {
		a.invalid++
	}

	if !r.Admitted {
		return
	}

	a.admitted++

	if r.Grade.Passes(a.passGrade) {
		a.passed++
	}
}

// RecordFrame accounts for one processed frame: its capture time and its
// wall-clock processing time. Skipped frames produced no records because the
// decoder failed. A zero capture time leaves the stream frame rate untouched.
func (a *Aggregator) RecordFrame(captured time.Time, elapsed time.Duration, skipped bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frames++

	if skipped {
		a.skipped++
	}

	a.latency.observe(elapsed)

	if captured.IsZero() {
		return
	}

	if a.stamped == 0 || captured.Before(a.firstCapture) {
		a.firstCapture = captured
	}

	if a.stamped == 0 || captured.After(a.lastCapture) {
		a.lastCapture = captured
	}

	a.stamped++
}

// Snapshot returns a consistent copy of the counters.
func (a *Aggregator) Snapshot() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := View{
		Total:       a.total,
		Admitted:    a.admitted,
		Suppressed:  a.total - a.admitted,
		Grades:      make(map[string]int, len(grading.All())),
		Symbologies: maps.Clone(a.symbologies),
		Defects:     make(map[string]int, len(a.defects)),
		Invalid:     a.invalid,
		Passed:      a.passed,
		PassGrade:   a.passGrade,
		PassRate:    1,
		Frames:      a.frames,
		Skipped:     a.skipped,
		MeanLatency: a.latency.mean(),
		P95Latency:  a.latency.p95(),
	}

	for _, g := range grading.All() {
		v.Grades[g.String()] = a.grades[g]
	}

	for d, n := range a.defects {
		v.Defects[d.String()] = n
	}

	if a.admitted > 0 {
		v.PassRate = float64(a.passed) / float64(a.admitted)
	}

	if v.MeanLatency > 0 {
		v.MaxFPS = float64(time.Second) / float64(v.MeanLatency)
	}

	if span := a.lastCapture.Sub(a.firstCapture); a.stamped > 1 && span > 0 {
		v.FPS = float64(a.stamped-1) / span.Seconds()
	}

	return v
}

// Reset clears every counter. The pass grade is kept.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetLocked()
}

func (a *Aggregator) resetLocked() {
	a.total, a.admitted, a.invalid, a.passed = 0, 0, 0, 0
	a.frames, a.skipped = 0, 0
	a.stamped, a.firstCapture, a.lastCapture = 0, time.Time{}, time.Time{}
	a.grades = make(map[grading.Grade]int)
	a.symbologies = make(map[string]int)
	a.defects = make(map[quality.Defect]int)
	a.latency = newLatencyTracker()
}
