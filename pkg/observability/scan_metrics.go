package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFramesTotal         = "proscan.frames.total"
	metricFrameDuration       = "proscan.frame.duration.seconds"
	metricDetectionsTotal     = "proscan.detections.total"
	metricScansTotal          = "proscan.scans.total"
	metricGradesTotal         = "proscan.grades.total"
	metricInvalidRegionsTotal = "proscan.invalid_regions.total"

	attrFrameStatus = "status"
	attrOutcome     = "outcome"
	attrGrade       = "grade"

	frameStatusOK      = "ok"
	frameStatusSkipped = "skipped"
)

// frameBucketBoundaries covers 1ms to 1s: a 60 fps line leaves about 16ms per frame.
var frameBucketBoundaries = []float64{0.001, 0.0025, 0.005, 0.01, 0.016, 0.025, 0.05, 0.1, 0.2, 0.5, 1}

// ScanMetrics holds OTel instruments for the inspection pipeline.
type ScanMetrics struct {
	framesTotal     metric.Int64Counter
	frameDuration   metric.Float64Histogram
	detectionsTotal metric.Int64Counter
	scansTotal      metric.Int64Counter
	gradesTotal     metric.Int64Counter
	invalidRegions  metric.Int64Counter
}

// FrameStats summarizes one processed frame, decoupled from pipeline types.
type FrameStats struct {
	Duration       time.Duration
	DecoderFailed  bool
	Detections     int
	Admitted       int
	Suppressed     int
	InvalidRegions int
	Grades         map[string]int
}

// NewScanMetrics creates the pipeline instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		framesTotal:     b.counter(metricFramesTotal, "Frames processed by status", "{frame}"),
		frameDuration:   b.histogram(metricFrameDuration, "Per-frame analysis and commit time", "s", frameBucketBoundaries...),
		detectionsTotal: b.counter(metricDetectionsTotal, "Symbols decoded", "{detection}"),
		scansTotal:      b.counter(metricScansTotal, "Scan records by deduplication outcome", "{scan}"),
		gradesTotal:     b.counter(metricGradesTotal, "Scan records by grade", "{scan}"),
		invalidRegions:  b.counter(metricInvalidRegionsTotal, "Detections that could not be graded", "{detection}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordFrame records the statistics of one frame.
// Safe to call on a nil receiver (no-op).
func (sm *ScanMetrics) RecordFrame(ctx context.Context, fs FrameStats) {
	if sm == nil {
		return
	}

	status := frameStatusOK
	if fs.DecoderFailed {
		status = frameStatusSkipped
	}

	sm.framesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrFrameStatus, status)))
	sm.frameDuration.Record(ctx, fs.Duration.Seconds())

	if fs.DecoderFailed {
		return
	}

	sm.detectionsTotal.Add(ctx, int64(fs.Detections))
	sm.scansTotal.Add(ctx, int64(fs.Admitted), metric.WithAttributes(attribute.String(attrOutcome, "admitted")))
	sm.scansTotal.Add(ctx, int64(fs.Suppressed), metric.WithAttributes(attribute.String(attrOutcome, "suppressed")))
	sm.invalidRegions.Add(ctx, int64(fs.InvalidRegions))

	for grade, n := range fs.Grades {
		sm.gradesTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrGrade, grade)))
	}
}
