// Package pipeline turns frames into graded, deduplicated scan records.
//
// Each frame is processed in two phases. Analysis decodes the frame and grades
// every detection; it is pure and may run on many goroutines. Commit presents
// each detection to the deduplication store and feeds the statistics; it is
// the only phase that mutates shared state and always runs in frame order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/proscan/pkg/decoder"
	"github.com/Sumatoshi-tech/proscan/pkg/dedup"
	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/observability"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
)

// DefaultWindow is the duplicate suppression window used when none is configured.
const DefaultWindow = 3 * time.Second

// ErrNoDecoder is returned by New when no decoder is supplied.
var ErrNoDecoder = errors.New("pipeline requires a decoder")

// Pipeline processes frames. All collaborators are injected; none are global,
// so independent pipelines can run side by side.
type Pipeline struct {
	decoder  decoder.Decoder
	analyzer *quality.Analyzer
	grader   *grading.Engine
	store    *dedup.Store
	stats    *scanstats.Aggregator
	window   time.Duration

	workers int
	buffer  int

	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *observability.ScanMetrics
	onAdmitted func(scan.Record)
}

// New creates a pipeline around dec.
func New(dec decoder.Decoder, opts ...Option) (*Pipeline, error) {
	if dec == nil {
		return nil, ErrNoDecoder
	}

	p := &Pipeline{
		decoder: dec,
		window:  DefaultWindow,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
		tracer:  nooptrace.NewTracerProvider().Tracer(""),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.analyzer == nil {
		analyzer, err := quality.NewAnalyzer(quality.DefaultThresholds())
		if err != nil {
			return nil, fmt.Errorf("create analyzer: %w", err)
		}

		p.analyzer = analyzer
	}

	if p.grader == nil {
		p.grader = grading.Default()
	}

	if p.store == nil {
		p.store = dedup.New()
	}

	if p.stats == nil {
		p.stats = scanstats.New(grading.C)
	}

	if p.buffer == 0 {
		p.buffer = 2 * p.workers
	}

	return p, nil
}

// Stats returns the statistics aggregator fed by the pipeline.
func (p *Pipeline) Stats() *scanstats.Aggregator {
	return p.stats
}

// Store returns the deduplication store used by the pipeline.
func (p *Pipeline) Store() *dedup.Store {
	return p.store
}

// Window returns the duplicate suppression window.
func (p *Pipeline) Window() time.Duration {
	return p.window
}

// Process analyzes one frame and commits its detections.
//
// Records come back in detection order, one per detection. A frame without
// symbols returns an empty slice. When the decoder fails the frame is skipped:
// no records, an error wrapping decoder.ErrDecoderUnavailable, and the pipeline
// stays usable. When ctx is cancelled part way, detections already committed
// are returned together with ctx.Err().
//
// Process must not be called concurrently with itself or Run on the same
// pipeline if cross-frame ordering matters; use Run for parallel processing.
func (p *Pipeline) Process(ctx context.Context, f *frame.Frame) ([]scan.Record, error) {
	return p.commit(ctx, p.analyze(ctx, f))
}

// pending is a fully analyzed detection awaiting commit.
type pending struct {
	det    decoder.Detection
	report quality.Report
	result grading.Result
	diags  []scan.Diagnostic
}

// analysis is the pure result of analyzing a frame.
type analysis struct {
	frame    *frame.Frame
	ctx      context.Context //nolint:containedctx // carries the frame span to commit.
	span     trace.Span
	started  time.Time
	analyzed time.Duration
	pending  []pending
	err      error
	// cancelled is set when analysis stopped before the last detection.
	cancelled error
}

func (p *Pipeline) analyze(ctx context.Context, f *frame.Frame) analysis {
	started := time.Now()

	ctx, span := p.tracer.Start(ctx, observability.SpanFrame, trace.WithAttributes(
		attribute.Int64("frame.seq", int64(f.Sequence())), //nolint:gosec // sequence numbers fit in int64.
		attribute.Int("frame.width", f.Width()),
		attribute.Int("frame.height", f.Height()),
	))

	a := analysis{frame: f, ctx: ctx, span: span, started: started}

	dets, err := p.decoder.Decode(ctx, f)
	if err != nil {
		a.err = err
		a.analyzed = time.Since(started)

		return a
	}

	span.SetAttributes(attribute.Int("frame.detections", len(dets)))

	a.pending = make([]pending, 0, len(dets))

	for i, det := range dets {
		if err := ctx.Err(); err != nil {
			a.cancelled = err

			break
		}

		a.pending = append(a.pending, p.analyzeDetection(ctx, f, i, det))
	}

	a.analyzed = time.Since(started)

	return a
}

func (p *Pipeline) analyzeDetection(ctx context.Context, f *frame.Frame, index int, det decoder.Detection) pending {
	ctx, span := p.tracer.Start(ctx, observability.SpanDetection, trace.WithAttributes(
		attribute.Int("detection.index", index),
		attribute.String("detection.symbology", det.Symbology.String()),
	))
	defer span.End()

	pd := pending{det: det}

	report, err := p.analyzer.Analyze(f, det.Bounds)
	if err != nil {
		p.logger.WarnContext(ctx, "detection cannot be graded",
			"frame", f.Sequence(), "index", index, "symbology", det.Symbology.String(),
			"bounds", det.Bounds.String(), "error", err)

		span.SetStatus(codes.Error, err.Error())

		pd.report = quality.Report{Defect: quality.DefectInvalid}
		pd.result = grading.Failed()
		pd.diags = []scan.Diagnostic{scan.DiagInvalidRegion}

		return pd
	}

	result, err := p.grader.Grade(report.Metrics)
	if err != nil {
		p.logger.ErrorContext(ctx, "analyzer produced invalid metrics",
			"frame", f.Sequence(), "index", index, "error", err)

		span.SetStatus(codes.Error, err.Error())

		pd.report = quality.Report{Defect: quality.DefectInvalid}
		pd.result = grading.Failed()
		pd.diags = []scan.Diagnostic{scan.DiagInvalidMetric}

		return pd
	}

	span.SetAttributes(attribute.String("detection.grade", result.Grade.String()))

	pd.report = report
	pd.result = result

	return pd
}

// commit applies an analysis to the shared state. Each detection is admitted and
// recorded as a unit; cancellation is only observed between detections.
func (p *Pipeline) commit(ctx context.Context, a analysis) ([]scan.Record, error) {
	defer a.span.End()

	f := a.frame

	if a.err != nil {
		return nil, p.failFrame(ctx, a)
	}

	commitStart := time.Now()
	records := make([]scan.Record, 0, len(a.pending))

	for i, pd := range a.pending {
		if err := ctx.Err(); err != nil {
			a.span.SetStatus(codes.Error, "cancelled")

			return records, err
		}

		outcome := p.store.Admit(pd.det.Identity(), f.Captured(), p.window)

		rec := scan.Record{
			ID:           uuid.New(),
			Frame:        f.Sequence(),
			Index:        i,
			Timestamp:    f.Captured(),
			Symbology:    pd.det.Symbology,
			Payload:      pd.det.Text,
			Raw:          pd.det.Payload,
			Grade:        pd.result.Grade,
			Composite:    pd.result.Composite,
			Score:        pd.result.Score,
			Metrics:      pd.report.Metrics,
			Measurements: pd.report.Measurements,
			Defect:       pd.report.Defect,
			Admitted:     outcome == dedup.Admitted,
			Diagnostics:  pd.diags,
			Bounds:       pd.det.Bounds,
		}

		if rec.Payload == "" {
			rec.Payload = string(pd.det.Payload)
		}

		p.stats.Record(rec)
		records = append(records, rec)

		if rec.Admitted && p.onAdmitted != nil {
			p.onAdmitted(rec)
		}
	}

	if a.cancelled != nil {
		a.span.SetStatus(codes.Error, "cancelled")

		return records, a.cancelled
	}

	elapsed := a.analyzed + time.Since(commitStart)
	p.stats.RecordFrame(f.Captured(), elapsed, false)
	p.metrics.RecordFrame(a.ctx, frameStats(elapsed, records))

	return records, nil
}

// failFrame accounts for a frame the decoder could not process.
func (p *Pipeline) failFrame(ctx context.Context, a analysis) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(a.err, ctxErr) {
		return ctxErr
	}

	err := a.err
	if !errors.Is(err, decoder.ErrDecoderUnavailable) {
		err = fmt.Errorf("%w: %w", decoder.ErrDecoderUnavailable, err)
	}

	a.span.RecordError(err)
	a.span.SetStatus(codes.Error, "decoder unavailable")

	p.logger.ErrorContext(a.ctx, "frame skipped", "frame", a.frame.Sequence(), "error", err)

	p.stats.RecordFrame(a.frame.Captured(), a.analyzed, true)
	p.metrics.RecordFrame(a.ctx, observability.FrameStats{Duration: a.analyzed, DecoderFailed: true})

	return err
}

func frameStats(elapsed time.Duration, records []scan.Record) observability.FrameStats {
	fs := observability.FrameStats{
		Duration:   elapsed,
		Detections: len(records),
		Grades:     make(map[string]int),
	}

	for _, r := range records {
		if r.Admitted {
			fs.Admitted++
		} else {
			fs.Suppressed++
		}

		if r.Has(scan.DiagInvalidRegion) {
			fs.InvalidRegions++
		}

		fs.Grades[r.Grade.String()]++
	}

	return fs
}
