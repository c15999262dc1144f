package pipeline

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/proscan/pkg/dedup"
	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/observability"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWindow sets the duplicate suppression window. Zero disables suppression.
func WithWindow(d time.Duration) Option {
	return func(p *Pipeline) {
		p.window = max(d, 0)
	}
}

// WithAnalyzer replaces the quality analyzer.
func WithAnalyzer(a *quality.Analyzer) Option {
	return func(p *Pipeline) {
		p.analyzer = a
	}
}

// WithGrader replaces the grading engine.
func WithGrader(e *grading.Engine) Option {
	return func(p *Pipeline) {
		p.grader = e
	}
}

// WithStore shares a deduplication store, e.g. between pipelines watching the same line.
func WithStore(s *dedup.Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithAggregator sets the statistics sink.
func WithAggregator(a *scanstats.Aggregator) Option {
	return func(p *Pipeline) {
		p.stats = a
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithTracer sets the tracer used for frame and detection spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithMetrics sets the OTel instruments updated after every frame.
func WithMetrics(m *observability.ScanMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithWorkers sets the number of concurrent analysis workers used by Run.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = max(n, 1)
	}
}

// WithBuffer sets the capacity of the channels used by Run.
func WithBuffer(n int) Option {
	return func(p *Pipeline) {
		p.buffer = max(n, 0)
	}
}

// WithOnAdmitted registers a hook called for every admitted record, in emission order.
// The hook runs on the committing goroutine and must not block.
func WithOnAdmitted(fn func(scan.Record)) Option {
	return func(p *Pipeline) {
		p.onAdmitted = fn
	}
}
