package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "proscan.http.requests.total"
	metricRequestDuration  = "proscan.http.request.duration.seconds"
	metricInflightRequests = "proscan.http.inflight.requests"

	attrRoute  = "route"
	attrStatus = "status"
)

// requestBucketBoundaries covers fast admin endpoints, 1ms to 5s.
var requestBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// REDMetrics holds the Rate, Error, Duration instruments of the admin HTTP server.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Admin HTTP requests by route and status", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Admin HTTP request duration", "s", requestBucketBoundaries...),
		inflightRequests: b.upDownCounter(metricInflightRequests, "In-flight admin HTTP requests", "{request}"),
	}

	if b.err != nil {
		return nil, fmt.Errorf("red metrics: %w", b.err)
	}

	return rm, nil
}

// RecordRequest records a completed request. Safe on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrRoute, route),
		attribute.Int(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
// Safe on a nil receiver.
func (rm *REDMetrics) TrackInflight(ctx context.Context, route string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrRoute, route))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}
