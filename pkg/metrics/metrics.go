// Package metrics provides interfaces for defining self-contained, reusable metrics.
//
// Each metric is a computation unit that:
//   - Declares its input type
//   - Computes a typed output
//   - Provides metadata for documentation and serialization
//
// The quality analyzer registers its print-quality measurements here so they can
// be evaluated together and listed by the CLI.
package metrics

import "slices"

// Metric is the core interface that all metrics must implement.
type Metric[In, Out any] interface {
	// Name returns the machine-readable identifier (snake_case, unique).
	Name() string

	// DisplayName returns a human-readable name for UI/reports.
	DisplayName() string

	// Description documents what the metric measures and how to read it.
	Description() string

	// Type returns the metric category (e.g. "quality").
	Type() string

	// Compute calculates the metric value from input data.
	Compute(input In) Out
}

// MetricMeta holds the common metadata for a metric.
// Embed this in metric implementations to satisfy metadata methods.
type MetricMeta struct {
	MetricName        string
	MetricDisplayName string
	MetricDescription string
	MetricType        string
}

// Name returns the machine-readable identifier.
func (m MetricMeta) Name() string { return m.MetricName }

// DisplayName returns a human-readable name for UI/reports.
func (m MetricMeta) DisplayName() string { return m.MetricDisplayName }

// Description returns detailed documentation.
func (m MetricMeta) Description() string { return m.MetricDescription }

// Type returns the metric category.
func (m MetricMeta) Type() string { return m.MetricType }

// Registry holds an ordered collection of metrics over the same input and output types.
// A Registry is populated once at construction and read concurrently afterwards.
type Registry[In, Out any] struct {
	byName map[string]Metric[In, Out]
	order  []string
}

// NewRegistry creates an empty metric registry.
func NewRegistry[In, Out any]() *Registry[In, Out] {
	return &Registry[In, Out]{byName: make(map[string]Metric[In, Out])}
}

// Register adds a metric. Registering a name twice replaces the earlier metric
// but keeps its original position.
func (r *Registry[In, Out]) Register(m Metric[In, Out]) {
	if _, ok := r.byName[m.Name()]; !ok {
		r.order = append(r.order, m.Name())
	}

	r.byName[m.Name()] = m
}

// Get retrieves a metric by name.
func (r *Registry[In, Out]) Get(name string) (Metric[In, Out], bool) {
	m, ok := r.byName[name]

	return m, ok
}

// Names returns all registered metric names in registration order.
func (r *Registry[In, Out]) Names() []string {
	return slices.Clone(r.order)
}

// ComputeAll evaluates every metric against input, keyed by metric name.
func (r *Registry[In, Out]) ComputeAll(input In) map[string]Out {
	out := make(map[string]Out, len(r.order))

	for _, name := range r.order {
		out[name] = r.byName[name].Compute(input)
	}

	return out
}
