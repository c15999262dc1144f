// Package grading maps quality metrics to an ISO 15415 style letter grade.
//
// The composite score is the minimum of the three metrics, so the worst
// parameter decides the grade. The composite is then banded with inclusive
// lower bounds.
package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Sumatoshi-tech/proscan/pkg/alg/stats"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
)

// Sentinel grading errors.
var (
	ErrInvalidMetric = errors.New("invalid metric")
	ErrInvalidBands  = errors.New("invalid grade bands")
	ErrUnknownGrade  = errors.New("unknown grade")
)

// Grade is a symbol quality grade. Higher values are better, so the zero value is F.
type Grade uint8

// Grades in ascending order of quality.
const (
	F Grade = iota
	D
	C
	B
	A
)

var gradeNames = [...]string{F: "F", D: "D", C: "C", B: "B", A: "A"}

// All returns every grade from best to worst.
func All() []Grade {
	return []Grade{A, B, C, D, F}
}

func (g Grade) String() string {
	if int(g) < len(gradeNames) {
		return gradeNames[g]
	}

	return fmt.Sprintf("Grade(%d)", uint8(g))
}

// Score returns the ISO numeric grade: A=4.0 down to F=0.0.
func (g Grade) Score() float64 {
	return float64(g)
}

// Passes reports whether g is at least as good as threshold.
func (g Grade) Passes(threshold Grade) bool {
	return g >= threshold
}

// ParseGrade converts a letter into a Grade.
func ParseGrade(s string) (Grade, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))

	for i, name := range gradeNames {
		if name == norm {
			return Grade(i), nil //nolint:gosec // index bounded by gradeNames.
		}
	}

	return F, fmt.Errorf("%w: %q", ErrUnknownGrade, s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	parsed, err := ParseGrade(string(text))
	if err != nil {
		return err
	}

	*g = parsed

	return nil
}

// Bands holds the inclusive lower composite bound of each passing letter.
// Anything below D is F.
type Bands struct {
	A float64 `mapstructure:"a" json:"a" yaml:"a"`
	B float64 `mapstructure:"b" json:"b" yaml:"b"`
	C float64 `mapstructure:"c" json:"c" yaml:"c"`
	D float64 `mapstructure:"d" json:"d" yaml:"d"`
}

// Default band lower bounds.
const (
	DefaultBandA = 0.85
	DefaultBandB = 0.70
	DefaultBandC = 0.55
	DefaultBandD = 0.40
)

// DefaultBands returns the stock banding.
func DefaultBands() Bands {
	return Bands{A: DefaultBandA, B: DefaultBandB, C: DefaultBandC, D: DefaultBandD}
}

// Validate checks that the bounds lie in (0, 1] and strictly decrease from A to D.
func (b Bands) Validate() error {
	bounds := []float64{b.A, b.B, b.C, b.D}

	for i, v := range bounds {
		if math.IsNaN(v) || v <= 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v outside (0, 1]", ErrInvalidBands, All()[i], v)
		}

		if i > 0 && v >= bounds[i-1] {
			return fmt.Errorf("%w: %s=%v not below %s=%v", ErrInvalidBands, All()[i], v, All()[i-1], bounds[i-1])
		}
	}

	return nil
}

// Result is the outcome of grading one set of metrics.
type Result struct {
	Grade     Grade   `json:"grade"`
	Composite float64 `json:"composite"`
	Score     float64 `json:"score"`
}

// Engine grades metrics against a fixed banding. It is immutable and safe for
// concurrent use.
type Engine struct {
	bands Bands
}

// NewEngine creates an engine with validated bands.
func NewEngine(bands Bands) (*Engine, error) {
	err := bands.Validate()
	if err != nil {
		return nil, err
	}

	return &Engine{bands: bands}, nil
}

// Default returns an engine with the stock banding.
func Default() *Engine {
	return &Engine{bands: DefaultBands()}
}

// Bands returns the banding in effect.
func (e *Engine) Bands() Bands {
	return e.bands
}

// Grade computes the composite of m and maps it to a letter.
// Metrics outside [0, 1] or NaN are rejected with ErrInvalidMetric, never clamped.
func (e *Engine) Grade(m quality.Metrics) (Result, error) {
	values := []float64{m.Blur, m.Contrast, m.EdgeIntegrity}
	names := []string{quality.MetricBlur, quality.MetricContrast, quality.MetricEdgeIntegrity}

	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Result{}, fmt.Errorf("%w: %s=%v outside [0, 1]", ErrInvalidMetric, names[i], v)
		}
	}

	composite := stats.Min(values)
	g := e.band(composite)

	return Result{Grade: g, Composite: composite, Score: g.Score()}, nil
}

// Failed is the result assigned to detections that could not be graded.
func Failed() Result {
	return Result{Grade: F, Composite: 0, Score: F.Score()}
}

func (e *Engine) band(composite float64) Grade {
	switch {
	case composite >= e.bands.A:
		return A
	case composite >= e.bands.B:
		return B
	case composite >= e.bands.C:
		return C
	case composite >= e.bands.D:
		return D
	default:
		return F
	}
}
