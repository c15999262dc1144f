// Package quality scores the print and image quality of a detected symbol.
//
// An Analyzer evaluates three normalized metrics over the luminance region of a
// detection: sharpness, contrast and edge integrity. Each metric is a
// self-contained metrics.Metric so it can be listed and documented alongside
// its computation. The analyzer shares one histogram between the three and
// samples a bounded number of scanlines, so analysis is pure and linear in
// region area.
package quality

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/metrics"
)

// ErrInvalidRegion is returned for degenerate regions or regions outside the frame.
var ErrInvalidRegion = errors.New("invalid region")

// MinRegionSide is the smallest width or height that can be analyzed.
const MinRegionSide = 3

// Metrics holds the normalized quality scores of one detection. All values lie in [0, 1],
// higher is better.
type Metrics struct {
	Blur          float64 `json:"blur"`
	Contrast      float64 `json:"contrast"`
	EdgeIntegrity float64 `json:"edge_integrity"`
}

// Measurements holds the raw figures behind the normalized metrics, in the units
// a print-quality report uses.
type Measurements struct {
	// Width and Height are the analyzed region size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`
	// EdgeWidth is the median 10-90% rise width of the module edges in pixels.
	EdgeWidth float64 `json:"edge_width"`
	// SymbolContrast is the white minus black reference luminance, 0 to 255.
	SymbolContrast float64 `json:"symbol_contrast"`
	// Modulation is the dark/light population separation over the symbol contrast.
	Modulation float64 `json:"modulation"`
}

// Report is the full result of analyzing one region.
type Report struct {
	Metrics      Metrics      `json:"metrics"`
	Measurements Measurements `json:"measurements"`
	Defect       Defect       `json:"defect"`
}

// Analyzer computes quality reports. It holds no mutable state and is safe for
// concurrent use.
type Analyzer struct {
	registry   *metrics.Registry[frame.Region, float64]
	thresholds Thresholds
}

// NewAnalyzer creates an analyzer that classifies defects with the given thresholds.
func NewAnalyzer(thresholds Thresholds) (*Analyzer, error) {
	err := thresholds.Validate()
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry[frame.Region, float64]()
	registry.Register(NewBlurMetric())
	registry.Register(NewContrastMetric())
	registry.Register(NewEdgeIntegrityMetric())

	return &Analyzer{registry: registry, thresholds: thresholds}, nil
}

// Registry exposes the metric definitions used by the analyzer.
func (a *Analyzer) Registry() *metrics.Registry[frame.Region, float64] {
	return a.registry
}

// Thresholds returns the defect thresholds in effect.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// Analyze extracts rect from the frame and analyzes it.
func (a *Analyzer) Analyze(f *frame.Frame, rect frame.Rect) (Report, error) {
	if rect.W < MinRegionSide || rect.H < MinRegionSide {
		return Report{Defect: DefectInvalid}, fmt.Errorf("%w: %v smaller than %dx%d",
			ErrInvalidRegion, rect, MinRegionSide, MinRegionSide)
	}

	region, err := f.Region(rect)
	if err != nil {
		return Report{Defect: DefectInvalid}, fmt.Errorf("%w: %w", ErrInvalidRegion, err)
	}

	return a.AnalyzeRegion(region)
}

// AnalyzeRegion analyzes an already extracted luminance region.
func (a *Analyzer) AnalyzeRegion(r frame.Region) (Report, error) {
	if r.Width < MinRegionSide || r.Height < MinRegionSide || len(r.Pix) < r.Area() {
		return Report{Defect: DefectInvalid}, fmt.Errorf("%w: %dx%d region", ErrInvalidRegion, r.Width, r.Height)
	}

	lv := newLevels(r.Pix)
	blur, edgeWidth := edgeSharpness(r, lv)

	m := Metrics{
		Blur:          blur,
		Contrast:      contrastScore(lv),
		EdgeIntegrity: edgeIntegrity(r, lv),
	}

	var symbolContrast float64
	if lv.ok {
		symbolContrast = lv.span()
	}

	return Report{
		Metrics: m,
		Measurements: Measurements{
			Width:          r.Width,
			Height:         r.Height,
			EdgeWidth:      edgeWidth,
			SymbolContrast: symbolContrast,
			Modulation:     lv.modulation(),
		},
		Defect: Classify(m, a.thresholds),
	}, nil
}

// Valid reports whether every metric is a number in [0, 1].
func (m Metrics) Valid() bool {
	for _, v := range []float64{m.Blur, m.Contrast, m.EdgeIntegrity} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}

	return true
}
