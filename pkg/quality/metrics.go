package quality

import (
	"github.com/Sumatoshi-tech/proscan/pkg/alg/stats"
	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/metrics"
)

// Metric names registered by the analyzer.
const (
	MetricBlur          = "blur"
	MetricContrast      = "contrast"
	MetricEdgeIntegrity = "edge_integrity"
)

const (
	metricType = "quality"

	// edgeSegmentsPerSide is how many border segments are inspected on each side.
	edgeSegmentsPerSide = 8

	// minEdgeStep is the smallest black-to-white span that can carry an edge.
	minEdgeStep = 16

	// referenceQuantile picks the black and white reference levels from the
	// histogram tails, so isolated noisy pixels do not set them.
	referenceQuantile = 0.02

	// idealEdgeWidth is the 10-90% rise of a one-pixel step.
	idealEdgeWidth = 0.8

	// edgeWidthScale is the extra rise width, in pixels, that halves the sharpness score.
	edgeWidthScale = 2.4

	// maxScanLines caps the rows and the columns sampled for edges.
	maxScanLines = 64

	// edgeReach lets a transition that starts inside a border segment finish outside it.
	edgeReach = 4
)

// levels are the luminance references of one region, derived from a single histogram.
type levels struct {
	// black and white are the robust extremes of the region.
	black, white float64
	// dark and light are the means of the two Otsu populations.
	dark, light float64
	ok          bool
}

func newLevels(pix []uint8) levels {
	hist := stats.NewHistogram8(pix)

	threshold := hist.Otsu()
	if threshold < 0 {
		return levels{}
	}

	dark, _ := hist.MeanRange(0, threshold)
	light, _ := hist.MeanRange(threshold+1, 255)

	return levels{
		black: float64(hist.Quantile(referenceQuantile)),
		white: float64(hist.Quantile(1 - referenceQuantile)),
		dark:  dark,
		light: light,
		ok:    true,
	}
}

// span is the symbol contrast in luminance units.
func (lv levels) span() float64 {
	return lv.white - lv.black
}

// at returns the luminance frac of the way from black to white.
func (lv levels) at(frac float64) float64 {
	return lv.black + frac*lv.span()
}

// edged reports whether the region has enough contrast to hold edges at all.
func (lv levels) edged() bool {
	return lv.ok && lv.span() >= minEdgeStep
}

// modulation is the separation of the dark and light populations relative to
// the symbol contrast.
func (lv levels) modulation() float64 {
	if !lv.edged() {
		return 0
	}

	return stats.Clamp((lv.light-lv.dark)/lv.span(), 0, 1)
}

// scanline is one row or column of a region.
type scanline struct {
	region   frame.Region
	x, y     int
	dx, dy   int
	from, to int
}

func (s scanline) at(i int) float64 {
	return float64(s.region.At(s.x+i*s.dx, s.y+i*s.dy))
}

func row(r frame.Region, y, from, to int) scanline {
	return scanline{region: r, y: y, dx: 1, from: max(from, 0), to: min(to, r.Width)}
}

func column(r frame.Region, x, from, to int) scanline {
	return scanline{region: r, x: x, dy: 1, from: max(from, 0), to: min(to, r.Height)}
}

// hysteresis tracks dark and light states along a scanline. Values between the
// two bands keep the previous state, so a gradual edge is one transition and
// noise smaller than the band gap is none.
type hysteresis struct {
	low, high float64
}

func newHysteresis(lv levels) hysteresis {
	return hysteresis{low: lv.at(0.25), high: lv.at(0.75)}
}

// transitions calls fn for each dark/light transition on s. a is the last index
// of the old state and b the first index of the new one. fn returns false to stop.
func (h hysteresis) transitions(s scanline, fn func(a, b int, rising bool) bool) {
	state, last := 0, -1

	for i := s.from; i < s.to; i++ {
		v := s.at(i)

		switch {
		case v <= h.low:
			if state > 0 && !fn(last, i, false) {
				return
			}

			state, last = -1, i
		case v >= h.high:
			if state < 0 && !fn(last, i, true) {
				return
			}

			state, last = 1, i
		}
	}
}

// BlurMetric scores sharpness from the width of the symbol's edges.
//
// Rows and columns are scanned for dark/light transitions. For each one the
// distance between the 10% and 90% crossings of the black-to-white span is
// measured with sub-pixel interpolation. A one-pixel step scores 1; every
// further 2.4 pixels of median rise width lowers the score, and a region
// without edges scores 0.
type BlurMetric struct {
	metrics.MetricMeta
}

// NewBlurMetric creates the blur metric.
func NewBlurMetric() *BlurMetric {
	return &BlurMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        MetricBlur,
			MetricDisplayName: "Sharpness",
			MetricDescription: "Median 10-90% rise width of the module edges. 1 is a one-pixel step, " +
				"values near 0 mean the edges are smeared or the region is featureless.",
			MetricType: metricType,
		},
	}
}

// Compute returns the sharpness score in [0, 1].
func (m *BlurMetric) Compute(r frame.Region) float64 {
	score, _ := edgeSharpness(r, newLevels(r.Pix))

	return score
}

// edgeSharpness returns the sharpness score and the median edge rise width in pixels.
func edgeSharpness(r frame.Region, lv levels) (score, width float64) {
	if !lv.edged() {
		return 0, 0
	}

	h := newHysteresis(lv)
	lo, hi := lv.at(0.1), lv.at(0.9)

	var widths []float64

	measure := func(s scanline) {
		h.transitions(s, func(a, b int, rising bool) bool {
			widths = append(widths, riseWidth(s, a, b, lo, hi, rising))

			return true
		})
	}

	for _, y := range sampleLines(r.Height) {
		measure(row(r, y, 0, r.Width))
	}

	for _, x := range sampleLines(r.Width) {
		measure(column(r, x, 0, r.Height))
	}

	if len(widths) == 0 {
		return 0, 0
	}

	width = stats.Percentile(widths, 0.5)
	score = 1 / (1 + max(0, width-idealEdgeWidth)/edgeWidthScale)

	return stats.Clamp(score, 0, 1), width
}

// riseWidth measures the distance between the lo and hi crossings around the
// transition from index a to index b. An edge that never reaches lo or hi is
// measured to the extremes of its run.
func riseWidth(s scanline, a, b int, lo, hi float64, rising bool) float64 {
	// Normalize falling edges to rising ones.
	level := func(i int) float64 {
		if rising {
			return s.at(i)
		}

		return lo + hi - s.at(i)
	}

	// Each walk stops at a local extremum so it never runs into a neighbouring edge.
	start := a
	for start > s.from && level(start) > lo && level(start-1) <= level(start) {
		start--
	}

	startPos := float64(start)
	if v, next := level(start), level(start+1); v <= lo && next > v {
		startPos += (lo - v) / (next - v)
	}

	end := b
	for end < s.to-1 && level(end) < hi && level(end+1) >= level(end) {
		end++
	}

	endPos := float64(end)
	if v, prev := level(end), level(end-1); v >= hi && v > prev {
		endPos = float64(end-1) + (hi-prev)/(v-prev)
	}

	return max(0, endPos-startPos)
}

// sampleLines returns up to maxScanLines evenly spaced indices in [0, n).
func sampleLines(n int) []int {
	count := min(n, maxScanLines)
	lines := make([]int, 0, count)

	for i := range count {
		lines = append(lines, (2*i+1)*n/(2*count))
	}

	return lines
}

// ContrastMetric scores the separation of the dark and light populations.
type ContrastMetric struct {
	metrics.MetricMeta
}

// NewContrastMetric creates the contrast metric.
func NewContrastMetric() *ContrastMetric {
	return &ContrastMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        MetricContrast,
			MetricDisplayName: "Symbol Contrast",
			MetricDescription: "Difference between mean light and mean dark luminance after an Otsu split, " +
				"as a fraction of the full 8-bit range.",
			MetricType: metricType,
		},
	}
}

// Compute returns the contrast score in [0, 1].
func (m *ContrastMetric) Compute(r frame.Region) float64 {
	return contrastScore(newLevels(r.Pix))
}

func contrastScore(lv levels) float64 {
	if !lv.ok {
		return 0
	}

	return stats.Clamp((lv.light-lv.dark)/255, 0, 1)
}

// EdgeIntegrityMetric scores the fraction of the symbol border that still carries
// module edges.
//
// Each side is cut into segments; a segment is intact when a row or column
// through the strip just inside it swings from the dark band to the light band
// or back. The swing may span several pixels, so blur alone does not break a
// segment. Torn, scratched or unprinted sides lose their segments.
type EdgeIntegrityMetric struct {
	metrics.MetricMeta
}

// NewEdgeIntegrityMetric creates the edge-integrity metric.
func NewEdgeIntegrityMetric() *EdgeIntegrityMetric {
	return &EdgeIntegrityMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        MetricEdgeIntegrity,
			MetricDisplayName: "Edge Integrity",
			MetricDescription: "Fraction of border segments, eight per side, that contain a full " +
				"dark/light transition. Low values indicate damaged or partially printed labels.",
			MetricType: metricType,
		},
	}
}

// Compute returns the intact fraction in [0, 1].
func (m *EdgeIntegrityMetric) Compute(r frame.Region) float64 {
	return edgeIntegrity(r, newLevels(r.Pix))
}

func edgeIntegrity(r frame.Region, lv levels) float64 {
	if !lv.edged() {
		return 0
	}

	h := newHysteresis(lv)
	depth := min(max(2, min(r.Width, r.Height)/4), r.Width, r.Height)

	var intact, total int

	for _, side := range []frame.Rect{
		{X: 0, Y: 0, W: r.Width, H: depth},
		{X: 0, Y: r.Height - depth, W: r.Width, H: depth},
		{X: 0, Y: 0, W: depth, H: r.Height},
		{X: r.Width - depth, Y: 0, W: depth, H: r.Height},
	} {
		for _, seg := range splitSide(side) {
			total++

			if hasTransition(r, h, seg) {
				intact++
			}
		}
	}

	if total == 0 {
		return 0
	}

	return float64(intact) / float64(total)
}

// splitSide cuts a border strip into segments along its long axis.
func splitSide(side frame.Rect) []frame.Rect {
	horizontal := side.W >= side.H

	length := side.H
	if horizontal {
		length = side.W
	}

	n := min(edgeSegmentsPerSide, length)
	segs := make([]frame.Rect, 0, n)

	for i := range n {
		lo, hi := i*length/n, (i+1)*length/n

		if horizontal {
			segs = append(segs, frame.Rect{X: side.X + lo, Y: side.Y, W: hi - lo, H: side.H})
		} else {
			segs = append(segs, frame.Rect{X: side.X, Y: side.Y + lo, W: side.W, H: hi - lo})
		}
	}

	return segs
}

// hasTransition reports whether any row or column through seg holds a transition.
func hasTransition(r frame.Region, h hysteresis, seg frame.Rect) bool {
	found := false
	stop := func(int, int, bool) bool {
		found = true

		return false
	}

	for y := seg.Y; y < seg.Y+seg.H && !found; y++ {
		h.transitions(row(r, y, seg.X-edgeReach, seg.X+seg.W+edgeReach), stop)
	}

	for x := seg.X; x < seg.X+seg.W && !found; x++ {
		h.transitions(column(r, x, seg.Y-edgeReach, seg.Y+seg.H+edgeReach), stop)
	}

	return found
}
