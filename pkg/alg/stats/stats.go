// Package stats provides core statistical functions for numerical analysis.
// All standard deviation calculations use population stddev (÷n, not ÷(n−1)).
package stats

import (
	"cmp"
	"math"
	"slices"
)

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	count := len(values)
	if count == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(count))
}

// Percentile returns the p-th percentile of values using linear interpolation.
// p must be in [0, 1]. The input slice is not modified (a copy is sorted internally).
// Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	count := len(values)
	if count == 0 {
		return 0
	}

	sorted := make([]float64, count)
	copy(sorted, values)
	slices.Sort(sorted)

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Clamp restricts val to the range [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return max(lo, min(val, hi))
}

// Min returns the smallest element in values.
// Returns the zero value of T for an empty slice.
func Min[T cmp.Ordered](values []T) T {
	if len(values) == 0 {
		var zero T

		return zero
	}

	return slices.Min(values)
}

// Histogram8 counts the occurrences of every 8-bit intensity.
type Histogram8 [256]int

// NewHistogram8 builds the intensity histogram of pix.
func NewHistogram8(pix []uint8) Histogram8 {
	var h Histogram8

	for _, v := range pix {
		h[v]++
	}

	return h
}

// Total returns the number of samples in the histogram.
func (h *Histogram8) Total() int {
	var n int

	for _, c := range h {
		n += c
	}

	return n
}

// MeanRange returns the mean intensity of the samples in [lo, hi] and their count.
// Returns (0, 0) when the range holds no samples.
func (h *Histogram8) MeanRange(lo, hi int) (mean float64, count int) {
	var sum float64

	for v := max(lo, 0); v <= min(hi, len(h)-1); v++ {
		sum += float64(v) * float64(h[v])
		count += h[v]
	}

	if count == 0 {
		return 0, 0
	}

	return sum / float64(count), count
}

// Quantile returns the smallest intensity v such that at least q of the samples
// are <= v. Returns -1 for an empty histogram.
func (h *Histogram8) Quantile(q float64) int {
	total := h.Total()
	if total == 0 {
		return -1
	}

	need := max(1, int(math.Ceil(Clamp(q, 0, 1)*float64(total))))

	var seen int

	for v, c := range h {
		seen += c
		if seen >= need {
			return v
		}
	}

	return len(h) - 1
}

// Otsu returns the threshold t that maximizes between-class variance when the
// samples are split into [0, t] and (t, 255]. Returns -1 when the histogram
// holds fewer than two distinct intensities.
func (h *Histogram8) Otsu() int {
	total := h.Total()
	if total == 0 {
		return -1
	}

	var sumAll float64

	for v, c := range h {
		sumAll += float64(v) * float64(c)
	}

	var (
		sumBelow   float64
		countBelow int
		best       = -1
		bestVar    float64
	)

	for t := range len(h) - 1 {
		countBelow += h[t]
		if countBelow == 0 {
			continue
		}

		countAbove := total - countBelow
		if countAbove == 0 {
			break
		}

		sumBelow += float64(t) * float64(h[t])

		meanBelow := sumBelow / float64(countBelow)
		meanAbove := (sumAll - sumBelow) / float64(countAbove)
		diff := meanBelow - meanAbove
		between := float64(countBelow) * float64(countAbove) * diff * diff

		if between > bestVar {
			bestVar = between
			best = t
		}
	}

	return best
}
