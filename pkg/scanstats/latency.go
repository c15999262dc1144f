package scanstats

import (
	"time"

	"github.com/Sumatoshi-tech/proscan/pkg/alg/stats"
)

const (
	// latencyAlpha smooths the frame latency average over roughly the last 20 frames.
	latencyAlpha = 0.1

	// latencyWindow is how many recent frame latencies the percentile is taken over.
	latencyWindow = 256

	latencyPercentile = 0.95
)

// latencyTracker keeps a smoothed mean and a ring of recent frame latencies.
// Callers serialize access.
type latencyTracker struct {
	ema     *stats.EMA
	samples []float64
	next    int
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{
		ema:     stats.NewEMA(latencyAlpha),
		samples: make([]float64, 0, latencyWindow),
	}
}

func (l *latencyTracker) observe(d time.Duration) {
	v := float64(d)
	l.ema.Update(v)

	if len(l.samples) < latencyWindow {
		l.samples = append(l.samples, v)

		return
	}

	l.samples[l.next] = v
	l.next = (l.next + 1) % latencyWindow
}

func (l *latencyTracker) mean() time.Duration {
	return time.Duration(l.ema.Value())
}

// p95 returns the 95th percentile over the window, 0 before any frame.
func (l *latencyTracker) p95() time.Duration {
	return time.Duration(stats.Percentile(l.samples, latencyPercentile))
}
