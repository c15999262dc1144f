package pipeline

import (
	"context"
	"sync"

	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
)

// FrameResult is the outcome of one frame processed by Run.
type FrameResult struct {
	Frame   *frame.Frame
	Records []scan.Record
	Err     error
}

type job struct {
	seq   uint64
	frame *frame.Frame
}

type analyzed struct {
	seq uint64
	a   analysis
}

// Run processes frames from in with the configured number of analysis workers
// and returns one result per frame, in arrival order.
//
// Analysis runs in parallel; deduplication and statistics are committed by a
// single sequencer goroutine in arrival order, so the output is identical to
// calling Process on each frame in turn. The returned channel is closed once in
// is closed and drained, or ctx is cancelled. Frames still in flight at
// cancellation are abandoned without touching the store.
func (p *Pipeline) Run(ctx context.Context, in <-chan *frame.Frame) <-chan FrameResult {
	out := make(chan FrameResult, p.buffer)
	jobs := make(chan job, p.buffer)
	done := make(chan analyzed, p.buffer)

	go dispatch(ctx, in, jobs)

	var wg sync.WaitGroup

	for range p.workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range jobs {
				done <- analyzed{seq: j.seq, a: p.analyze(ctx, j.frame)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	go p.sequence(ctx, done, out)

	return out
}

// dispatch numbers incoming frames in arrival order and hands them to workers.
func dispatch(ctx context.Context, in <-chan *frame.Frame, jobs chan<- job) {
	defer close(jobs)

	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-in:
			if !ok {
				return
			}

			select {
			case jobs <- job{seq: seq, frame: f}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}
}

// sequence reorders analyses by arrival number and commits them one by one.
// It keeps draining done after cancellation so workers never block.
func (p *Pipeline) sequence(ctx context.Context, done <-chan analyzed, out chan<- FrameResult) {
	defer close(out)

	reorder := make(map[uint64]analysis)

	var next uint64

	for d := range done {
		if ctx.Err() != nil {
			d.a.span.End()

			continue
		}

		reorder[d.seq] = d.a

		for {
			a, ok := reorder[next]
			if !ok {
				break
			}

			delete(reorder, next)
			next++

			records, err := p.commit(ctx, a)

			select {
			case out <- FrameResult{Frame: a.frame, Records: records, Err: err}:
			case <-ctx.Done():
			}
		}
	}

	for _, a := range reorder {
		a.span.End()
	}
}
