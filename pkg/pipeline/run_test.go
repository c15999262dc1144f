package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/decoder"
	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/pipeline"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

// jitterDecoder reports the same symbol for every frame but takes longer on
// even frames, so parallel workers finish out of order.
func jitterDecoder() decoder.Decoder {
	return decoder.Func(func(ctx context.Context, f *frame.Frame) ([]decoder.Detection, error) {
		if f.Sequence()%2 == 0 {
			select {
			case <-time.After(2 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return []decoder.Detection{detection(symbology.QR, "LINE-7", symbolRegion)}, nil
	})
}

func feed(t *testing.T, n int) <-chan *frame.Frame {
	t.Helper()

	in := make(chan *frame.Frame, n)
	for i := range n {
		in <- stripes(t, uint64(i), time.Duration(i)*time.Second)
	}

	close(in)

	return in
}

func TestRun_MatchesSequentialProcessing(t *testing.T) {
	t.Parallel()

	const frames = 30

	sequential := newPipeline(t, jitterDecoder())

	var want []bool

	for f := range feed(t, frames) {
		records, err := sequential.Process(context.Background(), f)
		require.NoError(t, err)
		want = append(want, admittedFlags(records)...)
	}

	parallel := newPipeline(t, jitterDecoder(), pipeline.WithWorkers(4))

	var (
		got  []bool
		seqs []uint64
	)

	for res := range parallel.Run(context.Background(), feed(t, frames)) {
		require.NoError(t, res.Err)

		seqs = append(seqs, res.Frame.Sequence())
		got = append(got, admittedFlags(res.Records)...)
	}

	require.Len(t, seqs, frames)

	for i, s := range seqs {
		assert.Equal(t, uint64(i), s)
	}

	assert.Equal(t, want, got)
	assert.Equal(t, sequential.Stats().Snapshot().Admitted, parallel.Stats().Snapshot().Admitted)

	// One symbol seen every second with a 3s window is admitted every third frame.
	for i, admitted := range got {
		assert.Equal(t, i%3 == 0, admitted, "frame %d", i)
	}
}

func TestRun_DecoderFailureDoesNotStopStream(t *testing.T) {
	t.Parallel()

	dec := decoder.Func(func(_ context.Context, f *frame.Frame) ([]decoder.Detection, error) {
		if f.Sequence() == 1 {
			return nil, errCameraLost
		}

		return []decoder.Detection{}, nil
	})

	p := newPipeline(t, dec, pipeline.WithWorkers(2))

	var errs []error

	for res := range p.Run(context.Background(), feed(t, 3)) {
		errs = append(errs, res.Err)
	}

	require.Len(t, errs, 3)
	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], decoder.ErrDecoderUnavailable)
	require.NoError(t, errs[2])
	assert.Equal(t, 1, p.Stats().Snapshot().Skipped)
}

func TestRun_CancelClosesOutput(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan *frame.Frame)
	p := newPipeline(t, jitterDecoder(), pipeline.WithWorkers(3))
	out := p.Run(ctx, in)

	in <- stripes(t, 0, 0)

	res := <-out
	require.NoError(t, res.Err)
	require.Len(t, res.Records, 1)

	cancel()

	select {
	case _, ok := <-out:
		for ok {
			_, ok = <-out
		}
	case <-time.After(5 * time.Second):
		t.Fatal("output channel not closed after cancel")
	}

	assert.Equal(t, 1, p.Store().Len())
}

func TestRun_OnAdmittedFollowsArrivalOrder(t *testing.T) {
	t.Parallel()

	var seen []uint64

	p := newPipeline(t, jitterDecoder(),
		pipeline.WithWorkers(4),
		pipeline.WithWindow(0),
		pipeline.WithOnAdmitted(func(r scan.Record) { seen = append(seen, r.Frame) }),
	)

	for res := range p.Run(context.Background(), feed(t, 12)) {
		require.NoError(t, res.Err)
	}

	require.Len(t, seen, 12)

	for i, s := range seen {
		assert.Equal(t, uint64(i), s)
	}
}
