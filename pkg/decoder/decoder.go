// Package decoder defines the symbol decoding capability consumed by the
// inspection pipeline and provides a ZXing-backed implementation.
package decoder

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

// ErrDecoderUnavailable is returned when the decoding backend fails for a whole frame.
var ErrDecoderUnavailable = errors.New("decoder unavailable")

// ErrUnsupportedSymbology is returned when a known symbology has no decoding backend.
var ErrUnsupportedSymbology = errors.New("symbology not supported by decoder")

// Detection is one symbol located and decoded in a frame.
type Detection struct {
	// Symbology is the encoding the symbol was decoded as.
	Symbology symbology.Symbology
	// Payload holds the decoded bytes.
	Payload []byte
	// Text is the payload as reported by the decoder, for display.
	Text string
	// Polygon is the ordered outline reported by the decoder, in frame coordinates.
	Polygon []frame.Point
	// Bounds is the region of the frame that quality analysis should inspect.
	Bounds frame.Rect
}

// Identity returns the deduplication key of the detection.
func (d Detection) Identity() symbology.Identity {
	return symbology.NewIdentity(d.Symbology, d.Payload)
}

// Decoder locates and decodes every symbol in a frame.
//
// Decode returns detections in a stable order. A frame without symbols yields an
// empty slice and a nil error. Backend failures wrap ErrDecoderUnavailable.
type Decoder interface {
	Decode(ctx context.Context, f *frame.Frame) ([]Detection, error)
}

// Func adapts a plain function to the Decoder interface.
type Func func(ctx context.Context, f *frame.Frame) ([]Detection, error)

// Decode calls fn(ctx, f).
func (fn Func) Decode(ctx context.Context, f *frame.Frame) ([]Detection, error) {
	return fn(ctx, f)
}

// Static returns a decoder that reports the same detections for every frame.
func Static(dets ...Detection) Decoder {
	return Func(func(ctx context.Context, _ *frame.Frame) ([]Detection, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := make([]Detection, len(dets))
		copy(out, dets)

		return out, nil
	})
}
