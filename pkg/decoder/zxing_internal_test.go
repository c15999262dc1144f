package decoder

import (
	"slices"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

func TestRegionFor(t *testing.T) {
	t.Parallel()

	bounds := frame.Rect{X: 0, Y: 0, W: 200, H: 200}

	tests := []struct {
		name string
		sym  symbology.Symbology
		poly []frame.Point
		want frame.Rect
	}{
		{
			name: "matrix_padded",
			sym:  symbology.QR,
			poly: []frame.Point{{X: 50, Y: 50}, {X: 150, Y: 50}, {X: 50, Y: 150}},
			want: frame.Rect{X: 40, Y: 40, W: 120, H: 120},
		},
		{
			name: "padding_clipped_to_frame",
			sym:  symbology.QR,
			poly: []frame.Point{{X: 0, Y: 0}, {X: 100, Y: 100}},
			want: frame.Rect{X: 0, Y: 0, W: 110, H: 110},
		},
		{
			name: "linear_grown_vertically",
			sym:  symbology.Code128,
			poly: []frame.Point{{X: 40, Y: 100}, {X: 160, Y: 100}},
			want: frame.Rect{X: 28, Y: 77, W: 144, H: 48},
		},
		{
			name: "outside_frame_untouched",
			sym:  symbology.QR,
			poly: []frame.Point{{X: 150, Y: 150}, {X: 250, Y: 250}},
			want: frame.Rect{X: 150, Y: 150, W: 100, H: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, regionFor(tt.sym, tt.poly, bounds))
		})
	}
}

func TestReadingOrder(t *testing.T) {
	t.Parallel()

	dets := []Detection{
		{Text: "bottom", Bounds: frame.Rect{X: 0, Y: 200, W: 50, H: 50}},
		{Text: "top-right", Bounds: frame.Rect{X: 300, Y: 12, W: 50, H: 50}},
		{Text: "top-left", Bounds: frame.Rect{X: 10, Y: 10, W: 50, H: 50}},
	}

	slices.SortStableFunc(dets, readingOrder)

	texts := make([]string, 0, len(dets))
	for _, d := range dets {
		texts = append(texts, d.Text)
	}

	assert.Equal(t, []string{"top-left", "top-right", "bottom"}, texts)
}

func TestOverlapsSeen(t *testing.T) {
	t.Parallel()

	seen := []frame.Rect{{X: 0, Y: 0, W: 100, H: 100}}

	assert.True(t, overlapsSeen(seen, frame.Rect{X: 10, Y: 10, W: 80, H: 80}))
	assert.False(t, overlapsSeen(seen, frame.Rect{X: 90, Y: 90, W: 100, H: 100}))
	assert.False(t, overlapsSeen(nil, frame.Rect{X: 0, Y: 0, W: 1, H: 1}))
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	res := gozxing.NewResult("x", nil, []gozxing.ResultPoint{
		gozxing.NewResultPoint(1, 2), nil, gozxing.NewResultPoint(10, 20),
	}, gozxing.BarcodeFormat_CODE_39)

	assert.Same(t, res, translate(res, 0, 0))

	moved := translate(res, 100, 50)
	require.Len(t, moved.GetResultPoints(), 2)
	assert.InDelta(t, 101.0, moved.GetResultPoints()[0].GetX(), 1e-9)
	assert.InDelta(t, 52.0, moved.GetResultPoints()[0].GetY(), 1e-9)
	assert.InDelta(t, 70.0, moved.GetResultPoints()[1].GetY(), 1e-9)
	assert.Equal(t, "x", moved.GetText())
	assert.Equal(t, gozxing.BarcodeFormat_CODE_39, moved.GetBarcodeFormat())
}

func TestPointExtent(t *testing.T) {
	t.Parallel()

	points := []gozxing.ResultPoint{
		gozxing.NewResultPoint(40, 120), gozxing.NewResultPoint(260, 118), gozxing.NewResultPoint(-3, 500),
	}

	minX, minY, maxX, maxY := pointExtent(points, 300, 200)
	assert.Equal(t, []int{0, 118, 260, 200}, []int{minX, minY, maxX, maxY})
}

func TestIsNoSymbol(t *testing.T) {
	t.Parallel()

	assert.True(t, isNoSymbol(gozxing.NewNotFoundException()))
	assert.True(t, isNoSymbol(gozxing.NewChecksumException()))
	assert.False(t, isNoSymbol(assert.AnError))
}
