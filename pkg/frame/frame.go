// Package frame defines the immutable pixel buffer handed to the inspection
// engine for one analysis pass, plus the geometry types shared by decoders and
// analyzers.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"
)

// Sentinel frame errors.
var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrOutOfBounds  = errors.New("region outside frame bounds")
	ErrEmptyRegion  = errors.New("empty region")
)

// PixelFormat identifies the memory layout of a frame's pixels.
type PixelFormat uint8

// Supported pixel formats. All are 8 bits per channel.
const (
	Gray8 PixelFormat = iota
	RGB24
	RGBA32
)

// BytesPerPixel returns the pixel size in bytes.
func (pf PixelFormat) BytesPerPixel() int {
	switch pf {
	case Gray8:
		return 1
	case RGB24:
		return 3
	case RGBA32:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (pf PixelFormat) String() string {
	switch pf {
	case Gray8:
		return "gray8"
	case RGB24:
		return "rgb24"
	case RGBA32:
		return "rgba32"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(pf))
	}
}

// Frame is an immutable pixel buffer with a capture timestamp.
// The backing buffer is copied on construction and never exposed for writing.
type Frame struct {
	pix      []byte
	width    int
	height   int
	stride   int
	format   PixelFormat
	captured time.Time
	seq      uint64
}

// New creates a frame from a tightly packed pixel buffer. The buffer is copied.
func New(width, height int, format PixelFormat, pix []byte, captured time.Time) (*Frame, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: unsupported pixel format %s", ErrInvalidFrame, format)
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}

	stride := width * bpp
	if len(pix) < stride*height {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, need %d", ErrInvalidFrame, len(pix), stride*height)
	}

	buf := make([]byte, stride*height)
	copy(buf, pix)

	return &Frame{
		pix:      buf,
		width:    width,
		height:   height,
		stride:   stride,
		format:   format,
		captured: captured,
	}, nil
}

// FromImage converts any image into a Gray8 frame.
func FromImage(img image.Image, captured time.Time) (*Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidFrame)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}

	pix := make([]byte, width*height)

	if gray, ok := img.(*image.Gray); ok {
		for y := range height {
			off := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(pix[y*width:], gray.Pix[off:off+width])
		}
	} else {
		for y := range height {
			for x := range width {
				g, _ := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
				pix[y*width+x] = g.Y
			}
		}
	}

	return &Frame{
		pix:      pix,
		width:    width,
		height:   height,
		stride:   width,
		format:   Gray8,
		captured: captured,
	}, nil
}

// WithSequence returns a shallow copy of the frame tagged with a sequence number.
// Pixels are shared; both frames remain immutable.
func (f *Frame) WithSequence(seq uint64) *Frame {
	cp := *f
	cp.seq = seq

	return &cp
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Format returns the pixel format.
func (f *Frame) Format() PixelFormat { return f.format }

// Captured returns the capture timestamp.
func (f *Frame) Captured() time.Time { return f.captured }

// Sequence returns the sequence number assigned by the frame source.
func (f *Frame) Sequence() uint64 { return f.seq }

// Bounds returns the full frame rectangle.
func (f *Frame) Bounds() Rect {
	return Rect{X: 0, Y: 0, W: f.width, H: f.height}
}

// LumaAt returns the 8-bit luminance at (x, y) using BT.601 weights.
// Coordinates must be inside the frame.
func (f *Frame) LumaAt(x, y int) uint8 {
	off := y*f.stride + x*f.format.BytesPerPixel()

	switch f.format {
	case RGB24, RGBA32:
		r, g, b := uint32(f.pix[off]), uint32(f.pix[off+1]), uint32(f.pix[off+2])

		return uint8((299*r + 587*g + 114*b + 500) / 1000) //nolint:gosec // bounded by 255.
	default:
		return f.pix[off]
	}
}

// Region extracts the luminance of rect into a standalone region.
func (f *Frame) Region(rect Rect) (Region, error) {
	if rect.Empty() {
		return Region{}, fmt.Errorf("%w: %v", ErrEmptyRegion, rect)
	}

	if !rect.In(f.Bounds()) {
		return Region{}, fmt.Errorf("%w: %v not in %v", ErrOutOfBounds, rect, f.Bounds())
	}

	pix := make([]uint8, rect.W*rect.H)

	for y := range rect.H {
		for x := range rect.W {
			pix[y*rect.W+x] = f.LumaAt(rect.X+x, rect.Y+y)
		}
	}

	return Region{Width: rect.W, Height: rect.H, Pix: pix}, nil
}

// Image returns a read-only image.Image view of the frame for decoders.
func (f *Frame) Image() image.Image {
	return frameImage{f: f}
}

// frameImage adapts a Frame to image.Image without copying.
type frameImage struct {
	f *Frame
}

func (fi frameImage) ColorModel() color.Model {
	if fi.f.format == Gray8 {
		return color.GrayModel
	}

	return color.RGBAModel
}

func (fi frameImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, fi.f.width, fi.f.height)
}

func (fi frameImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= fi.f.width || y >= fi.f.height {
		return color.Gray{}
	}

	off := y*fi.f.stride + x*fi.f.format.BytesPerPixel()

	switch fi.f.format {
	case RGB24:
		return color.RGBA{R: fi.f.pix[off], G: fi.f.pix[off+1], B: fi.f.pix[off+2], A: 0xff}
	case RGBA32:
		return color.RGBA{R: fi.f.pix[off], G: fi.f.pix[off+1], B: fi.f.pix[off+2], A: fi.f.pix[off+3]}
	default:
		return color.Gray{Y: fi.f.pix[off]}
	}
}
