package decoder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

const (
	// boundsPadding grows the located outline on each side, as a fraction of its size.
	boundsPadding = 0.10

	// linearAspect is the minimum height of a linear symbol's region relative to its width.
	// Row scanners report a thin line, while grading needs the bars around it.
	linearAspect = 3

	// maxSearchDepth bounds how many times a frame is split around a hit.
	maxSearchDepth = 4

	// minSearchSide is the smallest sub-image side worth searching again.
	minSearchSide = 100
)

var formats = map[gozxing.BarcodeFormat]symbology.Symbology{
	gozxing.BarcodeFormat_EAN_8:       symbology.EAN8,
	gozxing.BarcodeFormat_EAN_13:      symbology.EAN13,
	gozxing.BarcodeFormat_UPC_A:       symbology.UPCA,
	gozxing.BarcodeFormat_UPC_E:       symbology.UPCE,
	gozxing.BarcodeFormat_CODE_39:     symbology.Code39,
	gozxing.BarcodeFormat_CODE_93:     symbology.Code93,
	gozxing.BarcodeFormat_CODE_128:    symbology.Code128,
	gozxing.BarcodeFormat_ITF:         symbology.ITF,
	gozxing.BarcodeFormat_CODABAR:     symbology.Codabar,
	gozxing.BarcodeFormat_QR_CODE:     symbology.QR,
	gozxing.BarcodeFormat_DATA_MATRIX: symbology.DataMatrix,
	gozxing.BarcodeFormat_AZTEC:       symbology.Aztec,
}

// Supported reports whether the ZXing decoder can read sym.
func Supported(sym symbology.Symbology) bool {
	for _, s := range formats {
		if s == sym {
			return true
		}
	}

	return false
}

// ZXing decodes frames with the gozxing port of the ZXing library. The port has
// no PDF417 reader, so PDF417 is not among the decodable symbologies.
// It is safe for concurrent use: readers are created per call.
type ZXing struct {
	enabled   map[symbology.Symbology]bool
	tryHarder bool
}

// ZXingOption configures a ZXing decoder.
type ZXingOption func(*ZXing)

// WithSymbologies restricts decoding to the given symbologies.
func WithSymbologies(syms ...symbology.Symbology) ZXingOption {
	return func(z *ZXing) {
		z.enabled = make(map[symbology.Symbology]bool, len(syms))

		for _, s := range syms {
			z.enabled[s] = true
		}
	}
}

// WithTryHarder trades speed for a more exhaustive search.
func WithTryHarder(on bool) ZXingOption {
	return func(z *ZXing) {
		z.tryHarder = on
	}
}

// NewZXing creates a decoder for every supported symbology.
func NewZXing(opts ...ZXingOption) *ZXing {
	z := &ZXing{}
	WithSymbologies(symbology.All()...)(z)

	for _, opt := range opts {
		opt(z)
	}

	return z
}

// Decode finds every symbol in f.
func (z *ZXing) Decode(ctx context.Context, f *frame.Frame) (dets []Detection, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	defer func() {
		if r := recover(); r != nil {
			dets, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrDecoderUnavailable, r)
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(f.Image())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecoderUnavailable, err)
	}

	hints := map[gozxing.DecodeHintType]any{}
	if z.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	results, err := z.decodeAll(bmp, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecoderUnavailable, err)
	}

	bounds := f.Bounds()
	dets = make([]Detection, 0, len(results))
	seen := make(map[symbology.Identity][]frame.Rect, len(results))

	for _, res := range results {
		det, ok := z.detection(res, bounds)
		if !ok || overlapsSeen(seen[det.Identity()], det.Bounds) {
			continue
		}

		seen[det.Identity()] = append(seen[det.Identity()], det.Bounds)
		dets = append(dets, det)
	}

	slices.SortStableFunc(dets, readingOrder)

	return dets, nil
}

func (z *ZXing) detection(res *gozxing.Result, bounds frame.Rect) (Detection, bool) {
	sym, ok := formats[res.GetBarcodeFormat()]
	if !ok || !z.enabled[sym] {
		return Detection{}, false
	}

	points := res.GetResultPoints()
	poly := make([]frame.Point, 0, len(points))

	for _, p := range points {
		if p == nil {
			continue
		}

		poly = append(poly, frame.Point{X: p.GetX(), Y: p.GetY()})
	}

	// Raw bytes are codewords for 2D formats, so the text is the stable payload.
	return Detection{
		Symbology: sym,
		Payload:   []byte(res.GetText()),
		Text:      res.GetText(),
		Polygon:   poly,
		Bounds:    regionFor(sym, poly, bounds),
	}, true
}

// regionFor derives the analysis rectangle from the decoder outline. Outlines that
// leave the frame are returned unchanged so analysis can reject them.
func regionFor(sym symbology.Symbology, poly []frame.Point, bounds frame.Rect) frame.Rect {
	rect := frame.BoundingRect(poly)
	if rect.Empty() || !rect.In(bounds) {
		return rect
	}

	if sym.Linear() && rect.H*linearAspect < rect.W {
		grow := rect.W/linearAspect - rect.H
		rect.Y -= grow / 2
		rect.H += grow
	}

	padX := int(float64(rect.W) * boundsPadding)
	padY := int(float64(rect.H) * boundsPadding)

	padded := frame.Rect{X: rect.X - padX, Y: rect.Y - padY, W: rect.W + 2*padX, H: rect.H + 2*padY}

	return padded.Intersect(bounds)
}

// overlapsSeen reports whether rect mostly covers a region already reported for the
// same identity. The multi reader can find one symbol again in a sub-image.
func overlapsSeen(seen []frame.Rect, rect frame.Rect) bool {
	for _, s := range seen {
		inter := s.Intersect(rect).Area()
		if inter*2 >= min(s.Area(), rect.Area()) {
			return true
		}
	}

	return false
}

// readingOrder sorts detections top to bottom, then left to right. Detections
// whose vertical extents overlap by half are on the same row.
func readingOrder(a, b Detection) int {
	ra, rb := a.Bounds, b.Bounds

	overlap := min(ra.Y+ra.H, rb.Y+rb.H) - max(ra.Y, rb.Y)
	if overlap*2 < min(ra.H, rb.H) && ra.Y != rb.Y {
		return ra.Y - rb.Y
	}

	return ra.X - rb.X
}

// decodeAll collects every symbol in bmp. QR symbols come from the dedicated
// multi reader; the remaining formats are found by splitting the image around
// each hit and searching the pieces.
func (z *ZXing) decodeAll(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]any) ([]*gozxing.Result, error) {
	var results []*gozxing.Result

	if z.enabled[symbology.QR] {
		qrs, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, hints)
		if err != nil && !isNoSymbol(err) {
			return nil, err
		}

		results = append(results, qrs...)
	}

	s := &splitSearch{reader: z.reader(), hints: hints}
	if err := s.search(bmp, 0, 0, 0); err != nil {
		return nil, err
	}

	return append(results, s.results...), nil
}

// splitSearch finds several symbols with a single-result reader. After a hit it
// searches the parts of the image above, below, left and right of the symbol.
type splitSearch struct {
	reader  gozxing.Reader
	hints   map[gozxing.DecodeHintType]any
	results []*gozxing.Result
}

func (s *splitSearch) search(bmp *gozxing.BinaryBitmap, offX, offY, depth int) error {
	if depth > maxSearchDepth {
		return nil
	}

	res, err := s.reader.Decode(bmp, s.hints)
	if err != nil {
		if isNoSymbol(err) {
			return nil
		}

		return err
	}

	points := res.GetResultPoints()
	s.results = append(s.results, translate(res, offX, offY))

	if len(points) == 0 || !bmp.IsCropSupported() {
		return nil
	}

	width, height := bmp.GetWidth(), bmp.GetHeight()
	minX, minY, maxX, maxY := pointExtent(points, width, height)

	parts := []struct {
		left, top, w, h int
	}{
		{0, 0, minX, height},
		{0, 0, width, minY},
		{maxX, 0, width - maxX, height},
		{0, maxY, width, height - maxY},
	}

	for _, p := range parts {
		if p.w < minSearchSide || p.h < minSearchSide {
			continue
		}

		sub, err := bmp.Crop(p.left, p.top, p.w, p.h)
		if err != nil {
			return err
		}

		if err := s.search(sub, offX+p.left, offY+p.top, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// pointExtent returns the integer bounding box of points clamped to the image.
func pointExtent(points []gozxing.ResultPoint, width, height int) (minX, minY, maxX, maxY int) {
	minX, minY = width, height

	for _, p := range points {
		if p == nil {
			continue
		}

		x, y := int(p.GetX()), int(p.GetY())
		minX, minY = min(minX, x), min(minY, y)
		maxX, maxY = max(maxX, x), max(maxY, y)
	}

	return max(minX, 0), max(minY, 0), min(maxX, width), min(maxY, height)
}

// translate moves the result points of res from a sub-image into frame coordinates.
func translate(res *gozxing.Result, offX, offY int) *gozxing.Result {
	if offX == 0 && offY == 0 {
		return res
	}

	points := make([]gozxing.ResultPoint, 0, len(res.GetResultPoints()))

	for _, p := range res.GetResultPoints() {
		if p == nil {
			continue
		}

		points = append(points, gozxing.NewResultPoint(p.GetX()+float64(offX), p.GetY()+float64(offY)))
	}

	moved := gozxing.NewResult(res.GetText(), res.GetRawBytes(), points, res.GetBarcodeFormat())
	moved.PutAllMetadata(res.GetResultMetadata())

	return moved
}

// isNoSymbol reports whether err only means that nothing decodable was found.
func isNoSymbol(err error) bool {
	var readerErr gozxing.ReaderException

	return errors.As(err, &readerErr)
}

// reader builds the composite reader for the enabled symbologies other than QR,
// which decodeAll reads with the multi reader.
func (z *ZXing) reader() gozxing.Reader {
	var readers []gozxing.Reader

	add := func(sym symbology.Symbology, r gozxing.Reader) {
		if z.enabled[sym] {
			readers = append(readers, r)
		}
	}

	add(symbology.DataMatrix, datamatrix.NewDataMatrixReader())
	add(symbology.Aztec, aztec.NewAztecReader())
	// UPC-A is a subset of EAN-13 and must be tried first to keep its own label.
	add(symbology.UPCA, oned.NewUPCAReader())
	add(symbology.EAN13, oned.NewEAN13Reader())
	add(symbology.EAN8, oned.NewEAN8Reader())
	add(symbology.UPCE, oned.NewUPCEReader())
	add(symbology.Code128, oned.NewCode128Reader())
	add(symbology.Code39, oned.NewCode39Reader())
	add(symbology.Code93, oned.NewCode93Reader())
	add(symbology.ITF, oned.NewITFReader())
	add(symbology.Codabar, oned.NewCodaBarReader())

	return &compositeReader{readers: readers}
}

// compositeReader tries each reader in turn and returns the first result.
type compositeReader struct {
	readers []gozxing.Reader
}

func (c *compositeReader) DecodeWithoutHints(img *gozxing.BinaryBitmap) (*gozxing.Result, error) {
	return c.Decode(img, nil)
}

func (c *compositeReader) Decode(img *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]any) (*gozxing.Result, error) {
	for _, r := range c.readers {
		res, err := r.Decode(img, hints)
		if err == nil && res != nil {
			return res, nil
		}
	}

	return nil, gozxing.NewNotFoundException()
}

func (c *compositeReader) Reset() {
	for _, r := range c.readers {
		r.Reset()
	}
}
