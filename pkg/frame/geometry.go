package frame

import (
	"fmt"
	"math"
)

// Point is a sub-pixel position in frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned integer rectangle in frame coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns W*H, or 0 for a degenerate rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}

	return r.W * r.H
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// In reports whether r lies entirely inside outer.
func (r Rect) In(outer Rect) bool {
	return r.X >= outer.X && r.Y >= outer.Y &&
		r.X+r.W <= outer.X+outer.W && r.Y+r.H <= outer.Y+outer.H
}

// Intersect returns the overlap of r and other (empty when disjoint).
func (r Rect) Intersect(other Rect) Rect {
	x0, y0 := max(r.X, other.X), max(r.Y, other.Y)
	x1, y1 := min(r.X+r.W, other.X+other.W), min(r.Y+r.H, other.Y+other.H)

	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}

	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// BoundingRect returns the smallest integer rectangle enclosing the polygon.
func BoundingRect(poly []Point) Rect {
	if len(poly) == 0 {
		return Rect{}
	}

	minX, minY := poly[0].X, poly[0].Y
	maxX, maxY := minX, minY

	for _, p := range poly[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	x1, y1 := int(math.Ceil(maxX)), int(math.Ceil(maxY))

	return Rect{X: x0, Y: y0, W: max(x1-x0, 1), H: max(y1-y0, 1)}
}

// Region is a row-major 8-bit luminance patch cut out of a frame.
type Region struct {
	Pix    []uint8
	Width  int
	Height int
}

// At returns the luminance at (x, y) relative to the region origin.
func (r Region) At(x, y int) uint8 {
	return r.Pix[y*r.Width+x]
}

// Area returns Width*Height.
func (r Region) Area() int {
	return r.Width * r.Height
}
