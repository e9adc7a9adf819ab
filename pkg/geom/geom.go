// Package geom holds the coordinate types shared by the canvas engine and the
// transforms between screen pixels and canvas-logical space.
package geom

import (
	"math"

	"github.com/gogpu/gg"
)

// Point is a position in either screen or canvas space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point        { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point        { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Div(s float64) Point      { return Point{p.X / s, p.Y / s} }
func (p Point) Mul(s float64) Point      { return Point{p.X * s, p.Y * s} }
func (p Point) Distance(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Midpoint returns the point halfway between p and q.
func (p Point) Midpoint(q Point) Point {
	return Point{(p.X + q.X) / 2, (p.Y + q.Y) / 2}
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// RectFromPoints builds the normalized rectangle spanning two corners in any order.
func RectFromPoints(a, b Point) Rect {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (r Rect) Left() float64    { return r.X }
func (r Rect) Right() float64   { return r.X + r.Width }
func (r Rect) Top() float64     { return r.Y }
func (r Rect) Bottom() float64  { return r.Y + r.Height }
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }
func (r Rect) Center() Point    { return Point{r.CenterX(), r.CenterY()} }
func (r Rect) Origin() Point    { return Point{r.X, r.Y} }
func (r Rect) Size() Size       { return Size{r.Width, r.Height} }
func (r Rect) Area() float64    { return r.Width * r.Height }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// ContainsRect reports whether o lies fully inside r, edges included.
func (r Rect) ContainsRect(o Rect) bool {
	return o.Left() >= r.Left() && o.Right() <= r.Right() &&
		o.Top() >= r.Top() && o.Bottom() <= r.Bottom()
}

// Intersects reports whether r and o overlap. Rectangles that only touch
// along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.Left() < o.Right() && r.Right() > o.Left() &&
		r.Top() < o.Bottom() && r.Bottom() > o.Top()
}

// Distance returns the gap between r and o, zero when they overlap or touch.
func (r Rect) Distance(o Rect) float64 {
	dx := math.Max(0, math.Max(o.Left()-r.Right(), r.Left()-o.Right()))
	dy := math.Max(0, math.Max(o.Top()-r.Bottom(), r.Top()-o.Bottom()))
	return math.Hypot(dx, dy)
}

// Translate returns r moved by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Inset shrinks r by m on every side; a negative m grows it.
func (r Rect) Inset(m float64) Rect {
	return Rect{X: r.X + m, Y: r.Y + m, Width: r.Width - 2*m, Height: r.Height - 2*m}
}

// Viewport is the pan/zoom transform mapping canvas-logical coordinates to
// screen pixels: screen = origin + (x, y) + canvas*zoom.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// DefaultViewport is the identity transform.
var DefaultViewport = Viewport{Zoom: 1}

// ScreenToCanvas converts a screen-pixel point into canvas space. origin is the
// on-screen rectangle of the canvas element.
func ScreenToCanvas(p Point, v Viewport, origin Rect) Point {
	return Point{
		X: (p.X - origin.X - v.X) / v.Zoom,
		Y: (p.Y - origin.Y - v.Y) / v.Zoom,
	}
}

// CanvasToScreen is the inverse of ScreenToCanvas.
func CanvasToScreen(p Point, v Viewport, origin Rect) Point {
	return Point{
		X: p.X*v.Zoom + v.X + origin.X,
		Y: p.Y*v.Zoom + v.Y + origin.Y,
	}
}

// ScreenDelta converts a screen-space displacement into a canvas-space one.
func ScreenDelta(d Point, v Viewport) Point {
	return d.Div(v.Zoom)
}

// VisibleRect returns the canvas-space rectangle currently shown in a canvas
// element of the given on-screen rectangle.
func VisibleRect(v Viewport, origin Rect) Rect {
	tl := ScreenToCanvas(Point{origin.Left(), origin.Top()}, v, origin)
	br := ScreenToCanvas(Point{origin.Right(), origin.Bottom()}, v, origin)
	return RectFromPoints(tl, br)
}

// Matrix returns the canvas→screen affine transform relative to the canvas
// element's own top-left corner.
func (v Viewport) Matrix() gg.Matrix {
	return gg.Translate(v.X, v.Y).Multiply(gg.Scale(v.Zoom, v.Zoom))
}

// Apply maps a canvas point through m.
func Apply(m gg.Matrix, p Point) Point {
	q := m.TransformPoint(gg.Pt(p.X, p.Y))
	return Point{q.X, q.Y}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
