package render

import (
	"math"

	"github.com/recera/flowcanvas/pkg/connect"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// Pather receives path segments. *gg.Context satisfies it.
type Pather interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
}

// Anchors picks the facing handles of two nodes: left/right when they are
// further apart horizontally, top/bottom otherwise.
func Anchors(src, tgt *flow.Node) (connect.Handle, connect.Handle) {
	d := tgt.Bounds().Center().Sub(src.Bounds().Center())
	if math.Abs(d.X) >= math.Abs(d.Y) {
		if d.X >= 0 {
			return connect.HandleRight, connect.HandleLeft
		}
		return connect.HandleLeft, connect.HandleRight
	}
	if d.Y >= 0 {
		return connect.HandleBottom, connect.HandleTop
	}
	return connect.HandleTop, connect.HandleBottom
}

func horizontal(h connect.Handle) bool {
	return h == connect.HandleLeft || h == connect.HandleRight
}

// direction is the unit vector pointing out of a handle.
func direction(h connect.Handle) geom.Point {
	switch h {
	case connect.HandleTop:
		return geom.Pt(0, -1)
	case connect.HandleBottom:
		return geom.Pt(0, 1)
	case connect.HandleLeft:
		return geom.Pt(-1, 0)
	}
	return geom.Pt(1, 0)
}

// Route traces an edge of type t from a to b, leaving a through handle ha.
func Route(p Pather, t flow.EdgeType, a, b geom.Point, ha connect.Handle) {
	p.MoveTo(a.X, a.Y)
	switch t {
	case flow.EdgeLine:
		p.LineTo(b.X, b.Y)
	case flow.EdgeStep:
		for _, c := range elbows(a, b, ha) {
			p.LineTo(c.X, c.Y)
		}
		p.LineTo(b.X, b.Y)
	case flow.EdgeBezier:
		off := math.Max(a.Distance(b)/2, 25)
		d := direction(ha)
		c1 := a.Add(d.Mul(off))
		c2 := b.Sub(d.Mul(off))
		p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, b.X, b.Y)
	default:
		smoothStep(p, a, b, ha, 8)
	}
}

// elbows returns the two corners of an orthogonal route from a to b.
func elbows(a, b geom.Point, ha connect.Handle) [2]geom.Point {
	if horizontal(ha) {
		mx := (a.X + b.X) / 2
		return [2]geom.Point{geom.Pt(mx, a.Y), geom.Pt(mx, b.Y)}
	}
	my := (a.Y + b.Y) / 2
	return [2]geom.Point{geom.Pt(a.X, my), geom.Pt(b.X, my)}
}

func smoothStep(p Pather, a, b geom.Point, ha connect.Handle, radius float64) {
	corners := elbows(a, b, ha)
	pts := []geom.Point{a, corners[0], corners[1], b}
	for i := 1; i < len(pts)-1; i++ {
		prev, cur, next := pts[i-1], pts[i], pts[i+1]
		r := math.Min(radius, math.Min(prev.Distance(cur), cur.Distance(next))/2)
		if r <= 0 {
			p.LineTo(cur.X, cur.Y)
			continue
		}
		in := towards(cur, prev, r)
		out := towards(cur, next, r)
		p.LineTo(in.X, in.Y)
		p.QuadraticTo(cur.X, cur.Y, out.X, out.Y)
	}
	p.LineTo(b.X, b.Y)
}

// towards returns the point at distance d from p in the direction of q.
func towards(p, q geom.Point, d float64) geom.Point {
	l := p.Distance(q)
	if l == 0 {
		return p
	}
	return p.Add(q.Sub(p).Mul(d / l))
}
