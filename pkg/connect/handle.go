package connect

import (
	"fmt"

	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// Handle names one of the four connection points on a node's border.
type Handle string

const (
	HandleTop    Handle = "top"
	HandleRight  Handle = "right"
	HandleBottom Handle = "bottom"
	HandleLeft   Handle = "left"
)

// ParseHandle converts a wire name into a Handle.
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(s); h {
	case HandleTop, HandleRight, HandleBottom, HandleLeft:
		return h, nil
	case "":
		return HandleRight, nil
	}
	return "", fmt.Errorf("connect: unknown handle %q", s)
}

// Point returns the canvas position of handle h on n.
func (h Handle) Point(n *flow.Node) geom.Point {
	b := n.Bounds()
	switch h {
	case HandleTop:
		return geom.Pt(b.CenterX(), b.Top())
	case HandleBottom:
		return geom.Pt(b.CenterX(), b.Bottom())
	case HandleLeft:
		return geom.Pt(b.Left(), b.CenterY())
	default:
		return geom.Pt(b.Right(), b.CenterY())
	}
}

// HandleAt returns the handle of n within radius of p, if any.
func HandleAt(n *flow.Node, p geom.Point, radius float64) (Handle, bool) {
	for _, h := range []Handle{HandleTop, HandleRight, HandleBottom, HandleLeft} {
		if h.Point(n).Distance(p) <= radius {
			return h, true
		}
	}
	return "", false
}
