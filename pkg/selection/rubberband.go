// Package selection implements shift-drag rubber-band selection and the
// touch gesture classifier.
package selection

import (
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// RubberBand tracks a selection rectangle in screen space.
type RubberBand struct {
	active     bool
	start, end geom.Point
}

// Begin starts a band at screen point p. It only starts when shift is held
// and the pointer landed on empty background.
func (r *RubberBand) Begin(p geom.Point, shift, background bool) bool {
	if !shift || !background {
		return false
	}
	r.active = true
	r.start, r.end = p, p
	return true
}

func (r *RubberBand) Active() bool { return r.active }

// Move extends the band to p and returns the screen rectangle.
func (r *RubberBand) Move(p geom.Point) (geom.Rect, bool) {
	if !r.active {
		return geom.Rect{}, false
	}
	r.end = p
	return r.Rect(), true
}

// Rect is the current band in screen coordinates.
func (r *RubberBand) Rect() geom.Rect { return geom.RectFromPoints(r.start, r.end) }

// End finishes the band and returns the ids of the nodes it touches. Both
// corners are mapped through the viewport before testing.
func (r *RubberBand) End(nodes []flow.Node, v geom.Viewport, origin geom.Rect) ([]string, bool) {
	if !r.active {
		return nil, false
	}
	box := geom.RectFromPoints(
		geom.ScreenToCanvas(r.start, v, origin),
		geom.ScreenToCanvas(r.end, v, origin),
	)
	r.Cancel()
	ids := Intersecting(nodes, box)
	debug.Logger().Debug("[Selection] band", "x", box.X, "y", box.Y, "w", box.Width, "h", box.Height, "selected", len(ids))
	return ids, true
}

// Cancel drops the band.
func (r *RubberBand) Cancel() { *r = RubberBand{} }

// Intersecting returns the selectable nodes whose bounds overlap box.
func Intersecting(nodes []flow.Node, box geom.Rect) []string {
	ids := []string{}
	for i := range nodes {
		n := &nodes[i]
		if n.IsSelectable() && n.Bounds().Intersects(box) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Apply returns a copy of nodes in which exactly ids are selected.
func Apply(nodes []flow.Node, ids []string) []flow.Node {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := flow.CloneNodes(nodes)
	for i := range out {
		out[i].Selected = want[out[i].ID]
	}
	return out
}
