// Package render rasterizes a canvas snapshot with gg.
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/snap"
)

// Scene is a snapshot plus the output size in pixels.
type Scene struct {
	Width  int
	Height int
	canvas.Snapshot
}

// NewScene sizes a scene to the snapshot's canvas rectangle, falling back to
// 800x600.
func NewScene(s canvas.Snapshot) Scene {
	w, h := int(math.Round(s.Rect.Width)), int(math.Round(s.Rect.Height))
	if w <= 0 || h <= 0 {
		w, h = 800, 600
	}
	return Scene{Width: w, Height: h, Snapshot: s}
}

// PNG draws s with theme t and writes it as PNG.
func PNG(w io.Writer, s Scene, t Theme) error {
	dc, err := Draw(s, t)
	if err != nil {
		return err
	}
	defer dc.Close()
	if err := dc.FlushGPU(); err != nil {
		return fmt.Errorf("render: flush: %w", err)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// Draw rasterizes s into a new context. Geometry is mapped through the
// viewport matrix so stroke widths stay in screen pixels.
func Draw(s Scene, t Theme) (*gg.Context, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", s.Width, s.Height)
	}
	v := s.Viewport
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	r := &painter{
		dc:    gg.NewContext(s.Width, s.Height),
		m:     v.Matrix(),
		zoom:  v.Zoom,
		theme: t,
	}
	r.dc.ClearWithColor(gg.Hex(t.Background))
	r.grid(v, float64(s.Width), float64(s.Height))

	for i := range s.Nodes {
		if s.Nodes[i].IsFrame() {
			r.node(&s.Nodes[i])
		}
	}
	for i := range s.Edges {
		r.edge(s.Nodes, &s.Edges[i])
	}
	for i := range s.Nodes {
		if !s.Nodes[i].IsFrame() {
			r.node(&s.Nodes[i])
		}
	}
	for _, g := range s.Guides {
		r.guide(g, float64(s.Width), float64(s.Height))
	}
	if sg := s.Suggestion; sg != nil {
		r.dashed(sg.From, sg.To, t.Suggestion)
	}
	if pv := s.Connection; pv != nil {
		r.line(pv.From, pv.To, pv.Color(), 2)
	}
	if box := s.SelectionBox; box != nil {
		r.selection(*box)
	}
	debug.Logger().Debug("[Render] scene", "nodes", len(s.Nodes), "edges", len(s.Edges), "w", s.Width, "h", s.Height)
	return r.dc, nil
}

type painter struct {
	dc    *gg.Context
	m     gg.Matrix
	zoom  float64
	theme Theme
}

func (r *painter) pt(p geom.Point) geom.Point { return geom.Apply(r.m, p) }

func (r *painter) rect(b geom.Rect) geom.Rect {
	tl := r.pt(b.Origin())
	return geom.Rect{X: tl.X, Y: tl.Y, Width: b.Width * r.zoom, Height: b.Height * r.zoom}
}

func (r *painter) grid(v geom.Viewport, w, h float64) {
	step := r.theme.GridSize * v.Zoom
	if step < 4 {
		return
	}
	r.dc.SetHexColor(r.theme.Grid)
	for x := math.Mod(v.X, step); x < w; x += step {
		for y := math.Mod(v.Y, step); y < h; y += step {
			r.dc.DrawCircle(x, y, 1)
		}
	}
	_ = r.dc.Fill()
}

func (r *painter) node(n *flow.Node) {
	b := r.rect(n.Bounds())
	fill, stroke := r.theme.NodeFill, r.theme.NodeStroke
	radius := 6 * r.zoom
	switch n.Kind {
	case flow.KindFrame:
		fill, stroke, radius = r.theme.FrameFill, r.theme.FrameStroke, 2*r.zoom
	case flow.KindSticky:
		fill = r.theme.StickyFill
	case flow.KindShape:
		radius = math.Min(b.Width, b.Height) / 2
	}
	if n.Data.Color != "" {
		fill = n.Data.Color
	}
	width := 1.0
	if n.Selected {
		stroke, width = r.theme.Selected, 2
	}

	r.dc.DrawRoundedRectangle(b.X, b.Y, b.Width, b.Height, radius)
	r.dc.SetHexColor(fill)
	_ = r.dc.FillPreserve()
	r.dc.SetHexColor(stroke)
	r.dc.SetLineWidth(width)
	if n.IsFrame() {
		r.dc.SetDash(6, 4)
	}
	_ = r.dc.Stroke()
	r.dc.ClearDash()
}

func (r *painter) edge(nodes []flow.Node, e *flow.Edge) {
	src, tgt := flow.Find(nodes, e.Source), flow.Find(nodes, e.Target)
	if src == nil || tgt == nil {
		return
	}
	hs, ht := Anchors(src, tgt)
	a, b := r.pt(hs.Point(src)), r.pt(ht.Point(tgt))

	color := r.theme.Edge
	if e.Data.Color != "" {
		color = e.Data.Color
	}
	width := 1.5
	if e.Data.StrokeWidth > 0 {
		width = e.Data.StrokeWidth
	}
	Route(r.dc, e.Type, a, b, hs)
	r.dc.SetHexColor(color)
	r.dc.SetLineWidth(width)
	if e.Animated {
		r.dc.SetDash(5, 5)
	}
	_ = r.dc.Stroke()
	r.dc.ClearDash()
}

func (r *painter) guide(g snap.Guide, w, h float64) {
	r.dc.SetHexColor(r.theme.Guide)
	r.dc.SetLineWidth(1)
	r.dc.SetDash(4, 4)
	p := r.pt(geom.Pt(g.Position, g.Position))
	if g.Type == snap.Vertical {
		r.dc.DrawLine(p.X, 0, p.X, h)
	} else {
		r.dc.DrawLine(0, p.Y, w, p.Y)
	}
	_ = r.dc.Stroke()
	r.dc.ClearDash()
}

func (r *painter) line(from, to geom.Point, color string, width float64) {
	a, b := r.pt(from), r.pt(to)
	r.dc.SetHexColor(color)
	r.dc.SetLineWidth(width)
	r.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	_ = r.dc.Stroke()
}

func (r *painter) dashed(from, to geom.Point, color string) {
	r.dc.SetDash(6, 6)
	r.line(from, to, color, 2)
	r.dc.ClearDash()
}

func (r *painter) selection(box geom.Rect) {
	b := r.rect(box)
	r.dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
	r.dc.SetHexColor(r.theme.SelectionFill)
	_ = r.dc.FillPreserve()
	r.dc.SetHexColor(r.theme.SelectionStroke)
	r.dc.SetLineWidth(1)
	_ = r.dc.Stroke()
}
