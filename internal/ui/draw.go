package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/connect"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/render"
	"github.com/recera/flowcanvas/pkg/snap"
)

type cell struct {
	r     rune
	color string
}

// grid is a character raster addressed in terminal cells.
type grid struct {
	w, h  int
	cells []cell
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([]cell, w*h)}
	for i := range g.cells {
		g.cells[i].r = ' '
	}
	return g
}

func (g *grid) set(x, y int, r rune, color string) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.cells[y*g.w+x] = cell{r, color}
}

func (g *grid) text(x, y int, s, color string) {
	for i, r := range []rune(s) {
		g.set(x+i, y, r, color)
	}
}

// line plots a Bresenham line, clipped to the grid first.
func (g *grid) line(x0, y0, x1, y1 int, r rune, color string) {
	x0, y0, x1, y1, ok := g.clip(x0, y0, x1, y1)
	if !ok {
		return
	}
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		g.set(x0, y0, r, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// clip cuts the segment to the grid with Liang-Barsky. ok is false when
// nothing of it is visible.
func (g *grid) clip(x0, y0, x1, y1 int) (int, int, int, int, bool) {
	if g.w <= 0 || g.h <= 0 {
		return 0, 0, 0, 0, false
	}
	fx0, fy0 := float64(x0), float64(y0)
	dx, dy := float64(x1-x0), float64(y1-y0)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, fx0},
		{dx, float64(g.w-1) - fx0},
		{-dy, fy0},
		{dy, float64(g.h-1) - fy0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = max(t0, t)
		} else {
			t1 = min(t1, t)
		}
		if t0 > t1 {
			return 0, 0, 0, 0, false
		}
	}
	round := func(v float64) int { return int(math.Round(v)) }
	return round(fx0 + t0*dx), round(fy0 + t0*dy), round(fx0 + t1*dx), round(fy0 + t1*dy), true
}

func (g *grid) box(x0, y0, x1, y1 int, dashed bool, color string) {
	h, v := '─', '│'
	if dashed {
		h, v = '╌', '╎'
	}
	for x := max(x0+1, 0); x < min(x1, g.w); x++ {
		g.set(x, y0, h, color)
		g.set(x, y1, h, color)
	}
	for y := max(y0+1, 0); y < min(y1, g.h); y++ {
		g.set(x0, y, v, color)
		g.set(x1, y, v, color)
	}
	g.set(x0, y0, '┌', color)
	g.set(x1, y0, '┐', color)
	g.set(x0, y1, '└', color)
	g.set(x1, y1, '┘', color)
}

func (g *grid) String() string {
	var sb strings.Builder
	for y := 0; y < g.h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		row := g.cells[y*g.w : (y+1)*g.w]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].color == row[i].color {
				run.WriteRune(row[j].r)
				j++
			}
			if row[i].color == "" {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(row[i].color)).Render(run.String()))
			}
			i = j
		}
	}
	return sb.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// toCell maps a screen pixel point to a terminal cell.
func toCell(p geom.Point) (int, int) {
	return int(math.Floor(p.X / cellW)), int(math.Floor(p.Y / cellH))
}

// draw rasterizes a snapshot into w x h cells using the theme's stroke colors.
func draw(s canvas.Snapshot, t render.Theme, w, h int) string {
	g := newGrid(w, h)
	screen := func(p geom.Point) (int, int) {
		return toCell(geom.CanvasToScreen(p, s.Viewport, geom.Rect{}))
	}

	for i := range s.Nodes {
		if s.Nodes[i].IsFrame() {
			drawNode(g, &s.Nodes[i], t, screen)
		}
	}
	var heads [][2]int
	for _, e := range s.Edges {
		src, tgt := flow.Find(s.Nodes, e.Source), flow.Find(s.Nodes, e.Target)
		if src == nil || tgt == nil {
			continue
		}
		hs, ht := render.Anchors(src, tgt)
		x0, y0 := screen(hs.Point(src))
		x1, y1 := screen(ht.Point(tgt))
		route(g, e.Type, x0, y0, x1, y1, hs == connect.HandleLeft || hs == connect.HandleRight, t.Edge)
		heads = append(heads, [2]int{x1, y1})
	}
	for i := range s.Nodes {
		if !s.Nodes[i].IsFrame() {
			drawNode(g, &s.Nodes[i], t, screen)
		}
	}
	for _, hd := range heads {
		g.set(hd[0], hd[1], '●', t.Edge)
	}
	for _, gd := range s.Guides {
		x, y := screen(geom.Pt(gd.Position, gd.Position))
		if gd.Type == snap.Vertical {
			g.line(x, 0, x, h-1, '┊', t.Guide)
		} else {
			g.line(0, y, w-1, y, '┄', t.Guide)
		}
	}
	if sg := s.Suggestion; sg != nil {
		x0, y0 := screen(sg.From)
		x1, y1 := screen(sg.To)
		g.line(x0, y0, x1, y1, '∙', t.Suggestion)
	}
	if pv := s.Connection; pv != nil {
		x0, y0 := screen(pv.From)
		x1, y1 := screen(pv.To)
		g.line(x0, y0, x1, y1, '•', pv.Color())
	}
	if b := s.SelectionBox; b != nil {
		x0, y0 := screen(b.Origin())
		x1, y1 := screen(geom.Pt(b.Right(), b.Bottom()))
		g.box(x0, y0, x1, y1, true, t.SelectionStroke)
	}
	return g.String()
}

func drawNode(g *grid, n *flow.Node, t render.Theme, screen func(geom.Point) (int, int)) {
	b := n.Bounds()
	x0, y0 := screen(b.Origin())
	x1, y1 := screen(geom.Pt(b.Right(), b.Bottom()))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	color := t.NodeStroke
	if n.IsFrame() {
		color = t.FrameStroke
	}
	if n.Selected {
		color = t.Selected
	}
	if !n.IsFrame() {
		// nodes occlude the edges beneath them
		for y := max(y0+1, 0); y < min(y1, g.h); y++ {
			for x := max(x0+1, 0); x < min(x1, g.w); x++ {
				g.set(x, y, ' ', "")
			}
		}
	}
	g.box(x0, y0, x1, y1, n.IsFrame(), color)

	label := n.Data.Label
	if label == "" {
		label = n.ID
	}
	if room := x1 - x0 - 1; room > 0 {
		if r := []rune(label); len(r) > room {
			label = string(r[:room])
		}
		ly := y0 + 1
		if !n.IsFrame() {
			ly = (y0 + y1) / 2
		}
		if ly < y1 {
			g.text(x0+1, ly, label, color)
		}
	}
}

// route draws an edge: straight for line and bezier, an elbow for the step
// styles.
func route(g *grid, t flow.EdgeType, x0, y0, x1, y1 int, horizontal bool, color string) {
	if t != flow.EdgeStep && t != flow.EdgeSmoothStep {
		g.line(x0, y0, x1, y1, '·', color)
		return
	}
	if horizontal {
		mx := (x0 + x1) / 2
		g.line(x0, y0, mx, y0, '─', color)
		g.line(mx, y0, mx, y1, '│', color)
		g.line(mx, y1, x1, y1, '─', color)
		return
	}
	my := (y0 + y1) / 2
	g.line(x0, y0, x0, my, '│', color)
	g.line(x0, my, x1, my, '─', color)
	g.line(x1, my, x1, y1, '│', color)
}
