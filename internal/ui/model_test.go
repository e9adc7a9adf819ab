package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/render"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	opts := canvas.DefaultOptions()
	opts.Nodes = []flow.Node{
		{ID: "A", Kind: flow.KindDefault, Position: geom.Pt(0, 0)},
		{ID: "B", Kind: flow.KindDefault, Position: geom.Pt(400, 0)},
	}
	m := NewModel(opts, render.Light())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 42})
	return next.(Model)
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWindowSizeSetsCanvasRect(t *testing.T) {
	m := newTestModel(t)
	want := geom.Rect{Width: 1000, Height: 800}
	if got := m.Canvas().Rect(); got != want {
		t.Errorf("rect = %+v, want %+v", got, want)
	}
}

func TestMouseConnect(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m,
		tea.MouseMsg{X: 19, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		tea.MouseMsg{X: 50, Y: 2, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		frameMsg(time.Now()),
	)
	if g := m.Canvas().Gesture(); g != canvas.GestureConnect {
		t.Fatalf("gesture = %s, want connect", g)
	}
	if !strings.Contains(m.View(), "connect") {
		t.Error("status line does not show the gesture")
	}

	m = update(t, m, tea.MouseMsg{X: 50, Y: 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	edges := m.Canvas().Edges()
	if len(edges) != 1 || edges[0].Source != "A" || edges[0].Target != "B" {
		t.Fatalf("edges = %+v", edges)
	}
	if got := m.Status(); got != "connected A → B" {
		t.Errorf("status = %q", got)
	}
}

func TestMouseDragAndWheel(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m,
		tea.MouseMsg{X: 10, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		tea.MouseMsg{X: 15, Y: 12, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		frameMsg(time.Now()),
		tea.MouseMsg{X: 15, Y: 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft},
	)
	a := flow.Find(m.Canvas().Nodes(), "A")
	if a.Position.Distance(geom.Pt(50, 200)) > 10 {
		t.Errorf("A moved to %+v, want near (50, 200)", a.Position)
	}
	if !strings.HasPrefix(m.Status(), "moved A") {
		t.Errorf("status = %q", m.Status())
	}

	m = update(t, m, tea.MouseMsg{X: 50, Y: 20, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if z := m.Canvas().Viewport().Zoom; z <= 1 {
		t.Errorf("zoom after wheel up = %v", z)
	}
}

func TestKeys(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, runes("+"))
	if z := m.Canvas().Viewport().Zoom; z < 1.19 || z > 1.21 {
		t.Errorf("zoom after + = %v", z)
	}
	m = update(t, m, runes("0"))
	if v := m.Canvas().Viewport(); v != geom.DefaultViewport {
		t.Errorf("viewport after reset = %+v", v)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if v := m.Canvas().Viewport(); v.X != panStep {
		t.Errorf("viewport after left = %+v", v)
	}
	m = update(t, m, runes("e"))
	if m.b.edgeType != flow.EdgeStep {
		t.Errorf("edge type = %s", m.b.edgeType)
	}
	m = update(t, m, runes("s"))
	if m.b.snap.Enabled {
		t.Error("snap still enabled after toggle")
	}
	m = update(t, m, runes("f"))
	vis := geom.VisibleRect(m.Canvas().Viewport(), m.Canvas().Rect())
	if !vis.ContainsRect(geom.Rect{X: 0, Y: 0, Width: 600, Height: 100}) {
		t.Errorf("fit view %+v does not show the board", vis)
	}

	m = update(t, m, runes("?"))
	if !m.help.ShowAll {
		t.Error("help not expanded")
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestViewDrawsBoard(t *testing.T) {
	m := newTestModel(t)
	if got := NewModel(canvas.DefaultOptions(), render.Dark()).View(); got != "loading board..." {
		t.Errorf("unsized view = %q", got)
	}
	view := m.View()
	lines := strings.Split(view, "\n")
	if len(lines) < 40 {
		t.Fatalf("view has %d lines", len(lines))
	}
	if !strings.Contains(lines[2], "A") || !strings.Contains(lines[2], "B") {
		t.Errorf("node labels missing from row 2: %q", lines[2])
	}
	if !strings.Contains(view, "zoom 100%") {
		t.Error("status line missing")
	}
}

func TestDrawEdgesAndOverlays(t *testing.T) {
	s := canvas.Snapshot{
		Nodes: []flow.Node{
			{ID: "A", Kind: flow.KindDefault, Position: geom.Pt(0, 0)},
			{ID: "B", Kind: flow.KindDefault, Position: geom.Pt(400, 0)},
		},
		Edges:        []flow.Edge{flow.NewEdge("A", "B", flow.EdgeLine)},
		Viewport:     geom.DefaultViewport,
		SelectionBox: &geom.Rect{X: 0, Y: 200, Width: 300, Height: 100},
	}
	out := draw(s, render.Light(), 80, 20)
	if !strings.Contains(out, "·") || !strings.Contains(out, "●") {
		t.Error("edge not drawn")
	}
	if !strings.Contains(out, "╌") {
		t.Error("selection box not drawn")
	}
}

func TestLineClipsToGrid(t *testing.T) {
	g := newGrid(10, 5)
	g.line(-1_000_000, 2, 1_000_000, 2, '-', "")
	for x := 0; x < 10; x++ {
		if r := g.cells[2*g.w+x].r; r != '-' {
			t.Errorf("cell (%d, 2) = %q, want '-'", x, r)
		}
	}

	g = newGrid(10, 5)
	g.line(-50, -50, -10, -10, '*', "")
	g.line(20, 0, 40, 4, '*', "")
	for i, c := range g.cells {
		if c.r != ' ' {
			t.Fatalf("cell %d drawn for a segment outside the grid", i)
		}
	}

	g = newGrid(10, 5)
	g.line(-5, -5, 4, 4, '\\', "")
	for i := 0; i < 5; i++ {
		if r := g.cells[i*g.w+i].r; r != '\\' {
			t.Errorf("cell (%d, %d) = %q on the diagonal", i, i, r)
		}
	}
}

func TestDrawFarAwayNode(t *testing.T) {
	s := canvas.Snapshot{
		Nodes: []flow.Node{
			{ID: "A", Kind: flow.KindDefault, Position: geom.Pt(0, 0)},
			{ID: "Z", Kind: flow.KindDefault, Position: geom.Pt(5e7, 5e7)},
		},
		Edges:    []flow.Edge{flow.NewEdge("A", "Z", flow.EdgeLine)},
		Viewport: geom.DefaultViewport,
	}
	out := draw(s, render.Light(), 40, 10)
	if !strings.Contains(out, "A") {
		t.Error("visible node missing")
	}
}
