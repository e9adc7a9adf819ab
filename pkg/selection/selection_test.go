package selection

import (
	"reflect"
	"testing"
	"time"

	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

func node(id string, x, y, w, h float64) flow.Node {
	return flow.Node{
		ID:       id,
		Position: geom.Pt(x, y),
		Style:    flow.Style{Width: flow.Float(w), Height: flow.Float(h)},
	}
}

func TestIntersecting(t *testing.T) {
	nodes := []flow.Node{
		node("inside", 20, 20, 50, 50),
		node("partial", 180, 180, 100, 100),
		node("miss", 400, 400, 50, 50),
		node("touching", 200, 0, 50, 50),
	}
	locked := node("locked", 10, 10, 20, 20)
	locked.Selectable = flow.Bool(false)
	nodes = append(nodes, locked)

	got := Intersecting(nodes, geom.Rect{X: 0, Y: 0, Width: 200, Height: 200})
	want := []string{"inside", "partial"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Intersecting = %v, want %v", got, want)
	}
}

func TestRubberBand(t *testing.T) {
	nodes := []flow.Node{
		node("A", 0, 0, 100, 100),
		node("B", 300, 0, 100, 100),
	}
	origin := geom.Rect{X: 50, Y: 20, Width: 800, Height: 600}
	v := geom.Viewport{X: 10, Y: 0, Zoom: 2}

	var r RubberBand
	if r.Begin(geom.Pt(0, 0), false, true) {
		t.Error("band started without shift")
	}
	if r.Begin(geom.Pt(0, 0), true, false) {
		t.Error("band started over a node")
	}
	if !r.Begin(geom.Pt(500, 300), true, true) {
		t.Fatal("band did not start")
	}
	// drag up-left; the canvas box is (40,0)-(220,140)
	rect, _ := r.Move(geom.Pt(140, 20))
	if rect != (geom.Rect{X: 140, Y: 20, Width: 360, Height: 280}) {
		t.Errorf("screen rect = %+v", rect)
	}
	ids, ok := r.End(nodes, v, origin)
	if !ok || !reflect.DeepEqual(ids, []string{"A"}) {
		t.Errorf("End = %v, %v", ids, ok)
	}
	if r.Active() {
		t.Error("band should be inactive after End")
	}

	sel := Apply(nodes, ids)
	if !sel[0].Selected || sel[1].Selected || nodes[0].Selected {
		t.Errorf("Apply selected %v; input mutated=%v", flow.SelectedIDs(sel), nodes[0].Selected)
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTouch() (*Touch, *clock) {
	c := &clock{t: time.Unix(0, 0)}
	return NewTouch(TouchOptions{Now: c.now}), c
}

func TestTouchTap(t *testing.T) {
	tr, clk := newTouch()
	tr.Start(1, geom.Pt(100, 100))
	tr.Move(1, geom.Pt(104, 103))
	clk.t = clk.t.Add(200 * time.Millisecond)

	g, ok := tr.End(1)
	if !ok || g.Kind != GestureTap || g.Point != geom.Pt(100, 100) {
		t.Errorf("End = %+v, %v; want tap", g, ok)
	}

	tr.Start(1, geom.Pt(0, 0))
	clk.t = clk.t.Add(400 * time.Millisecond)
	if g, ok := tr.End(1); ok {
		t.Errorf("slow release produced %v", g.Kind)
	}
}

func TestTouchLongPress(t *testing.T) {
	tr, clk := newTouch()
	tr.Start(1, geom.Pt(10, 10))
	clk.t = clk.t.Add(700 * time.Millisecond)
	if _, ok := tr.Tick(); ok {
		t.Fatal("long press fired early")
	}
	clk.t = clk.t.Add(60 * time.Millisecond)
	g, ok := tr.Tick()
	if !ok || g.Kind != GestureLongPress {
		t.Fatalf("Tick = %+v, %v", g, ok)
	}
	if _, ok := tr.Tick(); ok {
		t.Error("long press fired twice")
	}
	if g, ok := tr.End(1); ok {
		t.Errorf("release after long press produced %v", g.Kind)
	}
}

func TestTouchPan(t *testing.T) {
	tr, clk := newTouch()
	tr.Start(1, geom.Pt(0, 0))
	if _, ok := tr.Move(1, geom.Pt(6, 6)); ok {
		t.Error("movement within tolerance should not pan")
	}
	g, ok := tr.Move(1, geom.Pt(12, 0))
	if !ok || g.Kind != GesturePan || g.Delta != geom.Pt(12, 0) {
		t.Fatalf("Move = %+v, %v", g, ok)
	}
	g, _ = tr.Move(1, geom.Pt(20, 5))
	if g.Delta != geom.Pt(8, 5) {
		t.Errorf("second pan delta = %v", g.Delta)
	}

	clk.t = clk.t.Add(time.Second)
	if _, ok := tr.Tick(); ok {
		t.Error("a pan must not turn into a long press")
	}
	if _, ok := tr.End(1); ok {
		t.Error("ending a pan is not a tap")
	}
}

func TestTouchPinch(t *testing.T) {
	tr, clk := newTouch()
	tr.Start(1, geom.Pt(100, 100))
	g, ok := tr.Start(2, geom.Pt(200, 100))
	if !ok || g.Kind != GesturePinchStart || g.Point != geom.Pt(150, 100) {
		t.Fatalf("Start(2) = %+v, %v", g, ok)
	}
	if tr.Mode() != ModePinch {
		t.Errorf("mode = %v", tr.Mode())
	}

	g, ok = tr.Move(2, geom.Pt(300, 100))
	if !ok || g.Kind != GesturePinch || g.Scale != 2 || g.Point != geom.Pt(200, 100) {
		t.Errorf("Move = %+v", g)
	}

	clk.t = clk.t.Add(time.Second)
	if _, ok := tr.Tick(); ok {
		t.Error("the second finger cancels the long press")
	}

	tr.End(2)
	if tr.Mode() != ModePan || tr.Count() != 1 {
		t.Errorf("after lifting one finger: mode=%v count=%d", tr.Mode(), tr.Count())
	}
	g, _ = tr.Move(1, geom.Pt(110, 100))
	if g.Kind != GesturePan || g.Delta != geom.Pt(10, 0) {
		t.Errorf("remaining finger = %+v", g)
	}
	tr.End(1)
	if tr.Mode() != ModeNone || tr.Count() != 0 {
		t.Error("tracker should reset once all fingers lift")
	}
}
