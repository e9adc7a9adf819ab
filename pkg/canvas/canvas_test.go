package canvas

import (
	"reflect"
	"testing"
	"time"

	"github.com/recera/flowcanvas/pkg/connect"
	"github.com/recera/flowcanvas/pkg/drag"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/snap"
	"github.com/recera/flowcanvas/pkg/viewport"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func node(id string, kind flow.NodeKind, x, y, w, h float64) flow.Node {
	return flow.Node{
		ID:       id,
		Kind:     kind,
		Position: geom.Pt(x, y),
		Style:    flow.Style{Width: flow.Float(w), Height: flow.Float(h)},
	}
}

// recorder collects every callback so tests can assert on them.
type recorder struct {
	nodes      [][]flow.Node
	edges      [][]flow.Edge
	connects   []flow.Edge
	drags      int
	dragStarts []string
	dragEnds   []string
	viewports  []geom.Viewport
	selections [][]string
	clicks     []string
	canvas     []geom.Point
	menus      []geom.Point
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnNodesChange:     func(n []flow.Node) { r.nodes = append(r.nodes, n) },
		OnEdgesChange:     func(e []flow.Edge) { r.edges = append(r.edges, e) },
		OnConnect:         func(e flow.Edge) { r.connects = append(r.connects, e) },
		OnNodeDragStart:   func(id string, _ geom.Point) { r.dragStarts = append(r.dragStarts, id) },
		OnNodeDrag:        func(string, geom.Point) { r.drags++ },
		OnNodeDragEnd:     func(id string, _ geom.Point) { r.dragEnds = append(r.dragEnds, id) },
		OnViewportChange:  func(v geom.Viewport) { r.viewports = append(r.viewports, v) },
		OnSelectionChange: func(ids []string) { r.selections = append(r.selections, ids) },
		OnNodeClick:       func(id string) { r.clicks = append(r.clicks, id) },
		OnCanvasClick:     func(p geom.Point) { r.canvas = append(r.canvas, p) },
		OnContextMenu:     func(p geom.Point) { r.menus = append(r.menus, p) },
	}
}

func newCanvas(t *testing.T, nodes []flow.Node, edges []flow.Edge, mutate func(*Options)) (*Canvas, *recorder, *clock) {
	t.Helper()
	rec := &recorder{}
	clk := &clock{t: time.Unix(0, 0)}
	opts := DefaultOptions()
	opts.Nodes = nodes
	opts.Edges = edges
	opts.Now = clk.now
	opts.Callbacks = rec.callbacks()
	if mutate != nil {
		mutate(&opts)
	}
	c := New(opts)
	c.SetRect(geom.Rect{Width: 1000, Height: 800})
	return c, rec, clk
}

func at(x, y float64) PointerEvent { return PointerEvent{Point: geom.Pt(x, y)} }

func pairAB() []flow.Node {
	return []flow.Node{
		node("A", flow.KindDefault, 0, 0, 200, 100),
		node("B", flow.KindDefault, 400, 0, 200, 100),
	}
}

func TestConnectFromHandle(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, nil)

	c.PointerDown(at(200, 50))
	if c.Gesture() != GestureConnect {
		t.Fatalf("gesture = %v, want connect", c.Gesture())
	}
	c.PointerMove(at(500, 50))
	c.Frame()
	s := c.Snapshot()
	if s.Connection == nil || s.Connection.Status != connect.StatusLegal || s.Connection.Target != "B" {
		t.Errorf("preview = %+v", s.Connection)
	}

	c.PointerUp(at(500, 50))
	if len(rec.connects) != 1 || rec.connects[0].Source != "A" || rec.connects[0].Target != "B" {
		t.Fatalf("connects = %+v", rec.connects)
	}
	if edges := c.Edges(); len(edges) != 1 || edges[0].Type != flow.EdgeSmoothStep {
		t.Errorf("edges = %+v", edges)
	}
	if len(rec.edges) != 1 {
		t.Errorf("OnEdgesChange called %d times", len(rec.edges))
	}
	if c.Snapshot().Connection != nil {
		t.Error("preview should be gone after the connection ends")
	}
}

func TestSelfConnectAndDuplicates(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, nil)

	c.PointerDown(at(200, 50))
	c.PointerUp(at(100, 50))
	if len(rec.connects) != 0 || len(c.Edges()) != 0 {
		t.Fatal("self connection created an edge")
	}

	for i := 0; i < 2; i++ {
		c.PointerDown(at(200, 50))
		c.PointerUp(at(500, 50))
	}
	c.PointerDown(at(400, 50))
	c.PointerUp(at(100, 50))
	if len(c.Edges()) != 1 || len(rec.connects) != 1 {
		t.Errorf("edges=%d connects=%d, want 1 and 1", len(c.Edges()), len(rec.connects))
	}
}

func TestPointerMovesCoalescePerFrame(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, func(o *Options) { o.Snap = snap.Settings{} })

	c.PointerDown(at(100, 50))
	for x := 110.0; x <= 200; x += 10 {
		c.PointerMove(at(x, 50))
	}
	if rec.drags != 0 {
		t.Fatal("moves must wait for the frame")
	}
	if ran := c.Frame(); ran != 1 {
		t.Errorf("frame ran %d tasks", ran)
	}
	if rec.drags != 1 || len(rec.dragStarts) != 1 {
		t.Errorf("drags=%d starts=%d, want 1 and 1", rec.drags, len(rec.dragStarts))
	}
	if p := flow.Find(c.Nodes(), "A").Position; p != geom.Pt(100, 0) {
		t.Errorf("A = %v, want (100,0)", p)
	}
	if c.Frame() != 0 {
		t.Error("an idle frame should run nothing")
	}

	c.PointerUp(at(210, 60))
	if p := flow.Find(c.Nodes(), "A").Position; p != geom.Pt(110, 10) {
		t.Errorf("A after release = %v, want (110,10)", p)
	}
	if !reflect.DeepEqual(rec.dragEnds, []string{"A"}) {
		t.Errorf("drag ends = %v", rec.dragEnds)
	}
}

func TestGroupDragThroughCanvas(t *testing.T) {
	nodes := []flow.Node{
		node("A", flow.KindDefault, 0, 0, 200, 100),
		node("B", flow.KindDefault, 300, 300, 200, 100),
	}
	nodes[0].Selected, nodes[1].Selected = true, true
	c, _, _ := newCanvas(t, nodes, nil, func(o *Options) { o.Snap = snap.Settings{} })

	c.PointerDown(at(100, 50))
	c.PointerMove(at(150, 80))
	c.Frame()
	c.PointerUp(at(150, 80))

	got := c.Nodes()
	if got[0].Position != geom.Pt(50, 30) || got[1].Position != geom.Pt(350, 330) {
		t.Errorf("positions = %v, %v", got[0].Position, got[1].Position)
	}
}

func TestClickSelectsNode(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, nil)

	c.PointerDown(at(100, 50))
	c.PointerUp(at(101, 51))
	if !reflect.DeepEqual(rec.clicks, []string{"A"}) {
		t.Fatalf("clicks = %v", rec.clicks)
	}
	if ids := flow.SelectedIDs(c.Nodes()); !reflect.DeepEqual(ids, []string{"A"}) {
		t.Errorf("selected = %v", ids)
	}

	c.PointerDown(PointerEvent{Point: geom.Pt(500, 50)})
	c.PointerUp(PointerEvent{Point: geom.Pt(500, 50), Shift: true})
	if ids := flow.SelectedIDs(c.Nodes()); !reflect.DeepEqual(ids, []string{"A", "B"}) {
		t.Errorf("shift-click selected = %v", ids)
	}

	// background click clears the selection
	c.PointerDown(at(700, 500))
	c.PointerUp(at(700, 500))
	if ids := flow.SelectedIDs(c.Nodes()); len(ids) != 0 {
		t.Errorf("selected after background click = %v", ids)
	}
	if len(rec.canvas) != 1 || rec.canvas[0] != geom.Pt(700, 500) {
		t.Errorf("canvas clicks = %v", rec.canvas)
	}
}

func TestInteractiveControlNeverDrags(t *testing.T) {
	c, _, _ := newCanvas(t, pairAB(), nil, nil)
	c.PointerDown(PointerEvent{Point: geom.Pt(100, 50), Control: true})
	if c.Gesture() != GestureNone {
		t.Errorf("gesture = %v", c.Gesture())
	}
}

func TestRubberBandSelection(t *testing.T) {
	nodes := append(pairAB(), node("C", flow.KindDefault, 0, 400, 100, 100))
	c, rec, _ := newCanvas(t, nodes, nil, nil)

	c.PointerDown(PointerEvent{Point: geom.Pt(650, 150), Shift: true})
	if c.Gesture() != GestureSelect {
		t.Fatalf("gesture = %v", c.Gesture())
	}
	c.PointerMove(at(150, 90))
	c.Frame()
	if box := c.Snapshot().SelectionBox; box == nil || *box != (geom.Rect{X: 150, Y: 90, Width: 500, Height: 60}) {
		t.Errorf("selection box = %+v", box)
	}
	c.PointerUp(at(150, 90))

	if len(rec.selections) != 1 || !reflect.DeepEqual(rec.selections[0], []string{"A", "B"}) {
		t.Errorf("selections = %v", rec.selections)
	}
	if ids := flow.SelectedIDs(c.Nodes()); !reflect.DeepEqual(ids, []string{"A", "B"}) {
		t.Errorf("selected = %v", ids)
	}
}

func TestBackgroundDragPans(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, nil)

	c.PointerDown(at(700, 500))
	c.PointerMove(at(720, 530))
	c.Frame()
	c.PointerUp(at(730, 530))

	if v := c.Viewport(); v.X != 30 || v.Y != 30 {
		t.Errorf("viewport = %+v", v)
	}
	if len(rec.viewports) != 2 {
		t.Errorf("viewport changes = %d", len(rec.viewports))
	}
	if len(rec.canvas) != 0 {
		t.Error("a pan is not a click")
	}
}

func TestReleaseOutsideCanvasResets(t *testing.T) {
	c, _, _ := newCanvas(t, pairAB(), nil, nil)

	c.PointerDown(at(200, 50))
	c.PointerMove(at(5000, 5000))
	c.PointerUp(at(5000, 5000))
	if c.Gesture() != GestureNone || len(c.Edges()) != 0 {
		t.Errorf("gesture=%v edges=%d", c.Gesture(), len(c.Edges()))
	}
	c.PointerDown(at(100, 50))
	if c.Gesture() != GestureDrag {
		t.Error("a new gesture should start after the reset")
	}
}

func TestEscapeCancels(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, func(o *Options) { o.Snap = snap.Settings{} })

	c.PointerDown(at(100, 50))
	c.PointerMove(at(150, 50))
	c.Frame()
	c.KeyDown("Escape")
	if c.Gesture() != GestureNone {
		t.Fatalf("gesture = %v", c.Gesture())
	}
	c.PointerMove(at(300, 50))
	c.Frame()
	c.PointerUp(at(300, 50))
	if p := flow.Find(c.Nodes(), "A").Position; p != geom.Pt(50, 0) {
		t.Errorf("A = %v; the cancelled drag should stay where it was", p)
	}
	if len(rec.dragEnds) != 0 {
		t.Error("a cancelled drag does not end normally")
	}
}

func TestHoldDelayStartsDrag(t *testing.T) {
	c, rec, clk := newCanvas(t, pairAB(), nil, nil)

	c.PointerDown(at(100, 50))
	clk.advance(150 * time.Millisecond)
	c.Frame()
	if len(rec.dragStarts) != 1 {
		t.Fatalf("drag starts = %v", rec.dragStarts)
	}
	c.PointerUp(at(101, 50))
	if len(rec.clicks) != 0 {
		t.Error("a held press is a drag, not a click")
	}
}

func TestFrameDragBlocksWheel(t *testing.T) {
	nodes := []flow.Node{node("F", flow.KindFrame, 0, 0, 400, 300)}
	c, _, _ := newCanvas(t, nodes, nil, nil)

	c.PointerDown(at(200, 150))
	c.PointerMove(at(260, 150))
	c.Frame()
	c.Wheel(viewport.WheelEvent{DeltaY: 100})
	if c.Viewport().Zoom != 1 {
		t.Error("wheel should be ignored during a frame drag")
	}
	c.PointerUp(at(260, 150))
	c.Wheel(viewport.WheelEvent{DeltaY: 100})
	if c.Viewport().Zoom == 1 {
		t.Error("wheel should zoom once the drag ends")
	}
}

func TestControlledViewport(t *testing.T) {
	c, rec, _ := newCanvas(t, nil, nil, func(o *Options) { o.Viewport.Controlled = true })

	c.Wheel(viewport.WheelEvent{DeltaX: 40})
	if len(rec.viewports) != 1 || rec.viewports[0].X != -40 {
		t.Fatalf("reported = %+v", rec.viewports)
	}
	if c.Viewport().X != 0 {
		t.Error("controlled viewport changed without the owner")
	}
	c.SetViewport(rec.viewports[0])
	if c.Viewport().X != -40 {
		t.Errorf("viewport = %+v", c.Viewport())
	}
}

func TestTouchGestures(t *testing.T) {
	c, rec, clk := newCanvas(t, nil, nil, nil)

	c.TouchStart(1, geom.Pt(100, 100))
	c.TouchEnd(1)
	if len(rec.canvas) != 1 {
		t.Errorf("tap produced %d canvas clicks", len(rec.canvas))
	}

	c.TouchStart(1, geom.Pt(300, 300))
	clk.advance(800 * time.Millisecond)
	c.Frame()
	if len(rec.menus) != 1 || rec.menus[0] != geom.Pt(300, 300) {
		t.Errorf("context menus = %v", rec.menus)
	}
	c.TouchEnd(1)

	c.TouchStart(1, geom.Pt(400, 400))
	c.TouchStart(2, geom.Pt(600, 400))
	c.TouchMove(2, geom.Pt(800, 400))
	if z := c.Viewport().Zoom; z != 2 {
		t.Errorf("pinch zoom = %v, want 2", z)
	}
	// the midpoint between the fingers stays over the same canvas point
	if p := c.ToCanvas(geom.Pt(600, 400)); p.Distance(geom.Pt(600, 400)) > 1e-9 {
		t.Errorf("pinch anchor drifted to %v", p)
	}
}

func TestSetNodesSanitizes(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), []flow.Edge{{ID: "e1", Source: "A", Target: "B"}}, nil)

	c.SetNodes([]flow.Node{
		node("A", flow.KindDefault, 0, 0, 10, 10),
		node("A", flow.KindDefault, 50, 50, 10, 10),
	})
	if nodes := c.Nodes(); len(nodes) != 1 || nodes[0].Position != geom.Pt(0, 0) {
		t.Errorf("nodes = %+v", nodes)
	}
	if len(c.Edges()) != 0 {
		t.Error("edge to the removed node should be dropped")
	}
	if len(rec.nodes) != 0 || len(rec.edges) != 0 {
		t.Error("owner updates are not echoed back")
	}
}

func TestOwnerRemovesDraggedNode(t *testing.T) {
	nodes := append(pairAB(), node("C", flow.KindDefault, 0, 300, 200, 100))
	c, rec, _ := newCanvas(t, nodes, nil, func(o *Options) { o.Snap = snap.Settings{} })

	c.PointerDown(at(100, 50))
	c.PointerMove(at(130, 50))
	c.Frame()
	if c.Gesture() != GestureDrag || c.drag.State() != drag.Active {
		t.Fatalf("gesture = %v, drag = %v", c.Gesture(), c.drag.State())
	}

	c.PointerMove(at(160, 50))
	c.SetNodes(c.Nodes()[1:])
	if c.Gesture() != GestureNone {
		t.Errorf("gesture = %v after the dragged node was removed", c.Gesture())
	}
	c.Frame()
	c.PointerMove(at(190, 50))
	c.Frame()
	c.PointerUp(at(190, 50))

	got := c.Nodes()
	if len(got) != 2 || got[0].ID != "B" || got[1].ID != "C" {
		t.Fatalf("nodes = %+v, want B and C", got)
	}
	for _, n := range rec.nodes {
		if len(n) == 0 {
			t.Error("OnNodesChange reported an empty board")
		}
	}
	if len(rec.dragEnds) != 0 {
		t.Errorf("drag ends = %v for an abandoned drag", rec.dragEnds)
	}
}

func TestDraggedNodeMissingWhenMoveApplies(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, func(o *Options) { o.Snap = snap.Settings{} })

	c.PointerDown(at(100, 50))
	c.PointerMove(at(130, 50))
	c.Frame()
	// swap the board underneath the drag without going through SetNodes
	c.nodes = c.nodes[1:]
	c.PointerMove(at(160, 50))
	c.Frame()

	if c.Gesture() != GestureNone {
		t.Errorf("gesture = %v, want none", c.Gesture())
	}
	if len(c.Nodes()) != 1 {
		t.Errorf("nodes = %+v, want B only", c.Nodes())
	}
	if n := rec.nodes[len(rec.nodes)-1]; len(n) == 0 {
		t.Error("OnNodesChange reported an empty board")
	}
}

func TestPressAfterGestureIgnoresEarlierMoves(t *testing.T) {
	c, rec, _ := newCanvas(t, pairAB(), nil, func(o *Options) { o.Snap = snap.Settings{} })

	// pan by (50, 50), then press on B before any frame runs
	c.PointerDown(at(900, 700))
	c.PointerMove(at(950, 750))
	c.PointerUp(at(950, 750))
	if v := c.Viewport(); v.X != 50 || v.Y != 50 {
		t.Fatalf("viewport = %+v after pan", v)
	}
	c.PointerDown(at(550, 100))
	c.Frame()

	if p := flow.Find(c.Nodes(), "B").Position; p != geom.Pt(400, 0) {
		t.Errorf("B moved to %v without any pointer movement", p)
	}
	if c.drag.State() != drag.Pending {
		t.Errorf("drag = %v, want pending", c.drag.State())
	}
	c.PointerUp(at(550, 100))
	if !reflect.DeepEqual(rec.clicks, []string{"B"}) {
		t.Errorf("clicks = %v, want [B]", rec.clicks)
	}
}
