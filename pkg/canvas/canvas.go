// Package canvas wires the viewport, drag, connection and selection
// controllers into one editor surface. Only one pointer gesture runs at a
// time, pointer moves are applied at most once per animation frame, and node
// and edge arrays are replaced wholesale on every change.
package canvas

import (
	"github.com/recera/flowcanvas/pkg/connect"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/drag"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/reactive"
	"github.com/recera/flowcanvas/pkg/scheduler"
	"github.com/recera/flowcanvas/pkg/selection"
	"github.com/recera/flowcanvas/pkg/snap"
	"github.com/recera/flowcanvas/pkg/viewport"
)

// Gesture names the pointer gesture in progress.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureDrag
	GestureConnect
	GestureSelect
	GesturePan
)

func (g Gesture) String() string {
	switch g {
	case GestureDrag:
		return "drag"
	case GestureConnect:
		return "connect"
	case GestureSelect:
		return "select"
	case GesturePan:
		return "pan"
	}
	return "none"
}

// PointerEvent is a mouse or pen event in screen pixels.
type PointerEvent struct {
	Point geom.Point `json:"point"`
	Shift bool       `json:"shift,omitempty"`
	// Control marks a press on a form control inside a node. Such presses
	// never start a gesture.
	Control bool `json:"control,omitempty"`
}

// Canvas is one editor surface. It is not safe for concurrent use; callers
// serialize events.
type Canvas struct {
	opts Options
	cb   Callbacks

	nodes []flow.Node
	edges []flow.Edge
	snap  snap.Settings

	sched    *scheduler.Scheduler
	view     *viewport.Controller
	drag     *drag.Controller
	connect  *connect.Controller
	band     selection.RubberBand
	touch    *selection.Touch
	pointer  *reactive.State[geom.Point]
	moveTask *scheduler.Task

	gesture   Gesture
	panLast   geom.Point
	panMoved  bool
	pinchZoom float64

	version uint64
}

// New creates a canvas. Input nodes and edges are sanitized.
func New(opts Options) *Canvas {
	if opts.HandleRadius <= 0 {
		opts.HandleRadius = 8
	}
	if !opts.DefaultEdgeType.Valid() {
		opts.DefaultEdgeType = flow.EdgeSmoothStep
	}
	c := &Canvas{
		opts:  opts,
		cb:    opts.Callbacks,
		snap:  opts.Snap,
		sched: scheduler.NewScheduler(),
	}
	c.nodes, c.edges = flow.Sanitize(opts.Nodes, opts.Edges)

	c.sched.SetDefaultErrorHandler(func(task *scheduler.Task, err interface{}) bool {
		debug.Logger().Warn("[Canvas] frame task panicked, gesture abandoned", "task", task.Name(), "error", err)
		c.Cancel()
		return true
	})

	vopts := opts.Viewport
	vopts.OnChange = c.viewportChanged
	c.view = viewport.NewController(&vopts, c.sched)
	c.view.State().Watch(func(geom.Viewport) { c.touchVersion() })
	c.drag = drag.NewController(drag.Options{
		Threshold: opts.DragThreshold,
		Delay:     opts.DragDelay,
		Snap:      opts.Snap,
		Margins:   opts.ClampMargins,
		EdgeType:  opts.DefaultEdgeType,
		Now:       opts.Now,
	})
	c.connect = connect.NewController(connect.Options{EdgeType: opts.DefaultEdgeType})
	topts := opts.Touch
	if topts.Now == nil {
		topts.Now = opts.Now
	}
	c.touch = selection.NewTouch(topts)

	c.pointer = reactive.NewState(geom.Point{}, c.sched)
	c.moveTask = c.sched.CreateTask("pointer-move", func() {
		c.applyMove(c.pointer.Get())
	})
	c.pointer.Subscribe(c.moveTask)
	return c
}

// SetRect records where the canvas element sits on screen.
func (c *Canvas) SetRect(r geom.Rect) {
	c.view.SetRect(r)
	c.touchVersion()
}

// Rect returns the on-screen rectangle of the canvas element.
func (c *Canvas) Rect() geom.Rect { return c.view.Rect() }

// SetNodes replaces the nodes from the owner. Duplicates and edges left
// dangling are dropped. Nothing is reported back. A drag of a node that is no
// longer present is abandoned.
func (c *Canvas) SetNodes(nodes []flow.Node) {
	c.nodes, c.edges = flow.Sanitize(nodes, c.edges)
	if c.gesture == GestureDrag && flow.Find(c.nodes, c.drag.NodeID()) == nil {
		c.drag.Cancel()
		c.dropIdleDrag()
	}
	c.touchVersion()
}

// SetEdges replaces the edges from the owner.
func (c *Canvas) SetEdges(edges []flow.Edge) {
	c.nodes, c.edges = flow.Sanitize(c.nodes, edges)
	c.touchVersion()
}

// SetViewport writes an externally controlled viewport back.
func (c *Canvas) SetViewport(v geom.Viewport) {
	c.view.SetViewport(v)
}

// SetSnap changes the snap settings for later drags.
func (c *Canvas) SetSnap(s snap.Settings) {
	c.snap = s
	c.drag.SetSnap(s)
}

// SetDefaultEdgeType changes the type of newly created edges.
func (c *Canvas) SetDefaultEdgeType(t flow.EdgeType) {
	if !t.Valid() {
		return
	}
	c.opts.DefaultEdgeType = t
	c.connect.SetEdgeType(t)
	c.drag.SetEdgeType(t)
}

// Nodes returns a copy of the current nodes.
func (c *Canvas) Nodes() []flow.Node { return flow.CloneNodes(c.nodes) }

// Edges returns a copy of the current edges.
func (c *Canvas) Edges() []flow.Edge { return flow.CloneEdges(c.edges) }

func (c *Canvas) Viewport() geom.Viewport { return c.view.Viewport() }
func (c *Canvas) Gesture() Gesture        { return c.gesture }

// Version increases on every visible change.
func (c *Canvas) Version() uint64 { return c.version }

// ViewportController exposes the imperative viewport controls.
func (c *Canvas) ViewportController() *viewport.Controller { return c.view }

// ToCanvas maps a screen point into canvas space.
func (c *Canvas) ToCanvas(p geom.Point) geom.Point {
	return geom.ScreenToCanvas(p, c.view.Viewport(), c.view.Rect())
}

// ToScreen maps a canvas point to the screen.
func (c *Canvas) ToScreen(p geom.Point) geom.Point {
	return geom.CanvasToScreen(p, c.view.Viewport(), c.view.Rect())
}

// Frame runs one animation frame: hold timers fire and the latest pointer
// move is applied. It returns the number of tasks that ran.
func (c *Canvas) Frame() int {
	if c.drag.Tick(c.nodes) {
		c.dragStarted()
	}
	c.dropIdleDrag()
	if g, ok := c.touch.Tick(); ok {
		c.handleTouch(g)
	}
	return c.sched.Flush()
}

// PointerDown starts at most one gesture: a connection from a handle, a node
// drag, a shift rubber band or a background pan.
func (c *Canvas) PointerDown(ev PointerEvent) {
	if c.gesture != GestureNone || ev.Control {
		return
	}
	p := c.ToCanvas(ev.Point)

	if id, h, ok := c.handleAt(p); ok {
		if c.connect.Start(c.nodes, id, h) == nil {
			c.gesture = GestureConnect
			c.touchVersion()
			return
		}
	}
	if id, ok := connect.HitTest(connect.DefaultLayers(), c.nodes, p); ok {
		if c.drag.PointerDown(c.nodes, id, ev.Point, c.dragView()) {
			c.gesture = GestureDrag
		}
		return
	}
	if c.band.Begin(ev.Point, ev.Shift, true) {
		c.gesture = GestureSelect
		c.touchVersion()
		return
	}
	c.gesture = GesturePan
	c.panLast = ev.Point
	c.panMoved = false
}

// PointerMove records the pointer position. The gesture update runs on the
// next Frame, so any number of moves between frames costs one update.
func (c *Canvas) PointerMove(ev PointerEvent) {
	if c.gesture == GestureNone {
		return
	}
	c.pointer.Set(ev.Point)
}

// PointerUp ends the current gesture wherever the pointer is released,
// inside the canvas or not.
func (c *Canvas) PointerUp(ev PointerEvent) {
	g := c.gesture
	if g == GestureNone {
		return
	}
	c.applyMove(ev.Point)
	c.sched.Discard(c.moveTask)
	c.gesture = GestureNone

	switch g {
	case GestureDrag:
		c.finishDrag(ev.Shift)
	case GestureConnect:
		if e, err := c.connect.End(c.nodes, c.edges, c.ToCanvas(ev.Point)); err == nil {
			c.addEdge(e)
		}
	case GestureSelect:
		if ids, ok := c.band.End(c.nodes, c.view.Viewport(), c.view.Rect()); ok {
			c.setNodes(selection.Apply(c.nodes, ids))
			c.emitSelection(ids)
		}
	case GesturePan:
		if !c.panMoved {
			c.clearSelection()
			if c.cb.OnCanvasClick != nil {
				c.cb.OnCanvasClick(c.ToCanvas(ev.Point))
			}
		}
	}
	c.touchVersion()
}

// Wheel zooms or pans. It is ignored while a frame is being dragged.
func (c *Canvas) Wheel(ev viewport.WheelEvent) {
	if c.drag.Blocking() {
		return
	}
	c.view.Wheel(ev)
}

// KeyDown handles keyboard shortcuts. Escape abandons the current gesture.
func (c *Canvas) KeyDown(key string) {
	if key == "Escape" {
		c.Cancel()
	}
}

// Cancel abandons every gesture in progress. Nodes stay where they are.
func (c *Canvas) Cancel() {
	c.drag.Cancel()
	c.connect.Cancel()
	c.band.Cancel()
	c.touch.Cancel()
	c.sched.Discard(c.moveTask)
	c.gesture = GestureNone
	c.touchVersion()
}

// TouchStart registers a touch on the canvas background.
func (c *Canvas) TouchStart(id int, p geom.Point) {
	if c.gesture != GestureNone {
		return
	}
	if g, ok := c.touch.Start(id, p); ok {
		c.handleTouch(g)
	}
}

func (c *Canvas) TouchMove(id int, p geom.Point) {
	if c.gesture != GestureNone {
		return
	}
	if g, ok := c.touch.Move(id, p); ok {
		c.handleTouch(g)
	}
}

func (c *Canvas) TouchEnd(id int) {
	if g, ok := c.touch.End(id); ok {
		c.handleTouch(g)
	}
}

func (c *Canvas) handleTouch(g selection.Gesture) {
	switch g.Kind {
	case selection.GesturePan:
		c.view.Pan(g.Delta.X, g.Delta.Y)
	case selection.GesturePinchStart:
		c.pinchZoom = c.view.Viewport().Zoom
	case selection.GesturePinch:
		c.view.ZoomAt(c.pinchZoom*g.Scale, g.Point)
	case selection.GestureTap:
		if c.cb.OnCanvasClick != nil {
			c.cb.OnCanvasClick(c.ToCanvas(g.Point))
		}
	case selection.GestureLongPress:
		if c.cb.OnContextMenu != nil {
			c.cb.OnContextMenu(c.ToCanvas(g.Point))
		}
	}
}

func (c *Canvas) applyMove(p geom.Point) {
	switch c.gesture {
	case GestureDrag:
		u, ok := c.drag.PointerMove(c.nodes, c.edges, p, c.dragView())
		if !ok {
			c.dropIdleDrag()
			return
		}
		if u.Started {
			c.dragStarted()
		}
		c.setNodes(u.Nodes)
		if u.Edges != nil {
			c.setEdges(u.Edges)
		}
		if c.cb.OnNodeDrag != nil {
			c.cb.OnNodeDrag(c.drag.NodeID(), u.Position)
		}
	case GestureConnect:
		c.connect.Move(c.nodes, c.edges, c.ToCanvas(p))
		c.touchVersion()
	case GestureSelect:
		c.band.Move(p)
		c.touchVersion()
	case GesturePan:
		d := p.Sub(c.panLast)
		if d == (geom.Point{}) {
			return
		}
		c.panLast = p
		c.panMoved = true
		c.view.Pan(d.X, d.Y)
	}
}

// dropIdleDrag ends a drag gesture the drag controller has already given up,
// as happens when the dragged node disappears.
func (c *Canvas) dropIdleDrag() {
	if c.gesture != GestureDrag || c.drag.State() != drag.Idle {
		return
	}
	debug.Logger().Debug("[Canvas] drag abandoned")
	c.sched.Discard(c.moveTask)
	c.gesture = GestureNone
	c.touchVersion()
}

func (c *Canvas) dragStarted() {
	if c.cb.OnNodeDragStart == nil {
		return
	}
	if n := flow.Find(c.nodes, c.drag.NodeID()); n != nil {
		c.cb.OnNodeDragStart(n.ID, n.Position)
	}
}

func (c *Canvas) finishDrag(shift bool) {
	end := c.drag.PointerUp(c.nodes, c.edges)
	if end.Clicked {
		c.selectNode(end.NodeID, shift)
		if c.cb.OnNodeClick != nil {
			c.cb.OnNodeClick(end.NodeID)
		}
		return
	}
	if !end.Dragged {
		return
	}
	if end.Edge != nil {
		c.addEdge(*end.Edge)
	}
	if c.cb.OnNodeDragEnd != nil {
		c.cb.OnNodeDragEnd(end.NodeID, end.Position)
	}
}

func (c *Canvas) selectNode(id string, toggle bool) {
	n := flow.Find(c.nodes, id)
	if n == nil || !n.IsSelectable() {
		return
	}
	var ids []string
	for i := range c.nodes {
		o := &c.nodes[i]
		switch {
		case o.ID == id:
			if !toggle || !o.Selected {
				ids = append(ids, o.ID)
			}
		case toggle && o.Selected:
			ids = append(ids, o.ID)
		}
	}
	c.setNodes(selection.Apply(c.nodes, ids))
	c.emitSelection(ids)
}

func (c *Canvas) clearSelection() {
	if len(flow.SelectedIDs(c.nodes)) == 0 {
		return
	}
	c.setNodes(selection.Apply(c.nodes, nil))
	c.emitSelection([]string{})
}

func (c *Canvas) emitSelection(ids []string) {
	if c.cb.OnSelectionChange != nil {
		c.cb.OnSelectionChange(ids)
	}
}

func (c *Canvas) addEdge(e flow.Edge) {
	if flow.HasEdgeBetween(c.edges, e.Source, e.Target) {
		return
	}
	edges := append(flow.CloneEdges(c.edges), e)
	c.setEdges(edges)
	if c.cb.OnConnect != nil {
		c.cb.OnConnect(e)
	}
}

func (c *Canvas) setNodes(nodes []flow.Node) {
	c.nodes = nodes
	c.touchVersion()
	if c.cb.OnNodesChange != nil {
		c.cb.OnNodesChange(flow.CloneNodes(nodes))
	}
}

func (c *Canvas) setEdges(edges []flow.Edge) {
	c.edges = edges
	c.touchVersion()
	if c.cb.OnEdgesChange != nil {
		c.cb.OnEdgesChange(flow.CloneEdges(edges))
	}
}

func (c *Canvas) viewportChanged(v geom.Viewport) {
	if c.cb.OnViewportChange != nil {
		c.cb.OnViewportChange(v)
	}
}

func (c *Canvas) touchVersion() { c.version++ }

// handleAt finds a connection handle under canvas point p, topmost node
// first. Only nodes that may start a connection expose handles.
func (c *Canvas) handleAt(p geom.Point) (string, connect.Handle, bool) {
	r := c.opts.HandleRadius / c.view.Viewport().Zoom
	for i := len(c.nodes) - 1; i >= 0; i-- {
		n := &c.nodes[i]
		if flow.CheckSource(c.nodes, n.ID) != nil {
			continue
		}
		if h, ok := connect.HandleAt(n, p, r); ok {
			return n.ID, h, true
		}
	}
	return "", "", false
}

func (c *Canvas) dragView() drag.View {
	return drag.View{Viewport: c.view.Viewport(), Origin: c.view.Rect()}
}

// Snapshot is everything needed to draw the canvas.
type Snapshot struct {
	Version    uint64              `json:"version"`
	Nodes      []flow.Node         `json:"nodes"`
	Edges      []flow.Edge         `json:"edges"`
	Viewport   geom.Viewport       `json:"viewport"`
	Rect       geom.Rect           `json:"rect"`
	Gesture    string              `json:"gesture"`
	Guides     []snap.Guide        `json:"guides,omitempty"`
	Connection *connect.Preview    `json:"connection,omitempty"`
	Suggestion *connect.Suggestion `json:"suggestion,omitempty"`
	// SelectionBox is the rubber band in canvas coordinates.
	SelectionBox *geom.Rect `json:"selectionBox,omitempty"`
}

// Snapshot copies the current state.
func (c *Canvas) Snapshot() Snapshot {
	s := Snapshot{
		Version:  c.version,
		Nodes:    c.Nodes(),
		Edges:    c.Edges(),
		Viewport: c.view.Viewport(),
		Rect:     c.view.Rect(),
		Gesture:  c.gesture.String(),
	}
	if c.gesture == GestureDrag {
		s.Guides = append([]snap.Guide(nil), c.drag.Guides()...)
		if sg := c.drag.Suggestion(); sg != nil {
			cp := *sg
			s.Suggestion = &cp
		}
	}
	if pv, ok := c.connect.Preview(); ok {
		s.Connection = &pv
	}
	if c.band.Active() {
		r := c.band.Rect()
		box := geom.RectFromPoints(c.ToCanvas(r.Origin()), c.ToCanvas(geom.Pt(r.Right(), r.Bottom())))
		s.SelectionBox = &box
	}
	return s
}
