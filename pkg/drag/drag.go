// Package drag runs the node drag gesture: pending-drag gating, snapping,
// group moves, clamping to the visible canvas, frame adoption and the
// smart-connect suggestion.
package drag

import (
	"time"

	"github.com/recera/flowcanvas/pkg/connect"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/snap"
)

// State is the phase of the drag gesture.
type State int

const (
	Idle State = iota
	Pending
	Active
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	}
	return "idle"
}

const (
	DefaultThreshold = 5.0
	DefaultDelay     = 100 * time.Millisecond
)

// DefaultMargins lets frames overhang the visible area by 200px.
func DefaultMargins() map[flow.NodeKind]float64 {
	return map[flow.NodeKind]float64{flow.KindFrame: 200}
}

// Options configures a Controller.
type Options struct {
	// Threshold is the pointer travel in screen pixels that starts a drag.
	Threshold float64
	// Delay starts a drag when the pointer is held still this long.
	Delay time.Duration
	Snap  snap.Settings
	// Margins is how far each node kind may extend past the visible canvas.
	// Kinds not listed get 0.
	Margins map[flow.NodeKind]float64
	// EdgeType is used for smart-connect edges.
	EdgeType flow.EdgeType
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// View is the viewport plus the on-screen canvas rectangle a gesture is
// interpreted against.
type View struct {
	Viewport geom.Viewport
	Origin   geom.Rect
}

// Update is the outcome of one move while dragging.
type Update struct {
	// Nodes is the full replacement node array.
	Nodes []flow.Node
	// Edges is non-nil when adoption removed edges.
	Edges      []flow.Edge
	Guides     []snap.Guide
	Suggestion *connect.Suggestion
	// Started is set on the move that promoted a pending drag.
	Started  bool
	Position geom.Point
}

// End is the outcome of releasing the pointer.
type End struct {
	NodeID string
	// Clicked is set when the pointer came up before the drag started.
	Clicked  bool
	Dragged  bool
	Position geom.Point
	// Edge is the smart-connect edge committed on release, if any.
	Edge *flow.Edge
}

// Controller owns at most one drag session.
type Controller struct {
	opts Options

	state       State
	nodeID      string
	isFrame     bool
	startScreen geom.Point
	startTime   time.Time
	offset      geom.Point

	// canvas positions at activation of every node that moves with the drag
	starts   map[string]geom.Point
	group    []string
	children map[string]string

	last       geom.Point
	guides     []snap.Guide
	suggestion *connect.Suggestion
}

func NewController(opts Options) *Controller {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Margins == nil {
		opts.Margins = DefaultMargins()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{opts: opts}
}

// SetSnap replaces the snap settings used by later moves.
func (c *Controller) SetSnap(s snap.Settings) { c.opts.Snap = s }

// SetEdgeType changes the type of smart-connect edges.
func (c *Controller) SetEdgeType(t flow.EdgeType) { c.opts.EdgeType = t }

func (c *Controller) State() State { return c.state }

// NodeID is the node under the pointer for the current gesture.
func (c *Controller) NodeID() string { return c.nodeID }

// Guides are the snap guides of the latest move.
func (c *Controller) Guides() []snap.Guide { return c.guides }

// Suggestion is the smart-connect preview of the latest move, or nil.
func (c *Controller) Suggestion() *connect.Suggestion { return c.suggestion }

// Blocking reports whether a frame is being dragged. Other pointer handling
// is suppressed meanwhile.
func (c *Controller) Blocking() bool { return c.state == Active && c.isFrame }

// Margin returns the overhang allowed for kind.
func (c *Controller) Margin(kind flow.NodeKind) float64 { return c.opts.Margins[kind] }

// PointerDown arms a drag of id from screen point p. It reports false when
// the node cannot be dragged or a drag is already in progress.
func (c *Controller) PointerDown(nodes []flow.Node, id string, p geom.Point, view View) bool {
	if c.state != Idle {
		return false
	}
	n := flow.Find(nodes, id)
	if n == nil || !n.IsDraggable() {
		return false
	}
	c.state = Pending
	c.nodeID = id
	c.isFrame = n.IsFrame()
	c.startScreen = p
	c.startTime = c.opts.Now()
	c.offset = geom.ScreenToCanvas(p, view.Viewport, view.Origin).Sub(n.Position)
	c.last = n.Position
	debug.Logger().Debug("[Drag] pending", "node", id)
	return true
}

// Offset is the pointer position relative to the node origin at pointer-down.
func (c *Controller) Offset() geom.Point { return c.offset }

// Tick promotes a pending drag once the hold delay has elapsed. It reports
// true on promotion.
func (c *Controller) Tick(nodes []flow.Node) bool {
	if c.state != Pending || c.opts.Now().Sub(c.startTime) < c.opts.Delay {
		return false
	}
	return c.activate(nodes)
}

// PointerMove handles a pointer at screen point p. ok is false while the
// drag is idle or still pending, and when the dragged node has disappeared,
// which abandons the drag.
func (c *Controller) PointerMove(nodes []flow.Node, edges []flow.Edge, p geom.Point, view View) (u Update, ok bool) {
	switch c.state {
	case Idle:
		return Update{}, false
	case Pending:
		if p.Distance(c.startScreen) <= c.opts.Threshold && c.opts.Now().Sub(c.startTime) < c.opts.Delay {
			return Update{}, false
		}
		if !c.activate(nodes) {
			return Update{}, false
		}
		u.Started = true
	}
	return c.move(nodes, edges, p, view, u)
}

// PointerUp ends the gesture.
func (c *Controller) PointerUp(nodes []flow.Node, edges []flow.Edge) End {
	end := End{NodeID: c.nodeID, Position: c.last}
	switch c.state {
	case Pending:
		end.Clicked = true
		debug.Logger().Debug("[Drag] click", "node", c.nodeID)
	case Active:
		end.Dragged = true
		if s := c.suggestion; s != nil && !flow.HasEdgeBetween(edges, s.Source, s.Target) &&
			flow.CheckConnection(nodes, edges, s.Source, s.Target) == nil {
			e := flow.NewEdge(s.Source, s.Target, c.opts.EdgeType)
			end.Edge = &e
		}
		debug.Logger().Debug("[Drag] end", "node", c.nodeID, "x", c.last.X, "y", c.last.Y)
	}
	c.Cancel()
	return end
}

// Cancel abandons the gesture, leaving nodes where they are.
func (c *Controller) Cancel() {
	*c = Controller{opts: c.opts}
}

func (c *Controller) activate(nodes []flow.Node) bool {
	n := flow.Find(nodes, c.nodeID)
	if n == nil {
		c.Cancel()
		return false
	}
	c.state = Active
	c.starts = map[string]geom.Point{n.ID: n.Position}
	c.group = []string{n.ID}
	c.children = map[string]string{}

	if n.Selected {
		for i := range nodes {
			o := &nodes[i]
			if o.ID == n.ID || !o.Selected || !o.IsDraggable() {
				continue
			}
			c.starts[o.ID] = o.Position
			c.group = append(c.group, o.ID)
		}
	}
	for _, id := range c.group {
		f := flow.Find(nodes, id)
		if !f.IsFrame() {
			continue
		}
		for _, childID := range flow.Children(nodes, id) {
			if _, moving := c.starts[childID]; moving {
				continue
			}
			c.starts[childID] = flow.Find(nodes, childID).Position
			c.children[childID] = id
		}
	}
	debug.Logger().Debug("[Drag] active", "node", c.nodeID, "group", len(c.group), "children", len(c.children))
	return true
}

func (c *Controller) move(nodes []flow.Node, edges []flow.Edge, p geom.Point, view View, u Update) (Update, bool) {
	out := flow.CloneNodes(nodes)
	idx := flow.IndexOf(out, c.nodeID)
	if idx < 0 {
		debug.Logger().Debug("[Drag] node gone, drag abandoned", "node", c.nodeID)
		c.Cancel()
		return Update{}, false
	}
	dragged := &out[idx]
	start := c.starts[c.nodeID]
	delta := geom.ScreenDelta(p.Sub(c.startScreen), view.Viewport)
	raw := start.Add(delta)

	others := make([]flow.Node, 0, len(out))
	for i := range out {
		if _, moving := c.starts[out[i].ID]; !moving {
			others = append(others, out[i])
		}
	}
	res := snap.Calculate(*dragged, raw, others, geom.Size{}, c.opts.Snap)
	pos := c.clamp(dragged, res.Position, view)
	applied := pos.Sub(start)

	visible := c.clampable(view)
	frameDelta := map[string]geom.Point{}
	for _, id := range c.group {
		i := flow.IndexOf(out, id)
		if i < 0 {
			continue
		}
		n := &out[i]
		if id == c.nodeID {
			n.Position = pos
		} else {
			n.Position = c.starts[id].Add(applied)
			if visible {
				n.Position = c.clamp(n, n.Position, view)
			}
		}
		if n.IsFrame() {
			frameDelta[id] = n.Position.Sub(c.starts[id])
		}
	}
	for childID, frameID := range c.children {
		if i := flow.IndexOf(out, childID); i >= 0 {
			out[i].Position = c.starts[childID].Add(frameDelta[frameID])
		}
	}

	var edgesChanged bool
	for _, id := range c.group {
		var removed bool
		edges, removed = adopt(out, edges, id)
		edgesChanged = edgesChanged || removed
	}
	if edgesChanged {
		u.Edges = edges
	}

	c.last = pos
	c.guides = res.Guides
	c.suggestion = nil
	if s, ok := connect.Nearest(out, edges, c.nodeID, c.moving); ok {
		c.suggestion = &s
	}

	u.Nodes = out
	u.Guides = c.guides
	u.Suggestion = c.suggestion
	u.Position = pos
	return u, true
}

// moving reports whether id moves with the drag.
func (c *Controller) moving(id string) bool {
	_, ok := c.starts[id]
	return ok
}

func (c *Controller) clampable(view View) bool {
	return view.Origin.Width > 0 && view.Origin.Height > 0 && view.Viewport.Zoom > 0
}

// clamp keeps n inside the visible canvas, widened by the margin of its kind.
func (c *Controller) clamp(n *flow.Node, p geom.Point, view View) geom.Point {
	if !c.clampable(view) {
		return p
	}
	vis := geom.VisibleRect(view.Viewport, view.Origin).Inset(-c.Margin(n.Kind))
	size := n.Size()
	maxX := vis.Right() - size.Width
	maxY := vis.Bottom() - size.Height
	if maxX < vis.Left() {
		maxX = vis.Left()
	}
	if maxY < vis.Top() {
		maxY = vis.Top()
	}
	return geom.Pt(geom.Clamp(p.X, vis.Left(), maxX), geom.Clamp(p.Y, vis.Top(), maxY))
}

// adopt re-evaluates the parent frame of a moved plain node. The innermost
// frame that fully contains it becomes its parent, and edges between the node
// and that frame are removed.
func adopt(nodes []flow.Node, edges []flow.Edge, id string) ([]flow.Edge, bool) {
	n := flow.Find(nodes, id)
	if n == nil || n.IsFrame() {
		return edges, false
	}
	b := n.Bounds()
	parent := ""
	if f := flow.ContainingFrame(nodes, b, id); f != nil && flow.CheckAdoption(nodes, id, f.ID) == nil {
		parent = f.ID
	}
	if parent == n.Data.ParentFrameID {
		return edges, false
	}
	if parent == "" {
		debug.Logger().Debug("[Drag] released from frame", "node", id, "frame", n.Data.ParentFrameID)
		n.Data.ParentFrameID = ""
		return edges, false
	}
	debug.Logger().Debug("[Drag] adopted", "node", id, "frame", parent)
	n.Data.ParentFrameID = parent
	return flow.RemoveEdgesBetween(edges, id, parent)
}
