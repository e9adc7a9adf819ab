// Package connect implements handle-driven edge creation and the proximity
// based smart-connect suggestion.
package connect

import (
	"errors"

	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

var (
	ErrNotConnecting = errors.New("connect: no connection in progress")
	ErrNoTarget      = errors.New("connect: pointer is not over a node")
)

// Status classifies the hover target of a connection in progress.
type Status int

const (
	StatusNone Status = iota
	StatusLegal
	StatusIllegal
)

func (s Status) String() string {
	switch s {
	case StatusLegal:
		return "legal"
	case StatusIllegal:
		return "illegal"
	}
	return "none"
}

// Preview colors.
const (
	ColorDefault = "#3b82f6"
	ColorLegal   = "#10b981"
	ColorIllegal = "#ef4444"
)

// Color returns the stroke color of a preview edge in this status.
func (s Status) Color() string {
	switch s {
	case StatusLegal:
		return ColorLegal
	case StatusIllegal:
		return ColorIllegal
	}
	return ColorDefault
}

// Preview is the live edge drawn from the source handle to the cursor.
type Preview struct {
	Source string     `json:"source"`
	Handle Handle     `json:"handle"`
	From   geom.Point `json:"from"`
	To     geom.Point `json:"to"`
	Target string     `json:"target,omitempty"`
	Status Status     `json:"status"`
	Reason error      `json:"-"`
}

// Color returns the preview's stroke color.
func (p Preview) Color() string { return p.Status.Color() }

// Options configures a Controller.
type Options struct {
	// EdgeType is used for committed edges; invalid values mean smoothstep.
	EdgeType flow.EdgeType
	// Layers are hit-tested in order; nil means DefaultLayers.
	Layers []Layer
}

// Controller tracks at most one connection session.
type Controller struct {
	opts    Options
	active  bool
	preview Preview
}

func NewController(opts Options) *Controller {
	if !opts.EdgeType.Valid() {
		opts.EdgeType = flow.EdgeSmoothStep
	}
	if opts.Layers == nil {
		opts.Layers = DefaultLayers()
	}
	return &Controller{opts: opts}
}

// SetEdgeType changes the type used for new edges.
func (c *Controller) SetEdgeType(t flow.EdgeType) {
	if t.Valid() {
		c.opts.EdgeType = t
	}
}

// Active reports whether a connection is in progress.
func (c *Controller) Active() bool { return c.active }

// Preview returns the current preview and whether a connection is active.
func (c *Controller) Preview() (Preview, bool) { return c.preview, c.active }

// Start begins a connection from handle h of sourceID. Text nodes and nodes
// inside a frame cannot start one.
func (c *Controller) Start(nodes []flow.Node, sourceID string, h Handle) error {
	if err := flow.CheckSource(nodes, sourceID); err != nil {
		debug.Logger().Debug("[Connect] start refused", "source", sourceID, "err", err)
		return err
	}
	src := flow.Find(nodes, sourceID)
	from := h.Point(src)
	c.active = true
	c.preview = Preview{Source: sourceID, Handle: h, From: from, To: from}
	debug.Logger().Debug("[Connect] start", "source", sourceID, "handle", string(h))
	return nil
}

// Move updates the preview for a cursor at canvas position p.
func (c *Controller) Move(nodes []flow.Node, edges []flow.Edge, p geom.Point) Preview {
	if !c.active {
		return Preview{}
	}
	c.preview.To = p
	c.preview.Target = ""
	c.preview.Status = StatusNone
	c.preview.Reason = nil

	if src := flow.Find(nodes, c.preview.Source); src != nil {
		c.preview.From = c.preview.Handle.Point(src)
	}
	id, ok := HitTest(c.opts.Layers, nodes, p)
	if !ok {
		return c.preview
	}
	c.preview.Target = id
	if err := flow.CheckConnection(nodes, edges, c.preview.Source, id); err != nil {
		c.preview.Status = StatusIllegal
		c.preview.Reason = err
	} else {
		c.preview.Status = StatusLegal
	}
	return c.preview
}

// End finishes the connection with the cursor at canvas position p. On
// success the new edge is returned; otherwise the error names why nothing
// was created. The controller is idle afterwards either way.
func (c *Controller) End(nodes []flow.Node, edges []flow.Edge, p geom.Point) (flow.Edge, error) {
	if !c.active {
		return flow.Edge{}, ErrNotConnecting
	}
	pv := c.Move(nodes, edges, p)
	c.Cancel()

	switch {
	case pv.Target == "":
		debug.Logger().Debug("[Connect] discarded", "source", pv.Source)
		return flow.Edge{}, ErrNoTarget
	case pv.Status != StatusLegal:
		debug.Logger().Debug("[Connect] rejected", "source", pv.Source, "target", pv.Target, "err", pv.Reason)
		return flow.Edge{}, pv.Reason
	}
	e := flow.NewEdge(pv.Source, pv.Target, c.opts.EdgeType)
	debug.Logger().Debug("[Connect] commit", "edge", e.ID, "source", e.Source, "target", e.Target)
	return e, nil
}

// Cancel abandons the connection in progress.
func (c *Controller) Cancel() {
	c.active = false
	c.preview = Preview{}
}
