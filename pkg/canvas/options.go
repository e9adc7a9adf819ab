package canvas

import (
	"time"

	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/selection"
	"github.com/recera/flowcanvas/pkg/snap"
	"github.com/recera/flowcanvas/pkg/viewport"
)

// Callbacks is how the canvas reports changes to its owner. Every field is
// optional. Node and edge arrays are always fresh replacements.
type Callbacks struct {
	OnNodesChange     func(nodes []flow.Node)
	OnEdgesChange     func(edges []flow.Edge)
	OnConnect         func(edge flow.Edge)
	OnNodeDragStart   func(id string, pos geom.Point)
	OnNodeDrag        func(id string, pos geom.Point)
	OnNodeDragEnd     func(id string, pos geom.Point)
	OnViewportChange  func(v geom.Viewport)
	OnSelectionChange func(ids []string)
	OnNodeClick       func(id string)
	OnCanvasClick     func(p geom.Point)
	OnContextMenu     func(p geom.Point)
}

// Options configures a Canvas.
type Options struct {
	Nodes []flow.Node
	Edges []flow.Edge

	// Viewport holds zoom bounds, speeds and the default viewport. Its
	// OnChange is ignored; use Callbacks.OnViewportChange.
	Viewport viewport.Options

	Snap            snap.Settings
	DefaultEdgeType flow.EdgeType

	DragThreshold float64
	DragDelay     time.Duration
	// ClampMargins overrides the per-kind overhang past the visible area.
	ClampMargins map[flow.NodeKind]float64

	// HandleRadius is the hit radius of connection handles in screen pixels.
	HandleRadius float64

	Touch selection.TouchOptions

	// Now is the clock for drag and touch timing; nil means time.Now.
	Now func() time.Time

	Callbacks
}

// DefaultOptions returns options with snapping on and the documented
// defaults everywhere else.
func DefaultOptions() Options {
	return Options{
		Snap:            snap.DefaultSettings(),
		DefaultEdgeType: flow.EdgeSmoothStep,
		HandleRadius:    8,
	}
}
