// Package flow defines the node and edge model of a canvas board and the
// structural rules (connection legality, frame adoption) every controller
// relies on.
package flow

import "github.com/recera/flowcanvas/pkg/geom"

// NodeKind is the variant tag of a node.
type NodeKind string

const (
	KindDefault NodeKind = "default"
	KindFrame   NodeKind = "frame"
	KindText    NodeKind = "text"
	KindSticky  NodeKind = "sticky"
	KindShape   NodeKind = "shape"
	KindImage   NodeKind = "image"
)

// Style carries the optional explicit dimensions of a node.
type Style struct {
	Width  *float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height *float64 `json:"height,omitempty" yaml:"height,omitempty"`
}

// NodeData holds the variant-specific fields. ParentFrameID is a weak
// reference to the frame the node is grouped in.
type NodeData struct {
	ParentFrameID string         `json:"parentFrameId,omitempty" yaml:"parentFrameId,omitempty"`
	Label         string         `json:"label,omitempty" yaml:"label,omitempty"`
	Color         string         `json:"color,omitempty" yaml:"color,omitempty"`
	Extra         map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// SmartConnect configures proximity-based edge suggestion for a node.
type SmartConnect struct {
	Enabled   bool    `json:"enabled" yaml:"enabled"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Node is a single element on the board. Nil flag pointers mean "use the
// default", which is true for Draggable and Selectable and false for
// Resizable.
type Node struct {
	ID           string        `json:"id" yaml:"id"`
	Kind         NodeKind      `json:"type" yaml:"type"`
	Position     geom.Point    `json:"position" yaml:"position"`
	Style        Style         `json:"style,omitempty" yaml:"style,omitempty"`
	Data         NodeData      `json:"data" yaml:"data"`
	Selected     bool          `json:"selected,omitempty" yaml:"selected,omitempty"`
	Draggable    *bool         `json:"draggable,omitempty" yaml:"draggable,omitempty"`
	Selectable   *bool         `json:"selectable,omitempty" yaml:"selectable,omitempty"`
	Resizable    *bool         `json:"resizable,omitempty" yaml:"resizable,omitempty"`
	SmartConnect *SmartConnect `json:"smartConnect,omitempty" yaml:"smartConnect,omitempty"`
}

// default dimensions when a node carries no explicit style
var defaultSizes = map[NodeKind]geom.Size{
	KindDefault: {Width: 200, Height: 100},
	KindFrame:   {Width: 400, Height: 300},
	KindText:    {Width: 120, Height: 40},
	KindSticky:  {Width: 200, Height: 200},
	KindShape:   {Width: 120, Height: 120},
	KindImage:   {Width: 240, Height: 180},
}

// DefaultSize returns the fallback dimensions for kind.
func DefaultSize(kind NodeKind) geom.Size {
	if s, ok := defaultSizes[kind]; ok {
		return s
	}
	return defaultSizes[KindDefault]
}

// IsFrame reports whether n is a container frame.
func (n *Node) IsFrame() bool { return n.Kind == KindFrame }

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.Kind == KindText }

// HasParent reports whether n is grouped inside a frame.
func (n *Node) HasParent() bool { return n.Data.ParentFrameID != "" }

func (n *Node) IsDraggable() bool  { return n.Draggable == nil || *n.Draggable }
func (n *Node) IsSelectable() bool { return n.Selectable == nil || *n.Selectable }
func (n *Node) IsResizable() bool  { return n.Resizable != nil && *n.Resizable }

// SmartConnectEnabled reports whether proximity suggestions apply to n.
func (n *Node) SmartConnectEnabled() bool {
	return n.SmartConnect != nil && n.SmartConnect.Enabled
}

// Size returns the node's dimensions, falling back to the kind default.
func (n *Node) Size() geom.Size {
	s := DefaultSize(n.Kind)
	if n.Style.Width != nil {
		s.Width = *n.Style.Width
	}
	if n.Style.Height != nil {
		s.Height = *n.Style.Height
	}
	return s
}

// Bounds returns the node's canvas-space bounding box.
func (n *Node) Bounds() geom.Rect {
	return n.BoundsAt(n.Position)
}

// BoundsAt returns the bounding box the node would have at position p.
func (n *Node) BoundsAt(p geom.Point) geom.Rect {
	s := n.Size()
	return geom.Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	if n.Style.Width != nil {
		w := *n.Style.Width
		n.Style.Width = &w
	}
	if n.Style.Height != nil {
		h := *n.Style.Height
		n.Style.Height = &h
	}
	if n.Data.Extra != nil {
		extra := make(map[string]any, len(n.Data.Extra))
		for k, v := range n.Data.Extra {
			extra[k] = v
		}
		n.Data.Extra = extra
	}
	if n.SmartConnect != nil {
		sc := *n.SmartConnect
		n.SmartConnect = &sc
	}
	return n
}

// Bool returns a pointer to b, for the optional flag fields.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to f, for the optional style fields.
func Float(f float64) *float64 { return &f }
