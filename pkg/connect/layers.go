package connect

import (
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// Layer is one hit-test pass over the node list.
type Layer interface {
	Name() string
	Hit(nodes []flow.Node, p geom.Point) (id string, ok bool)
}

type kindLayer struct {
	name  string
	match func(*flow.Node) bool
}

// NodeLayer returns a layer that hits the topmost node accepted by match.
// Later nodes in the slice are drawn above earlier ones.
func NodeLayer(name string, match func(*flow.Node) bool) Layer {
	return kindLayer{name: name, match: match}
}

func (l kindLayer) Name() string { return l.name }

func (l kindLayer) Hit(nodes []flow.Node, p geom.Point) (string, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		if !l.match(n) {
			continue
		}
		if n.Bounds().Contains(p) {
			return n.ID, true
		}
	}
	return "", false
}

var (
	// ChildLayer hits every node that is not a frame.
	ChildLayer = NodeLayer("children", func(n *flow.Node) bool { return !n.IsFrame() })
	// FrameLayer hits frames.
	FrameLayer = NodeLayer("frames", (*flow.Node).IsFrame)
)

// DefaultLayers lets nodes sitting on top of a frame win over the frame.
func DefaultLayers() []Layer {
	return []Layer{ChildLayer, FrameLayer}
}

// HitTest runs layers in order and returns the first hit.
func HitTest(layers []Layer, nodes []flow.Node, p geom.Point) (string, bool) {
	for _, l := range layers {
		if id, ok := l.Hit(nodes, p); ok {
			return id, true
		}
	}
	return "", false
}
