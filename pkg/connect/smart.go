package connect

import (
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// DefaultSmartThreshold applies when a node enables smart connect without a
// threshold of its own.
const DefaultSmartThreshold = 100.0

// Suggestion is a proposed edge shown as a dashed preview during a drag.
type Suggestion struct {
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	From     geom.Point `json:"from"`
	To       geom.Point `json:"to"`
	Distance float64    `json:"distance"`
}

// SmartEligible reports whether n may receive smart-connect suggestions.
func SmartEligible(n *flow.Node) bool {
	return n.SmartConnectEnabled() && !n.IsFrame() && !n.IsText() && !n.HasParent()
}

// Nearest finds the closest node that the dragged node could legally connect
// to, measuring the gap between bounding boxes. nodes must already hold the
// dragged node at its current position. Frames are never suggested, nor are
// nodes for which skip reports true, such as the rest of a dragged group.
// skip may be nil.
func Nearest(nodes []flow.Node, edges []flow.Edge, draggedID string, skip func(id string) bool) (Suggestion, bool) {
	src := flow.Find(nodes, draggedID)
	if src == nil || !SmartEligible(src) {
		return Suggestion{}, false
	}
	threshold := src.SmartConnect.Threshold
	if threshold <= 0 {
		threshold = DefaultSmartThreshold
	}

	sb := src.Bounds()
	var (
		best     *flow.Node
		bestDist float64
	)
	for i := range nodes {
		n := &nodes[i]
		if n.ID == draggedID || n.IsFrame() || (skip != nil && skip(n.ID)) {
			continue
		}
		d := sb.Distance(n.Bounds())
		if d > threshold || (best != nil && d >= bestDist) {
			continue
		}
		if flow.CheckConnection(nodes, edges, draggedID, n.ID) != nil {
			continue
		}
		best, bestDist = n, d
	}
	if best == nil {
		return Suggestion{}, false
	}
	return Suggestion{
		Source:   draggedID,
		Target:   best.ID,
		From:     sb.Center(),
		To:       best.Bounds().Center(),
		Distance: bestDist,
	}, true
}
