package flow

import (
	"errors"

	"github.com/recera/flowcanvas/pkg/geom"
)

var (
	ErrNodeNotFound  = errors.New("flow: node not found")
	ErrSelfLoop      = errors.New("flow: source and target are the same node")
	ErrTextEndpoint  = errors.New("flow: text nodes cannot be connected")
	ErrChildSource   = errors.New("flow: a node inside a frame cannot start a connection")
	ErrParentChild   = errors.New("flow: a frame cannot be connected to its own child")
	ErrDuplicateEdge = errors.New("flow: nodes are already connected")
	ErrNotFrame      = errors.New("flow: parent is not a frame")
	ErrCycle         = errors.New("flow: adoption would create a frame cycle")
)

// IndexOf returns the position of the node with the given id, or -1.
func IndexOf(nodes []Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a pointer into nodes for id, or nil.
func Find(nodes []Node, id string) *Node {
	if i := IndexOf(nodes, id); i >= 0 {
		return &nodes[i]
	}
	return nil
}

// CloneNodes returns a deep copy so callers can mutate the result and hand it
// out as a replacement array.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// CloneEdges returns a copy of edges.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// Sanitize drops nodes whose id was already seen, edges whose id was already
// seen, edges with a dangling endpoint and self-loops. Dangling parent frame
// references are cleared. Inputs are not modified.
func Sanitize(nodes []Node, edges []Edge) ([]Node, []Edge) {
	seen := make(map[string]struct{}, len(nodes))
	outNodes := make([]Node, 0, len(nodes))
	for i := range nodes {
		if nodes[i].ID == "" {
			continue
		}
		if _, dup := seen[nodes[i].ID]; dup {
			continue
		}
		seen[nodes[i].ID] = struct{}{}
		outNodes = append(outNodes, nodes[i].Clone())
	}
	for i := range outNodes {
		pid := outNodes[i].Data.ParentFrameID
		if pid == "" {
			continue
		}
		if p := Find(outNodes, pid); p == nil || !p.IsFrame() || pid == outNodes[i].ID {
			outNodes[i].Data.ParentFrameID = ""
		}
	}

	edgeSeen := make(map[string]struct{}, len(edges))
	outEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, dup := edgeSeen[e.ID]; dup {
			continue
		}
		_, okS := seen[e.Source]
		_, okT := seen[e.Target]
		if !okS || !okT || e.Source == e.Target {
			continue
		}
		edgeSeen[e.ID] = struct{}{}
		outEdges = append(outEdges, e)
	}
	return outNodes, outEdges
}

// HasEdgeBetween reports whether any edge joins a and b, in either direction.
func HasEdgeBetween(edges []Edge, a, b string) bool {
	for i := range edges {
		if edges[i].Connects(a, b) {
			return true
		}
	}
	return false
}

// RemoveEdgesBetween returns edges without those joining a and b, and whether
// anything was removed.
func RemoveEdgesBetween(edges []Edge, a, b string) ([]Edge, bool) {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Connects(a, b) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out) != len(edges)
}

// Children returns the ids of the nodes whose parent frame is frameID.
func Children(nodes []Node, frameID string) []string {
	var ids []string
	for i := range nodes {
		if nodes[i].Data.ParentFrameID == frameID {
			ids = append(ids, nodes[i].ID)
		}
	}
	return ids
}

// CheckSource reports whether the node can start a connection.
func CheckSource(nodes []Node, sourceID string) error {
	src := Find(nodes, sourceID)
	if src == nil {
		return ErrNodeNotFound
	}
	if src.IsText() {
		return ErrTextEndpoint
	}
	if src.HasParent() {
		return ErrChildSource
	}
	return nil
}

// CheckConnection applies every connection legality rule to the pair. The
// returned error names the first rule broken.
func CheckConnection(nodes []Node, edges []Edge, sourceID, targetID string) error {
	if sourceID == targetID {
		return ErrSelfLoop
	}
	if err := CheckSource(nodes, sourceID); err != nil {
		return err
	}
	src := Find(nodes, sourceID)
	tgt := Find(nodes, targetID)
	if tgt == nil {
		return ErrNodeNotFound
	}
	if tgt.IsText() {
		return ErrTextEndpoint
	}
	if src.Data.ParentFrameID == tgt.ID || tgt.Data.ParentFrameID == src.ID {
		return ErrParentChild
	}
	if HasEdgeBetween(edges, sourceID, targetID) {
		return ErrDuplicateEdge
	}
	return nil
}

// WouldCycle reports whether making frameID the parent of childID would
// create a parent chain that loops back on itself.
func WouldCycle(nodes []Node, childID, frameID string) bool {
	visited := map[string]bool{childID: true}
	for cur := frameID; cur != ""; {
		if visited[cur] {
			return true
		}
		visited[cur] = true
		n := Find(nodes, cur)
		if n == nil {
			return false
		}
		cur = n.Data.ParentFrameID
	}
	return false
}

// CheckAdoption validates setting frameID as the parent frame of childID.
func CheckAdoption(nodes []Node, childID, frameID string) error {
	frame := Find(nodes, frameID)
	if frame == nil || Find(nodes, childID) == nil {
		return ErrNodeNotFound
	}
	if !frame.IsFrame() {
		return ErrNotFrame
	}
	if WouldCycle(nodes, childID, frameID) {
		return ErrCycle
	}
	return nil
}

// ContainingFrame returns the innermost frame (smallest area) whose bounds
// fully contain rect, skipping the node with id exclude. It returns nil when
// no frame qualifies.
func ContainingFrame(nodes []Node, rect geom.Rect, exclude string) *Node {
	var best *Node
	for i := range nodes {
		n := &nodes[i]
		if !n.IsFrame() || n.ID == exclude {
			continue
		}
		b := n.Bounds()
		if !b.ContainsRect(rect) {
			continue
		}
		if best == nil || b.Area() < best.Bounds().Area() {
			best = n
		}
	}
	return best
}

// SelectedIDs returns the ids of all selected nodes in order.
func SelectedIDs(nodes []Node) []string {
	var ids []string
	for i := range nodes {
		if nodes[i].Selected {
			ids = append(ids, nodes[i].ID)
		}
	}
	return ids
}
