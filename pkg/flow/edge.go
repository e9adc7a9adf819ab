package flow

import "github.com/google/uuid"

// EdgeType selects how an edge path is routed between its endpoints.
type EdgeType string

const (
	EdgeLine       EdgeType = "line"
	EdgeStep       EdgeType = "step"
	EdgeSmoothStep EdgeType = "smoothstep"
	EdgeBezier     EdgeType = "bezier"
)

// Valid reports whether t is one of the known routing styles.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeLine, EdgeStep, EdgeSmoothStep, EdgeBezier:
		return true
	}
	return false
}

// EdgeData holds the presentational fields of an edge.
type EdgeData struct {
	Label              string  `json:"label,omitempty" yaml:"label,omitempty"`
	Color              string  `json:"color,omitempty" yaml:"color,omitempty"`
	StrokeWidth        float64 `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	AnimationSpeed     float64 `json:"animationSpeed,omitempty" yaml:"animationSpeed,omitempty"`
	AnimationDirection string  `json:"animationDirection,omitempty" yaml:"animationDirection,omitempty"`
}

// Edge connects two nodes by id.
type Edge struct {
	ID       string   `json:"id" yaml:"id"`
	Source   string   `json:"source" yaml:"source"`
	Target   string   `json:"target" yaml:"target"`
	Type     EdgeType `json:"type" yaml:"type"`
	Animated bool     `json:"animated,omitempty" yaml:"animated,omitempty"`
	Data     EdgeData `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewEdge creates an edge with a fresh id. An unknown type falls back to
// smoothstep.
func NewEdge(source, target string, t EdgeType) Edge {
	if !t.Valid() {
		t = EdgeSmoothStep
	}
	return Edge{
		ID:     "e-" + uuid.NewString(),
		Source: source,
		Target: target,
		Type:   t,
	}
}

// Connects reports whether e joins a and b in either direction.
func (e *Edge) Connects(a, b string) bool {
	return (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a)
}

// Touches reports whether id is either endpoint of e.
func (e *Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}
