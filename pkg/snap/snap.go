// Package snap aligns a dragged node with the edges and centers of the other
// nodes on the board and reports the guides to draw.
package snap

import (
	"fmt"
	"math"

	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// GuideType is the orientation of a guide line.
type GuideType string

const (
	Horizontal GuideType = "horizontal"
	Vertical   GuideType = "vertical"
)

// Settings controls the snap engine.
type Settings struct {
	Enabled     bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Threshold   float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
	ShowGuides  bool    `json:"showGuides" yaml:"showGuides" toml:"show_guides"`
	SnapToNodes bool    `json:"snapToNodes" yaml:"snapToNodes" toml:"snap_to_nodes"`
	SnapToGrid  bool    `json:"snapToGrid" yaml:"snapToGrid" toml:"snap_to_grid"`
	GridSize    float64 `json:"gridSize" yaml:"gridSize" toml:"grid_size"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Enabled:     true,
		Threshold:   10,
		ShowGuides:  true,
		SnapToNodes: true,
		SnapToGrid:  false,
		GridSize:    20,
	}
}

// Guide is an alignment line. Position is an x coordinate for vertical guides
// and a y coordinate for horizontal ones. Nodes lists the node the dragged
// node aligned with; it is empty for grid lines.
type Guide struct {
	ID       string    `json:"id"`
	Type     GuideType `json:"type"`
	Position float64   `json:"position"`
	Nodes    []string  `json:"nodes"`
	Strength float64   `json:"strength"`
}

// Result is the corrected position plus the guides that fired.
type Result struct {
	Position geom.Point
	Guides   []Guide
	Snapped  bool
}

type target struct {
	value  float64
	nodeID string
}

// alignment within this distance of a resolved axis also gets a guide
const coincident = 1e-6

// Calculate snaps the dragged node, proposed at pt, against others.
//
// For each axis the checks run in order (top, bottom, centerY and left, right,
// centerX) against the candidates in board order; the first candidate within
// the threshold wins for a check, and the first check that snaps decides the
// axis. Later checks that coincide with the corrected position still emit a
// guide. Frames are never snapped.
func Calculate(dragged flow.Node, pt geom.Point, others []flow.Node, canvasSize geom.Size, s Settings) Result {
	res := Result{Position: pt}
	if !s.Enabled || dragged.IsFrame() || s.Threshold <= 0 {
		return res
	}

	var vTargets, hTargets []target
	if s.SnapToNodes {
		for i := range others {
			o := &others[i]
			if o.ID == dragged.ID {
				continue
			}
			b := o.Bounds()
			vTargets = append(vTargets,
				targetAt(b.Left(), o.ID), targetAt(b.Right(), o.ID), targetAt(b.CenterX(), o.ID))
			hTargets = append(hTargets,
				targetAt(b.Top(), o.ID), targetAt(b.Bottom(), o.ID), targetAt(b.CenterY(), o.ID))
		}
	}
	if s.SnapToGrid && s.GridSize > 0 {
		vTargets = append(vTargets, gridTargets(pt.X, dragged.Size().Width, canvasSize.Width, s)...)
		hTargets = append(hTargets, gridTargets(pt.Y, dragged.Size().Height, canvasSize.Height, s)...)
	}

	size := dragged.Size()

	// offsets of each checked line from the node origin
	yChecks := []float64{0, size.Height, size.Height / 2}
	xChecks := []float64{0, size.Width, size.Width / 2}

	y, hGuides := resolveAxis(pt.Y, yChecks, hTargets, Horizontal, s.Threshold)
	x, vGuides := resolveAxis(pt.X, xChecks, vTargets, Vertical, s.Threshold)

	res.Position = geom.Point{X: x, Y: y}
	res.Guides = append(hGuides, vGuides...)
	res.Snapped = len(res.Guides) > 0
	if !s.ShowGuides {
		res.Guides = nil
	}
	return res
}

func targetAt(v float64, id string) target { return target{value: v, nodeID: id} }

func resolveAxis(origin float64, checks []float64, targets []target, kind GuideType, threshold float64) (float64, []Guide) {
	var guides []Guide
	resolved := false
	pos := origin
	for _, off := range checks {
		line := pos + off
		for _, t := range targets {
			d := math.Abs(line - t.value)
			if resolved {
				if d > coincident {
					continue
				}
			} else if d > threshold {
				continue
			}
			if !resolved {
				pos = t.value - off
				resolved = true
			}
			guides = append(guides, newGuide(kind, t, d, threshold))
			break
		}
	}
	return pos, guides
}

func newGuide(kind GuideType, t target, dist, threshold float64) Guide {
	g := Guide{
		ID:       fmt.Sprintf("%s-%g", kind, t.value),
		Type:     kind,
		Position: t.value,
		Strength: 1 - math.Min(dist, threshold)/threshold,
	}
	if t.nodeID != "" {
		g.Nodes = []string{t.nodeID}
		g.ID += "-" + t.nodeID
	}
	return g
}

// gridTargets lists the grid lines near a node spanning [pos, pos+extent].
// With a known canvas extent the lines stay within it.
func gridTargets(pos, extent, limit float64, s Settings) []target {
	lo := math.Floor((pos-s.Threshold)/s.GridSize) * s.GridSize
	hi := math.Ceil((pos+extent+s.Threshold)/s.GridSize) * s.GridSize
	var out []target
	for v := lo; v <= hi; v += s.GridSize {
		if limit > 0 && (v < 0 || v > limit) {
			continue
		}
		out = append(out, target{value: v})
	}
	return out
}
