// Package scenario replays scripted gestures against a canvas. A scenario
// is a YAML board, a list of input steps in screen pixels and the state
// expected afterwards.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/viewport"
)

// ErrEmptyStep reports a step that names no action.
var ErrEmptyStep = errors.New("scenario: step has no action")

// XY is a point written as [x, y].
type XY [2]float64

func (p XY) Point() geom.Point { return geom.Pt(p[0], p[1]) }

// Scenario is one replay file.
type Scenario struct {
	Name     string         `yaml:"name"`
	Rect     geom.Rect      `yaml:"rect"`
	Viewport *geom.Viewport `yaml:"viewport"`
	Snap     *bool          `yaml:"snap"`
	Nodes    []flow.Node    `yaml:"nodes"`
	Edges    []flow.Edge    `yaml:"edges"`
	Steps    []Step         `yaml:"steps"`
	Expect   Expect         `yaml:"expect"`
}

// Step is one input. Exactly one action field is set; Shift and Control
// modify pointer actions. Every step is followed by one animation frame.
type Step struct {
	Down  *XY `yaml:"down"`
	Move  *XY `yaml:"move"`
	Up    *XY `yaml:"up"`
	Wheel *XY `yaml:"wheel"`

	TouchStart *Touch `yaml:"touchStart"`
	TouchMove  *Touch `yaml:"touchMove"`
	TouchEnd   *int   `yaml:"touchEnd"`

	Key    string `yaml:"key"`
	Cancel bool   `yaml:"cancel"`
	// Wait advances the clock, e.g. "150ms".
	Wait string `yaml:"wait"`
	// Frames runs extra animation frames.
	Frames int `yaml:"frames"`

	Shift   bool `yaml:"shift"`
	Control bool `yaml:"control"`
}

type Touch struct {
	ID int `yaml:"id"`
	At XY  `yaml:"at"`
}

// Expect lists the checks made after the last step. Unset fields are not
// checked.
type Expect struct {
	Edges     *int              `yaml:"edges"`
	Connected [][2]string       `yaml:"connected"`
	Positions map[string]XY     `yaml:"positions"`
	Parents   map[string]string `yaml:"parents"`
	Selected  []string          `yaml:"selected"`
	Viewport  *geom.Viewport    `yaml:"viewport"`
	Gesture   string            `yaml:"gesture"`
	// Events must appear in this order; other events may be interleaved.
	Events    []string `yaml:"events"`
	Tolerance float64  `yaml:"tolerance"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("scenario %q step %d: %w", s.Name, i+1, err)
		}
	}
	return &s, nil
}

func (st Step) validate() error {
	n := 0
	for _, set := range []bool{
		st.Down != nil, st.Move != nil, st.Up != nil, st.Wheel != nil,
		st.TouchStart != nil, st.TouchMove != nil, st.TouchEnd != nil,
		st.Key != "", st.Cancel, st.Wait != "", st.Frames > 0,
	} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		return ErrEmptyStep
	case n > 1:
		return fmt.Errorf("scenario: step has %d actions", n)
	}
	if st.Wait != "" {
		if d, err := time.ParseDuration(st.Wait); err != nil || d < 0 {
			return fmt.Errorf("scenario: bad wait %q", st.Wait)
		}
	}
	return nil
}

// Result is the outcome of a replay.
type Result struct {
	Name     string
	Steps    int
	Frames   int
	Events   []string
	Snapshot canvas.Snapshot
	Failures []string
}

// OK reports whether every expectation held.
func (r *Result) OK() bool { return len(r.Failures) == 0 }

// clock is the replay's time source; it only moves on wait steps.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

// Run replays s on a fresh canvas built from base. base's board and callbacks
// are replaced.
func Run(s *Scenario, base canvas.Options) (*Result, error) {
	res := &Result{Name: s.Name}
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	record := func(format string, args ...any) {
		res.Events = append(res.Events, fmt.Sprintf(format, args...))
	}

	opts := base
	opts.Nodes, opts.Edges = s.Nodes, s.Edges
	opts.Now = clk.Now
	if s.Viewport != nil {
		opts.Viewport.Default = *s.Viewport
	}
	if s.Snap != nil {
		opts.Snap.Enabled = *s.Snap
	}
	opts.Callbacks = canvas.Callbacks{
		OnConnect:         func(e flow.Edge) { record("connect %s %s", e.Source, e.Target) },
		OnNodeDragStart:   func(id string, _ geom.Point) { record("dragStart %s", id) },
		OnNodeDragEnd:     func(id string, _ geom.Point) { record("dragEnd %s", id) },
		OnSelectionChange: func(ids []string) { record("selection %v", ids) },
		OnNodeClick:       func(id string) { record("click %s", id) },
		OnCanvasClick:     func(geom.Point) { record("canvasClick") },
		OnContextMenu:     func(geom.Point) { record("contextMenu") },
	}
	c := canvas.New(opts)
	c.SetRect(s.Rect)

	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("scenario %q step %d: %w", s.Name, i+1, err)
		}
		apply(c, clk, st)
		c.Frame()
		res.Frames++
		for range st.Frames {
			c.Frame()
			res.Frames++
		}
		res.Steps++
	}
	res.Snapshot = c.Snapshot()
	res.Failures = s.Expect.check(res)
	debug.Logger().Debug("[Scenario] replayed", "name", s.Name, "steps", res.Steps, "failures", len(res.Failures))
	return res, nil
}

func apply(c *canvas.Canvas, clk *clock, st Step) {
	pe := func(p *XY) canvas.PointerEvent {
		return canvas.PointerEvent{Point: p.Point(), Shift: st.Shift, Control: st.Control}
	}
	switch {
	case st.Down != nil:
		c.PointerDown(pe(st.Down))
	case st.Move != nil:
		c.PointerMove(pe(st.Move))
	case st.Up != nil:
		c.PointerUp(pe(st.Up))
	case st.Wheel != nil:
		c.Wheel(viewport.WheelEvent{DeltaX: st.Wheel[0], DeltaY: st.Wheel[1]})
	case st.TouchStart != nil:
		c.TouchStart(st.TouchStart.ID, st.TouchStart.At.Point())
	case st.TouchMove != nil:
		c.TouchMove(st.TouchMove.ID, st.TouchMove.At.Point())
	case st.TouchEnd != nil:
		c.TouchEnd(*st.TouchEnd)
	case st.Key != "":
		c.KeyDown(st.Key)
	case st.Cancel:
		c.Cancel()
	case st.Wait != "":
		d, _ := time.ParseDuration(st.Wait)
		clk.now = clk.now.Add(d)
	}
}

func (e Expect) check(res *Result) []string {
	var fails []string
	failf := func(format string, args ...any) {
		fails = append(fails, fmt.Sprintf(format, args...))
	}
	tol := e.Tolerance
	if tol <= 0 {
		tol = 0.5
	}
	snap := res.Snapshot

	if e.Edges != nil && len(snap.Edges) != *e.Edges {
		failf("edges: got %d, want %d", len(snap.Edges), *e.Edges)
	}
	for _, pair := range e.Connected {
		if !flow.HasEdgeBetween(snap.Edges, pair[0], pair[1]) {
			failf("no edge between %s and %s", pair[0], pair[1])
		}
	}
	for _, id := range sortedKeys(e.Positions) {
		want := e.Positions[id].Point()
		n := flow.Find(snap.Nodes, id)
		switch {
		case n == nil:
			failf("position %s: node missing", id)
		case n.Position.Distance(want) > tol:
			failf("position %s: got (%g, %g), want (%g, %g)", id, n.Position.X, n.Position.Y, want.X, want.Y)
		}
	}
	for _, id := range sortedKeys(e.Parents) {
		n := flow.Find(snap.Nodes, id)
		if n == nil {
			failf("parent %s: node missing", id)
			continue
		}
		if n.Data.ParentFrameID != e.Parents[id] {
			failf("parent %s: got %q, want %q", id, n.Data.ParentFrameID, e.Parents[id])
		}
	}
	if e.Selected != nil {
		got := flow.SelectedIDs(snap.Nodes)
		want := slices.Clone(e.Selected)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			failf("selected: got %v, want %v", got, want)
		}
	}
	if v := e.Viewport; v != nil {
		g := snap.Viewport
		if geom.Pt(g.X, g.Y).Distance(geom.Pt(v.X, v.Y)) > tol || math.Abs(g.Zoom-v.Zoom) > 1e-6 {
			failf("viewport: got %+v, want %+v", g, *v)
		}
	}
	if e.Gesture != "" && snap.Gesture != e.Gesture {
		failf("gesture: got %s, want %s", snap.Gesture, e.Gesture)
	}
	i := 0
	for _, ev := range res.Events {
		if i < len(e.Events) && ev == e.Events[i] {
			i++
		}
	}
	if i < len(e.Events) {
		failf("events: missing %q in %v", e.Events[i], res.Events)
	}
	return fails
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
