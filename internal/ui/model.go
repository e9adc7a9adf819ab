// Package ui is a terminal front-end for a canvas. Terminal cells are mapped
// to screen pixels, so mouse gestures drive the same controllers a browser
// host would.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/render"
	"github.com/recera/flowcanvas/pkg/snap"
	"github.com/recera/flowcanvas/pkg/viewport"
)

const (
	// cell size in screen pixels
	cellW = 10.0
	cellH = 20.0

	frameInterval = time.Second / 60
	panStep       = 40.0
	footerLines   = 2
)

var edgeTypes = []flow.EdgeType{flow.EdgeSmoothStep, flow.EdgeStep, flow.EdgeBezier, flow.EdgeLine}

type frameMsg time.Time

// board is the mutable part of the model; bubbletea copies Model by value.
type board struct {
	canvas   *canvas.Canvas
	status   string
	edgeType flow.EdgeType
	snap     snap.Settings
}

// Model is the bubbletea model of the board viewer.
type Model struct {
	b     *board
	keys  KeyMap
	help  help.Model
	theme render.Theme

	width    int
	height   int
	showHelp bool
	quitting bool

	statusStyle lipgloss.Style
}

// NewModel builds a viewer over a canvas created from opts. opts' callbacks
// are replaced by status reporting.
func NewModel(opts canvas.Options, theme render.Theme) Model {
	b := &board{edgeType: opts.DefaultEdgeType, snap: opts.Snap}
	if !b.edgeType.Valid() {
		b.edgeType = flow.EdgeSmoothStep
	}
	opts.Callbacks = canvas.Callbacks{
		OnConnect: func(e flow.Edge) {
			b.status = fmt.Sprintf("connected %s → %s", e.Source, e.Target)
		},
		OnNodeDragEnd: func(id string, pos geom.Point) {
			b.status = fmt.Sprintf("moved %s to (%.0f, %.0f)", id, pos.X, pos.Y)
		},
		OnNodeClick: func(id string) {
			b.status = "clicked " + id
		},
		OnSelectionChange: func(ids []string) {
			b.status = fmt.Sprintf("%d selected", len(ids))
		},
		OnContextMenu: func(p geom.Point) {
			b.status = fmt.Sprintf("context menu at (%.0f, %.0f)", p.X, p.Y)
		},
	}
	b.canvas = canvas.New(opts)

	return Model{
		b:           b,
		keys:        DefaultKeyMap,
		help:        help.New(),
		theme:       theme,
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Selected)),
	}
}

// Canvas exposes the canvas being viewed.
func (m Model) Canvas() *canvas.Canvas { return m.b.canvas }

// Status returns the last status line.
func (m Model) Status() string { return m.b.status }

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	c := m.b.canvas
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		rows := max(msg.Height-footerLines, 1)
		c.SetRect(geom.Rect{Width: float64(msg.Width) * cellW, Height: float64(rows) * cellH})

	case frameMsg:
		c.Frame()
		return m, tick()

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func cellPoint(x, y int) geom.Point {
	return geom.Pt((float64(x)+0.5)*cellW, (float64(y)+0.5)*cellH)
}

func (m Model) handleMouse(msg tea.MouseMsg) {
	c := m.b.canvas
	ev := canvas.PointerEvent{Point: cellPoint(msg.X, msg.Y), Shift: msg.Shift}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		c.Wheel(viewport.WheelEvent{DeltaY: -100})
		return
	case tea.MouseButtonWheelDown:
		c.Wheel(viewport.WheelEvent{DeltaY: 100})
		return
	case tea.MouseButtonWheelLeft:
		c.Wheel(viewport.WheelEvent{DeltaX: -100})
		return
	case tea.MouseButtonWheelRight:
		c.Wheel(viewport.WheelEvent{DeltaX: 100})
		return
	}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			c.PointerDown(ev)
		}
	case tea.MouseActionMotion:
		c.PointerMove(ev)
	case tea.MouseActionRelease:
		c.PointerUp(ev)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.b.canvas
	vc := c.ViewportController()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.Cancel):
		c.KeyDown("Escape")
		m.b.status = "cancelled"
	case key.Matches(msg, m.keys.Up):
		vc.Pan(0, panStep)
	case key.Matches(msg, m.keys.Down):
		vc.Pan(0, -panStep)
	case key.Matches(msg, m.keys.Left):
		vc.Pan(panStep, 0)
	case key.Matches(msg, m.keys.Right):
		vc.Pan(-panStep, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		vc.ZoomBy(1.2)
	case key.Matches(msg, m.keys.ZoomOut):
		vc.ZoomBy(1 / 1.2)
	case key.Matches(msg, m.keys.Reset):
		vc.Reset()
	case key.Matches(msg, m.keys.Fit):
		if bounds, ok := boardBounds(c.Nodes()); ok {
			vc.FitBounds(bounds, 40)
		}
	case key.Matches(msg, m.keys.EdgeType):
		m.b.edgeType = nextEdgeType(m.b.edgeType)
		c.SetDefaultEdgeType(m.b.edgeType)
		m.b.status = "new edges: " + string(m.b.edgeType)
	case key.Matches(msg, m.keys.Snap):
		m.b.snap.Enabled = !m.b.snap.Enabled
		c.SetSnap(m.b.snap)
		m.b.status = fmt.Sprintf("snap %v", m.b.snap.Enabled)
	}
	return m, nil
}

func nextEdgeType(t flow.EdgeType) flow.EdgeType {
	for i, e := range edgeTypes {
		if e == t {
			return edgeTypes[(i+1)%len(edgeTypes)]
		}
	}
	return edgeTypes[0]
}

func boardBounds(nodes []flow.Node) (geom.Rect, bool) {
	if len(nodes) == 0 {
		return geom.Rect{}, false
	}
	b := nodes[0].Bounds()
	for i := 1; i < len(nodes); i++ {
		r := nodes[i].Bounds()
		tl := geom.Pt(min(b.Left(), r.Left()), min(b.Top(), r.Top()))
		br := geom.Pt(max(b.Right(), r.Right()), max(b.Bottom(), r.Bottom()))
		b = geom.RectFromPoints(tl, br)
	}
	return b, true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "loading board..."
	}
	s := m.b.canvas.Snapshot()
	rows := m.height - footerLines
	if m.showHelp {
		rows -= len(m.keys.FullHelp()[0]) - 1
	}
	rows = max(rows, 1)
	body := draw(s, m.theme, m.width, rows)

	v := s.Viewport
	status := fmt.Sprintf("zoom %.0f%%  %s  %s", v.Zoom*100, s.Gesture, m.b.status)
	return body + "\n" + m.statusStyle.Render(status) + "\n" + m.help.View(m.keys)
}
