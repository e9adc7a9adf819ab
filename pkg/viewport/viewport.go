// Package viewport owns the canvas pan/zoom transform and turns wheel and
// trackpad input into viewport changes.
package viewport

import (
	"math"

	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/reactive"
)

// Options configures the controller. Zero values take the defaults.
type Options struct {
	MinZoom   float64 // default 0.1
	MaxZoom   float64 // default 4
	ZoomSpeed float64 // default 0.1
	PanSpeed  float64 // default 1.0

	DisableZoom bool
	DisablePan  bool

	// Default is the initial viewport; a zero Zoom means 1.
	Default geom.Viewport

	// Controlled hands every change to OnChange without storing it; the owner
	// writes the accepted value back with SetViewport.
	Controlled bool
	OnChange   func(geom.Viewport)
}

func (o *Options) withDefaults() Options {
	d := Options{
		MinZoom:   0.1,
		MaxZoom:   4,
		ZoomSpeed: 0.1,
		PanSpeed:  1.0,
		Default:   geom.DefaultViewport,
	}
	if o == nil {
		return d
	}
	if o.MinZoom > 0 {
		d.MinZoom = o.MinZoom
	}
	if o.MaxZoom > 0 {
		d.MaxZoom = o.MaxZoom
	}
	if d.MaxZoom < d.MinZoom {
		d.MaxZoom = d.MinZoom
	}
	if o.ZoomSpeed != 0 {
		d.ZoomSpeed = o.ZoomSpeed
	}
	if o.PanSpeed != 0 {
		d.PanSpeed = o.PanSpeed
	}
	d.DisableZoom = o.DisableZoom
	d.DisablePan = o.DisablePan
	d.Controlled = o.Controlled
	d.OnChange = o.OnChange
	d.Default = o.Default
	if d.Default.Zoom == 0 {
		d.Default.Zoom = 1
	}
	d.Default.Zoom = geom.Clamp(d.Default.Zoom, d.MinZoom, d.MaxZoom)
	return d
}

// WheelEvent carries raw wheel deltas in pixels.
type WheelEvent struct {
	DeltaX float64
	DeltaY float64
}

// Controller owns the viewport of one canvas.
type Controller struct {
	opts  Options
	state *reactive.State[geom.Viewport]
	rect  geom.Rect
}

// NewController creates a controller. sched may be nil when no frame tasks
// depend on the viewport.
func NewController(opts *Options, sched reactive.Scheduler) *Controller {
	o := opts.withDefaults()
	return &Controller{
		opts:  o,
		state: reactive.NewState(o.Default, sched),
	}
}

// Options returns the effective options.
func (c *Controller) Options() Options { return c.opts }

// State exposes the viewport signal so frame tasks can subscribe to it.
func (c *Controller) State() *reactive.State[geom.Viewport] { return c.state }

// Viewport returns the current viewport.
func (c *Controller) Viewport() geom.Viewport { return c.state.Get() }

// SetViewport replaces the viewport without reporting it back through
// OnChange. Zoom is clamped.
func (c *Controller) SetViewport(v geom.Viewport) {
	v.Zoom = c.ClampZoom(v.Zoom)
	c.state.Set(v)
}

// SetRect records the on-screen rectangle of the canvas element.
func (c *Controller) SetRect(r geom.Rect) { c.rect = r }

// Rect returns the on-screen rectangle of the canvas element.
func (c *Controller) Rect() geom.Rect { return c.rect }

// ClampZoom limits z to the configured bounds.
func (c *Controller) ClampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return c.opts.MinZoom
	}
	return geom.Clamp(z, c.opts.MinZoom, c.opts.MaxZoom)
}

// Wheel applies a wheel event. A mostly horizontal delta pans; otherwise the
// vertical delta zooms around the center of the canvas. It reports whether the
// viewport changed.
func (c *Controller) Wheel(ev WheelEvent) bool {
	if math.Abs(ev.DeltaX) > math.Abs(ev.DeltaY) {
		return c.Pan(-ev.DeltaX*c.opts.PanSpeed, -ev.DeltaY*c.opts.PanSpeed)
	}
	if c.opts.DisableZoom || ev.DeltaY == 0 {
		return false
	}
	v := c.Viewport()
	delta := -ev.DeltaY
	next := c.ClampZoom(v.Zoom * (1 + delta*c.opts.ZoomSpeed*0.01))
	return c.ZoomAt(next, c.rect.Center())
}

// Pan shifts the viewport by a screen-space offset.
func (c *Controller) Pan(dx, dy float64) bool {
	if c.opts.DisablePan || (dx == 0 && dy == 0) {
		return false
	}
	v := c.Viewport()
	v.X += dx
	v.Y += dy
	return c.commit(v)
}

// ZoomAt sets the zoom level while keeping the canvas point under the screen
// point anchor fixed.
func (c *Controller) ZoomAt(zoom float64, anchor geom.Point) bool {
	if c.opts.DisableZoom {
		return false
	}
	v := c.Viewport()
	focus := geom.ScreenToCanvas(anchor, v, c.rect)
	z := c.ClampZoom(zoom)
	next := geom.Viewport{
		X:    anchor.X - c.rect.X - focus.X*z,
		Y:    anchor.Y - c.rect.Y - focus.Y*z,
		Zoom: z,
	}
	return c.commit(next)
}

// ZoomBy multiplies the zoom level by factor around the canvas center.
func (c *Controller) ZoomBy(factor float64) bool {
	return c.ZoomAt(c.Viewport().Zoom*factor, c.rect.Center())
}

// FitBounds zooms and pans so bounds fill the canvas with padding pixels of
// margin on every side.
func (c *Controller) FitBounds(bounds geom.Rect, padding float64) bool {
	w, h := c.rect.Width, c.rect.Height
	if w <= 0 || h <= 0 {
		return false
	}
	gw, gh := bounds.Width, bounds.Height
	if gw <= 0 {
		gw = 1
	}
	if gh <= 0 {
		gh = 1
	}
	s := math.Min((w-2*padding)/gw, (h-2*padding)/gh)
	if s <= 0 {
		s = 1
	}
	s = c.ClampZoom(s)
	return c.commit(geom.Viewport{
		X:    w*0.5 - (bounds.X+gw*0.5)*s,
		Y:    h*0.5 - (bounds.Y+gh*0.5)*s,
		Zoom: s,
	})
}

// CenterOn pans so the canvas point p sits in the middle of the canvas.
func (c *Controller) CenterOn(p geom.Point) bool {
	v := c.Viewport()
	v.X = c.rect.Width*0.5 - p.X*v.Zoom
	v.Y = c.rect.Height*0.5 - p.Y*v.Zoom
	return c.commit(v)
}

// Reset restores the default viewport.
func (c *Controller) Reset() bool {
	return c.commit(c.opts.Default)
}

func (c *Controller) commit(next geom.Viewport) bool {
	if next == c.Viewport() {
		return false
	}
	debug.Logger().Debug("[Viewport] change", "x", next.X, "y", next.Y, "zoom", next.Zoom)
	if !c.opts.Controlled {
		c.state.Set(next)
	}
	if c.opts.OnChange != nil {
		c.opts.OnChange(next)
	}
	return true
}
