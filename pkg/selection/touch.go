package selection

import (
	"time"

	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/geom"
)

// Mode is what the current touch sequence has been classified as.
type Mode int

const (
	ModeNone Mode = iota
	ModePan
	ModePinch
)

// GestureKind identifies a recognized touch gesture.
type GestureKind int

const (
	GestureTap GestureKind = iota + 1
	GestureLongPress
	GesturePan
	GesturePinchStart
	GesturePinch
)

func (k GestureKind) String() string {
	switch k {
	case GestureTap:
		return "tap"
	case GestureLongPress:
		return "longpress"
	case GesturePan:
		return "pan"
	case GesturePinchStart:
		return "pinchstart"
	case GesturePinch:
		return "pinch"
	}
	return "none"
}

// Gesture is emitted by Touch. Point is the tap or long-press location, or
// the pinch midpoint. Delta is the pan step since the previous pan. Scale is
// the finger distance relative to the distance when the pinch started.
type Gesture struct {
	Kind  GestureKind
	Point geom.Point
	Delta geom.Point
	Scale float64
}

// TouchOptions configures the classifier. Zero values take the defaults.
type TouchOptions struct {
	LongPress  time.Duration // default 750ms
	Tolerance  float64       // default 10px
	TapTimeout time.Duration // default 300ms
	Now        func() time.Time
}

// Touch classifies raw touch points into taps, long presses, pans and
// pinches.
type Touch struct {
	opts TouchOptions

	mode    Mode
	points  map[int]geom.Point
	order   []int
	start   geom.Point
	began   time.Time
	last    geom.Point
	armed   bool
	pinchD0 float64
}

func NewTouch(opts TouchOptions) *Touch {
	if opts.LongPress <= 0 {
		opts.LongPress = 750 * time.Millisecond
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 10
	}
	if opts.TapTimeout <= 0 {
		opts.TapTimeout = 300 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Touch{opts: opts, points: map[int]geom.Point{}}
}

// Mode returns the current classification.
func (t *Touch) Mode() Mode { return t.mode }

// Count returns the number of active touch points.
func (t *Touch) Count() int { return len(t.points) }

// Start registers touch id at screen point p. A second touch switches to
// pinch mode and returns a GesturePinchStart.
func (t *Touch) Start(id int, p geom.Point) (Gesture, bool) {
	if _, ok := t.points[id]; !ok {
		t.order = append(t.order, id)
	}
	t.points[id] = p

	switch len(t.points) {
	case 1:
		t.mode = ModeNone
		t.start, t.last = p, p
		t.began = t.opts.Now()
		t.armed = true
		return Gesture{}, false
	case 2:
		t.armed = false
		a, b := t.pair()
		t.mode = ModePinch
		t.pinchD0 = a.Distance(b)
		debug.Logger().Debug("[Touch] pinch start", "distance", t.pinchD0)
		return Gesture{Kind: GesturePinchStart, Point: a.Midpoint(b), Scale: 1}, true
	}
	return Gesture{}, false
}

// Move updates touch id.
func (t *Touch) Move(id int, p geom.Point) (Gesture, bool) {
	if _, ok := t.points[id]; !ok {
		return Gesture{}, false
	}
	t.points[id] = p

	switch t.mode {
	case ModeNone:
		if len(t.points) != 1 || p.Distance(t.start) <= t.opts.Tolerance {
			return Gesture{}, false
		}
		t.armed = false
		t.mode = ModePan
		debug.Logger().Debug("[Touch] pan")
		fallthrough
	case ModePan:
		d := p.Sub(t.last)
		t.last = p
		return Gesture{Kind: GesturePan, Point: p, Delta: d}, true
	case ModePinch:
		if len(t.points) < 2 || t.pinchD0 == 0 {
			return Gesture{}, false
		}
		a, b := t.pair()
		return Gesture{Kind: GesturePinch, Point: a.Midpoint(b), Scale: a.Distance(b) / t.pinchD0}, true
	}
	return Gesture{}, false
}

// End releases touch id. Lifting the only finger quickly without moving
// returns a tap.
func (t *Touch) End(id int) (Gesture, bool) {
	if _, ok := t.points[id]; !ok {
		return Gesture{}, false
	}
	delete(t.points, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	switch len(t.points) {
	case 0:
		tap := t.mode == ModeNone && t.armed && t.opts.Now().Sub(t.began) < t.opts.TapTimeout
		at := t.start
		t.reset()
		if tap {
			return Gesture{Kind: GestureTap, Point: at}, true
		}
	case 1:
		// the remaining finger keeps panning from where it is
		rest := t.points[t.order[0]]
		t.mode = ModePan
		t.last = rest
	}
	return Gesture{}, false
}

// Tick fires the long press once a single still finger has been held long
// enough.
func (t *Touch) Tick() (Gesture, bool) {
	if !t.armed || t.mode != ModeNone || len(t.points) != 1 {
		return Gesture{}, false
	}
	if t.opts.Now().Sub(t.began) < t.opts.LongPress {
		return Gesture{}, false
	}
	t.armed = false
	debug.Logger().Debug("[Touch] long press", "x", t.start.X, "y", t.start.Y)
	return Gesture{Kind: GestureLongPress, Point: t.points[t.order[0]]}, true
}

// Cancel forgets every touch.
func (t *Touch) Cancel() { t.reset() }

func (t *Touch) reset() {
	t.mode = ModeNone
	t.points = map[int]geom.Point{}
	t.order = nil
	t.armed = false
	t.pinchD0 = 0
}

func (t *Touch) pair() (geom.Point, geom.Point) {
	return t.points[t.order[0]], t.points[t.order[1]]
}
