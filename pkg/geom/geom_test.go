package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= eps*math.Max(1, math.Abs(b)) }

func TestScreenCanvasRoundTrip(t *testing.T) {
	viewports := []Viewport{
		{X: 0, Y: 0, Zoom: 1},
		{X: -120.5, Y: 33.25, Zoom: 0.1},
		{X: 900, Y: -450, Zoom: 4},
		{X: 13, Y: 17, Zoom: 0.37},
	}
	origins := []Rect{
		{},
		{X: 64, Y: 48, Width: 1280, Height: 720},
	}
	points := []Point{{0, 0}, {1, 1}, {-250.75, 1999.125}, {1e5, -1e5}}

	for _, v := range viewports {
		for _, o := range origins {
			for _, p := range points {
				got := CanvasToScreen(ScreenToCanvas(p, v, o), v, o)
				if !near(got.X, p.X) || !near(got.Y, p.Y) {
					t.Errorf("round trip %v via %+v/%+v = %v", p, v, o, got)
				}
			}
		}
	}
}

func TestScreenToCanvas(t *testing.T) {
	v := Viewport{X: 100, Y: 50, Zoom: 2}
	origin := Rect{X: 10, Y: 20, Width: 800, Height: 600}

	got := ScreenToCanvas(Pt(310, 270), v, origin)
	if got != Pt(100, 100) {
		t.Errorf("ScreenToCanvas() = %v, want {100 100}", got)
	}
}

func TestViewportMatrixAgreesWithTransform(t *testing.T) {
	v := Viewport{X: -40, Y: 75, Zoom: 1.5}
	m := v.Matrix()
	for _, p := range []Point{{0, 0}, {10, -20}, {333, 444}} {
		want := CanvasToScreen(p, v, Rect{})
		got := Apply(m, p)
		if !near(got.X, want.X) || !near(got.Y, want.Y) {
			t.Errorf("Matrix() maps %v to %v, want %v", p, got, want)
		}
		back := Apply(m.Invert(), got)
		if !near(back.X, p.X) || !near(back.Y, p.Y) {
			t.Errorf("inverse maps %v back to %v", got, back)
		}
	}
}

func TestRectIntersects(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	tests := []struct {
		name string
		o    Rect
		want bool
	}{
		{"contained", Rect{X: 10, Y: 10, Width: 10, Height: 10}, true},
		{"partial", Rect{X: 90, Y: 90, Width: 50, Height: 50}, true},
		{"touching edge", Rect{X: 100, Y: 0, Width: 10, Height: 10}, false},
		{"disjoint", Rect{X: 200, Y: 200, Width: 10, Height: 10}, false},
	}
	for _, tt := range tests {
		if got := r.Intersects(tt.o); got != tt.want {
			t.Errorf("%s: Intersects() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVisibleRect(t *testing.T) {
	v := Viewport{X: -200, Y: -100, Zoom: 2}
	origin := Rect{X: 0, Y: 0, Width: 800, Height: 600}
	got := VisibleRect(v, origin)
	want := Rect{X: 100, Y: 50, Width: 400, Height: 300}
	if got != want {
		t.Errorf("VisibleRect() = %+v, want %+v", got, want)
	}
}

func TestRectDistance(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	if d := a.Distance(Rect{X: 13, Y: 14, Width: 5, Height: 5}); !near(d, 5) {
		t.Errorf("Distance() = %v, want 5", d)
	}
	if d := a.Distance(Rect{X: 5, Y: 5, Width: 10, Height: 10}); d != 0 {
		t.Errorf("overlapping Distance() = %v, want 0", d)
	}
}
