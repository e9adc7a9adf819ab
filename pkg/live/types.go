package live

import (
	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
)

// MessageType is the first byte of a binary frame.
type MessageType uint8

const (
	FrameEvent   MessageType = 0x01
	FrameControl MessageType = 0x02
)

// EventType identifies a client input event.
type EventType uint8

const (
	EventPointerDown EventType = 0x01
	EventPointerMove EventType = 0x02
	EventPointerUp   EventType = 0x03
	EventWheel       EventType = 0x04
	EventTouchStart  EventType = 0x05
	EventTouchMove   EventType = 0x06
	EventTouchEnd    EventType = 0x07
	EventKey         EventType = 0x08
	EventFrame       EventType = 0x09
	EventResize      EventType = 0x0a
	EventCancel      EventType = 0x0b
)

func (t EventType) String() string {
	switch t {
	case EventPointerDown:
		return "pointerdown"
	case EventPointerMove:
		return "pointermove"
	case EventPointerUp:
		return "pointerup"
	case EventWheel:
		return "wheel"
	case EventTouchStart:
		return "touchstart"
	case EventTouchMove:
		return "touchmove"
	case EventTouchEnd:
		return "touchend"
	case EventKey:
		return "key"
	case EventFrame:
		return "frame"
	case EventResize:
		return "resize"
	case EventCancel:
		return "cancel"
	}
	return "unknown"
}

// Event is a client input event in screen pixels. Which fields are carried
// depends on Type: pointer and touch events use X and Y, wheel uses DX and
// DY, resize uses X, Y, Width and Height, key uses Key.
type Event struct {
	Type    EventType
	X, Y    float64
	DX, DY  float64
	Width   float64
	Height  float64
	Touch   uint32
	Key     string
	Shift   bool
	Control bool
}

// Point returns the event position.
func (e Event) Point() geom.Point { return geom.Pt(e.X, e.Y) }

// Message types sent to the client as JSON text frames.
const (
	MsgHello       = "hello"
	MsgPong        = "pong"
	MsgSnapshot    = "snapshot"
	MsgConnect     = "connect"
	MsgNodeClick   = "nodeClick"
	MsgCanvasClick = "canvasClick"
	MsgContextMenu = "contextMenu"
	MsgSelection   = "selection"
	MsgDragStart   = "dragStart"
	MsgDragEnd     = "dragEnd"
)

// Message is a server to client notification. Hello and pong arrive as
// binary control frames and are surfaced as messages by Client.
type Message struct {
	Type     string           `json:"type"`
	Seq      uint64           `json:"seq"`
	Snapshot *canvas.Snapshot `json:"snapshot,omitempty"`
	Edge     *flow.Edge       `json:"edge,omitempty"`
	Node     string           `json:"node,omitempty"`
	Point    *geom.Point      `json:"point,omitempty"`
	IDs      []string         `json:"ids,omitempty"`
}
