package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrNotEvent     = errors.New("live: not an event frame")
	ErrUnknownEvent = errors.New("live: unknown event type")
)

const (
	flagShift   = 1 << 0
	flagControl = 1 << 1
)

// Encoder writes the primitive values of the binary protocol.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint.
func (e *Encoder) WriteUvarint(v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := e.w.Write(buf[:n])
	return err
}

// WriteString writes a length-prefixed string.
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

// WriteFloat64 writes v as 8 little-endian bytes.
func (e *Encoder) WriteFloat64(v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := e.w.Write(buf[:])
	return err
}

func (e *Encoder) WriteBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// Decoder reads the primitive values of the binary protocol.
type Decoder struct {
	r   io.Reader
	buf []byte
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, 64)}
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d)
}

// ReadByte implements io.ByteReader.
func (d *Decoder) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > 1<<16 {
		return "", fmt.Errorf("live: string length %d too large", length)
	}
	if length > uint64(len(d.buf)) {
		d.buf = make([]byte, length)
	}
	if _, err := io.ReadFull(d.r, d.buf[:length]); err != nil {
		return "", err
	}
	return string(d.buf[:length]), nil
}

// ReadFloat64 reads 8 little-endian bytes.
func (d *Decoder) ReadFloat64() (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

// EncodeEvent encodes evt as a binary event frame:
// frame type, event type, flags, then the fields the event type carries.
func EncodeEvent(evt Event) []byte {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	var flags byte
	if evt.Shift {
		flags |= flagShift
	}
	if evt.Control {
		flags |= flagControl
	}
	e.WriteBytes([]byte{byte(FrameEvent), byte(evt.Type), flags})

	switch evt.Type {
	case EventPointerDown, EventPointerMove, EventPointerUp:
		e.WriteFloat64(evt.X)
		e.WriteFloat64(evt.Y)
	case EventWheel:
		e.WriteFloat64(evt.DX)
		e.WriteFloat64(evt.DY)
	case EventTouchStart, EventTouchMove:
		e.WriteUvarint(uint64(evt.Touch))
		e.WriteFloat64(evt.X)
		e.WriteFloat64(evt.Y)
	case EventTouchEnd:
		e.WriteUvarint(uint64(evt.Touch))
	case EventKey:
		e.WriteString(evt.Key)
	case EventResize:
		e.WriteFloat64(evt.X)
		e.WriteFloat64(evt.Y)
		e.WriteFloat64(evt.Width)
		e.WriteFloat64(evt.Height)
	}
	return buf.Bytes()
}

// DecodeEvent decodes a binary event frame.
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("live: event frame of %d bytes: %w", len(data), io.ErrUnexpectedEOF)
	}
	if data[0] != byte(FrameEvent) {
		return nil, ErrNotEvent
	}
	evt := &Event{
		Type:    EventType(data[1]),
		Shift:   data[2]&flagShift != 0,
		Control: data[2]&flagControl != 0,
	}
	d := NewDecoder(bytes.NewReader(data[3:]))

	var err error
	floats := func(dst ...*float64) {
		for _, p := range dst {
			if err != nil {
				return
			}
			*p, err = d.ReadFloat64()
		}
	}
	touch := func() {
		var id uint64
		id, err = d.ReadUvarint()
		evt.Touch = uint32(id)
	}

	switch evt.Type {
	case EventPointerDown, EventPointerMove, EventPointerUp:
		floats(&evt.X, &evt.Y)
	case EventWheel:
		floats(&evt.DX, &evt.DY)
	case EventTouchStart, EventTouchMove:
		touch()
		floats(&evt.X, &evt.Y)
	case EventTouchEnd:
		touch()
	case EventKey:
		evt.Key, err = d.ReadString()
	case EventResize:
		floats(&evt.X, &evt.Y, &evt.Width, &evt.Height)
	case EventFrame, EventCancel:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownEvent, data[1])
	}
	if err != nil {
		return nil, fmt.Errorf("live: decode %s event: %w", evt.Type, err)
	}
	return evt, nil
}

// encodeControl builds a control frame: frame type, name, then varint args.
func encodeControl(name string, args ...uint64) []byte {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.WriteBytes([]byte{byte(FrameControl)})
	e.WriteString(name)
	for _, a := range args {
		e.WriteUvarint(a)
	}
	return buf.Bytes()
}

// decodeControl splits a control frame into its name and a decoder
// positioned at the arguments.
func decodeControl(data []byte) (string, *Decoder, error) {
	if len(data) == 0 || data[0] != byte(FrameControl) {
		return "", nil, errors.New("live: not a control frame")
	}
	d := NewDecoder(bytes.NewReader(data[1:]))
	name, err := d.ReadString()
	if err != nil {
		return "", nil, fmt.Errorf("live: decode control: %w", err)
	}
	return name, d, nil
}
