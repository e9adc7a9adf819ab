package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a Go-side connection to a live session.
type Client struct {
	ws *websocket.Conn
}

// Dial connects to a session URL such as ws://host/live/<id>.
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("live: dial %s: %w", url, err)
	}
	return &Client{ws: ws}, nil
}

// Send writes one input event.
func (c *Client) Send(evt Event) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, EncodeEvent(evt))
}

// Hello announces the last sequence number the client has seen.
func (c *Client) Hello(lastSeq uint64) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, encodeControl("HELLO", 1, lastSeq))
}

func (c *Client) Ping() error {
	return c.ws.WriteMessage(websocket.BinaryMessage, encodeControl("PING"))
}

// Read returns the next server message. Control frames come back as
// MsgHello and MsgPong.
func (c *Client) Read(ctx context.Context) (Message, error) {
	if dl, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(dl)
	} else {
		c.ws.SetReadDeadline(time.Time{})
	}
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	if kind == websocket.BinaryMessage {
		name, d, err := decodeControl(data)
		if err != nil {
			return Message{}, err
		}
		switch name {
		case "HELLO":
			seq, err := d.ReadUvarint()
			if err != nil {
				return Message{}, fmt.Errorf("live: decode hello: %w", err)
			}
			return Message{Type: MsgHello, Seq: seq}, nil
		case "PONG":
			return Message{Type: MsgPong}, nil
		}
		return Message{}, fmt.Errorf("live: unknown control %q", name)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("live: decode message: %w", err)
	}
	return m, nil
}

// Next reads until a message of the given type arrives.
func (c *Client) Next(ctx context.Context, typ string) (Message, error) {
	for {
		m, err := c.Read(ctx)
		if err != nil {
			return Message{}, err
		}
		if m.Type == typ {
			return m, nil
		}
	}
}

func (c *Client) Close() error {
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
