// Package live serves canvas sessions over WebSocket. Clients send binary
// input event frames; the server answers with JSON notifications and
// snapshots. Each session owns one canvas.
package live

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/viewport"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 300 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 256
)

// SyncFunc receives every node or edge replacement a session produces. It is
// the seam to an external collaboration layer and runs with the session
// locked, so it must not call back into the session.
type SyncFunc func(sessionID string, nodes []flow.Node, edges []flow.Edge)

// Options configures a Server.
type Options struct {
	// Path is the URL prefix followed by the session id. Default "/live/".
	Path string
	// AllowedOrigins restricts the Origin header. Empty allows any origin.
	AllowedOrigins []string
	// FrameInterval drives Canvas.Frame on a ticker. Zero leaves framing to
	// the client's frame events.
	FrameInterval time.Duration
	// Board returns the canvas options for a new session. Nil uses
	// canvas.DefaultOptions with an empty board. Callbacks are replaced.
	Board func(sessionID string) canvas.Options
	Sync  SyncFunc
}

// Server handles WebSocket connections for live canvas sessions.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	sessions map[string]*Session
	mu       sync.RWMutex
}

func NewServer(opts Options) *Server {
	if opts.Path == "" {
		opts.Path = "/live/"
	}
	if !strings.HasSuffix(opts.Path, "/") {
		opts.Path += "/"
	}
	s := &Server{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, r.Header.Get("Origin"))
}

// Path returns the URL prefix the server answers on.
func (s *Server) Path() string { return s.opts.Path }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.HandleWebSocket(w, r)
}

// HandleWebSocket upgrades the request and attaches it to the session named
// by the path. Reconnecting to an existing session resumes its board.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := strings.CutPrefix(r.URL.Path, s.opts.Path)
	if !ok || sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Logger().Warn("[Live Server] upgrade failed", "error", err)
		return
	}

	session := s.getOrCreateSession(sessionID)
	l := session.attach(conn)
	go session.handleConnection(l, s.opts.FrameInterval)
}

func (s *Server) getOrCreateSession(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		return session
	}
	opts := canvas.DefaultOptions()
	if s.opts.Board != nil {
		opts = s.opts.Board(id)
	}
	session := newSession(id, opts, s.opts.Sync)
	s.sessions[id] = session
	debug.Logger().Info("[Live Server] session created", "session", id)
	return session
}

// GetSession retrieves a session by id.
func (s *Server) GetSession(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// RemoveSession drops a session and closes its connection.
func (s *Server) RemoveSession(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		session.disconnect()
	}
}

// SessionCount returns the number of known sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close disconnects every session.
func (s *Server) Close() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		session.disconnect()
	}
}

type outFrame struct {
	kind int
	data []byte
}

// link is one WebSocket connection attached to a session.
type link struct {
	ws   *websocket.Conn
	send chan outFrame
	done chan struct{}
	once sync.Once
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		l.ws.Close()
	})
}

// Session is a canvas plus the connection currently driving it.
type Session struct {
	ID string

	mu          sync.Mutex
	canvas      *canvas.Canvas
	link        *link
	seq         uint64
	lastVersion uint64
	onSync      SyncFunc
}

func newSession(id string, opts canvas.Options, onSync SyncFunc) *Session {
	s := &Session{ID: id, onSync: onSync}
	opts.Callbacks = s.callbacks()
	s.canvas = canvas.New(opts)
	return s
}

func (s *Session) callbacks() canvas.Callbacks {
	return canvas.Callbacks{
		OnNodesChange: func(nodes []flow.Node) {
			if s.onSync != nil {
				s.onSync(s.ID, nodes, s.canvas.Edges())
			}
		},
		OnEdgesChange: func(edges []flow.Edge) {
			if s.onSync != nil {
				s.onSync(s.ID, s.canvas.Nodes(), edges)
			}
		},
		OnConnect: func(e flow.Edge) {
			s.notify(Message{Type: MsgConnect, Edge: &e})
		},
		OnNodeDragStart: func(id string, pos geom.Point) {
			s.notify(Message{Type: MsgDragStart, Node: id, Point: &pos})
		},
		OnNodeDragEnd: func(id string, pos geom.Point) {
			s.notify(Message{Type: MsgDragEnd, Node: id, Point: &pos})
		},
		OnSelectionChange: func(ids []string) {
			s.notify(Message{Type: MsgSelection, IDs: ids})
		},
		OnNodeClick: func(id string) {
			s.notify(Message{Type: MsgNodeClick, Node: id})
		},
		OnCanvasClick: func(p geom.Point) {
			s.notify(Message{Type: MsgCanvasClick, Point: &p})
		},
		OnContextMenu: func(p geom.Point) {
			s.notify(Message{Type: MsgContextMenu, Point: &p})
		},
	}
}

// attach makes conn the session's connection, closing any previous one.
func (s *Session) attach(conn *websocket.Conn) *link {
	l := &link{
		ws:   conn,
		send: make(chan outFrame, sendBuffer),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	old := s.link
	s.link = l
	s.mu.Unlock()
	if old != nil {
		debug.Logger().Info("[Live Session] replacing connection", "session", s.ID)
		old.close()
	}
	return l
}

func (s *Session) detach(l *link) {
	l.close()
	s.mu.Lock()
	if s.link == l {
		s.link = nil
	}
	s.mu.Unlock()
}

func (s *Session) disconnect() {
	s.mu.Lock()
	l := s.link
	s.link = nil
	s.mu.Unlock()
	if l != nil {
		l.close()
	}
}

// Connected reports whether a client is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

func (s *Session) handleConnection(l *link, frameInterval time.Duration) {
	defer s.detach(l)
	log := debug.Logger().With("session", s.ID)

	go s.writer(l)
	if frameInterval > 0 {
		go s.ticker(l, frameInterval)
	}

	s.mu.Lock()
	s.sendLocked(outFrame{websocket.BinaryMessage, encodeControl("HELLO", s.seq)})
	s.pushSnapshotLocked(true)
	s.mu.Unlock()
	log.Info("[Live Session] connected")

	l.ws.SetReadDeadline(time.Now().Add(pongWait))
	l.ws.SetPongHandler(func(string) error {
		l.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := l.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("[Live Session] unexpected close", "error", err)
			} else {
				log.Info("[Live Session] disconnected")
			}
			return
		}
		if messageType == websocket.BinaryMessage {
			s.handleBinaryMessage(data)
		} else {
			log.Debug("[Live Session] ignoring text message", "size", len(data))
		}
	}
}

func (s *Session) writer(l *link) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case f := <-l.send:
			l.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.ws.WriteMessage(f.kind, f.data); err != nil {
				debug.Logger().Warn("[Live Session] write failed", "session", s.ID, "error", err)
				l.close()
				return
			}
		case <-ping.C:
			l.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				l.close()
				return
			}
		case <-l.done:
			return
		}
	}
}

func (s *Session) ticker(l *link, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.mu.Lock()
			if s.canvas.Frame() > 0 {
				s.pushSnapshotLocked(false)
			}
			s.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func (s *Session) handleBinaryMessage(data []byte) {
	if len(data) == 0 {
		return
	}
	switch MessageType(data[0]) {
	case FrameEvent:
		evt, err := DecodeEvent(data)
		if err != nil {
			debug.Logger().Warn("[Live Session] bad event", "session", s.ID, "error", err)
			return
		}
		s.HandleEvent(*evt)

	case FrameControl:
		name, d, err := decodeControl(data)
		if err != nil {
			debug.Logger().Warn("[Live Session] bad control frame", "session", s.ID, "error", err)
			return
		}
		switch name {
		case "HELLO":
			resumable, err1 := d.ReadUvarint()
			lastSeq, err2 := d.ReadUvarint()
			if err1 != nil || err2 != nil {
				return
			}
			debug.Logger().Debug("[Live Session] client hello", "session", s.ID, "resumable", resumable > 0, "lastSeq", lastSeq)
		case "PING":
			s.mu.Lock()
			s.sendLocked(outFrame{websocket.BinaryMessage, encodeControl("PONG")})
			s.mu.Unlock()
		}
	}
}

// HandleEvent applies one input event to the canvas and pushes a snapshot
// when the board changed.
func (s *Session) HandleEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.canvas
	pe := canvas.PointerEvent{Point: evt.Point(), Shift: evt.Shift, Control: evt.Control}
	switch evt.Type {
	case EventPointerDown:
		c.PointerDown(pe)
	case EventPointerMove:
		c.PointerMove(pe)
	case EventPointerUp:
		c.PointerUp(pe)
	case EventWheel:
		c.Wheel(viewport.WheelEvent{DeltaX: evt.DX, DeltaY: evt.DY})
	case EventTouchStart:
		c.TouchStart(int(evt.Touch), evt.Point())
	case EventTouchMove:
		c.TouchMove(int(evt.Touch), evt.Point())
	case EventTouchEnd:
		c.TouchEnd(int(evt.Touch))
	case EventKey:
		c.KeyDown(evt.Key)
	case EventResize:
		c.SetRect(geom.Rect{X: evt.X, Y: evt.Y, Width: evt.Width, Height: evt.Height})
	case EventCancel:
		c.Cancel()
	case EventFrame:
		c.Frame()
	}
	s.pushSnapshotLocked(false)
}

// Apply replaces the board with a remote update, as delivered by a
// collaboration layer.
func (s *Session) Apply(nodes []flow.Node, edges []flow.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nodes != nil {
		s.canvas.SetNodes(nodes)
	}
	if edges != nil {
		s.canvas.SetEdges(edges)
	}
	s.pushSnapshotLocked(false)
}

// Snapshot returns the current canvas state.
func (s *Session) Snapshot() canvas.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Snapshot()
}

// notify runs inside canvas callbacks, which only fire while s.mu is held.
func (s *Session) notify(m Message) {
	s.sendMessageLocked(m)
}

func (s *Session) pushSnapshotLocked(force bool) {
	v := s.canvas.Version()
	if !force && v == s.lastVersion {
		return
	}
	s.lastVersion = v
	snap := s.canvas.Snapshot()
	s.sendMessageLocked(Message{Type: MsgSnapshot, Snapshot: &snap})
}

func (s *Session) sendMessageLocked(m Message) {
	s.seq++
	m.Seq = s.seq
	data, err := json.Marshal(m)
	if err != nil {
		debug.Logger().Warn("[Live Session] encode message", "session", s.ID, "type", m.Type, "error", err)
		return
	}
	s.sendLocked(outFrame{websocket.TextMessage, data})
}

func (s *Session) sendLocked(f outFrame) {
	if s.link == nil {
		return
	}
	select {
	case s.link.send <- f:
	default:
		debug.Logger().Warn("[Live Session] send buffer full, dropping frame", "session", s.ID)
	}
}
