// Package events implements the real-time event layer: a single
// namespaced websocket channel ("/main") speaking a typed bidirectional
// event vocabulary, the per-connection connect sequence, the
// process-wide migration gate, and the broadcast/targeted send
// distinction.
package events

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"acarshub/internal/logger"
)

// Envelope is the wire shape every event, in either direction, is framed
// in: {event: <name>, data: <payload>}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Socket is one connected client on the /main channel. Writes are
// serialized through a single goroutine per socket (one outstanding
// write at a time), matching the no-unbounded-buffering policy for slow
// consumers.
type Socket struct {
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}

	closeOnce sync.Once
}

func newSocket(conn *websocket.Conn) *Socket {
	s := &Socket{conn: conn, send: make(chan Envelope, 64), done: make(chan struct{})}
	go s.writeLoop()
	return s
}

func (s *Socket) writeLoop() {
	for {
		select {
		case env, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				logger.Warnf("events: write to socket failed, closing: %v", err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Emit queues one event for delivery; a slow consumer that fills the send
// buffer is disconnected rather than buffered unboundedly further. send is
// never closed (only done is), so a concurrent Emit racing a Close can
// never send on a closed channel.
func (s *Socket) Emit(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Warnf("events: marshal %s payload failed: %v", event, err)
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- Envelope{Event: event, Data: raw}:
	case <-s.done:
	default:
		logger.Warnf("events: socket send buffer full, disconnecting slow consumer")
		s.Close()
	}
}

// Close disconnects the socket. Idempotent.
func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Handler is invoked with each decoded client->server envelope.
type Handler func(s *Socket, data json.RawMessage)

// Server owns every connected socket, the migration gate, and the typed
// handler table for client->server events.
type Server struct {
	mu      sync.RWMutex
	sockets map[*Socket]bool

	migrationMu      sync.Mutex
	migrationRunning bool
	pending          []*Socket

	handlers map[string]Handler

	connectSequence func(s *Socket)
	allowRemote     func() bool
}

// New builds a Server. migrationRunning starts true: the orchestrator is
// expected to clear it once startup completes (§4.K). connectSequence is
// invoked for each socket once it is allowed past the migration gate;
// allowRemote reports whether mutating operations are currently permitted.
func New(connectSequence func(s *Socket), allowRemote func() bool) *Server {
	return &Server{
		sockets:          make(map[*Socket]bool),
		migrationRunning: true,
		handlers:         make(map[string]Handler),
		connectSequence:  connectSequence,
		allowRemote:      allowRemote,
	}
}

// On registers the handler for a named client->server event.
func (srv *Server) On(event string, h Handler) {
	srv.handlers[event] = h
}

// ServeHTTP upgrades the request to a websocket and runs the connection
// until it closes.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("events: upgrade failed: %v", err)
		return
	}
	s := newSocket(conn)

	srv.mu.Lock()
	srv.sockets[s] = true
	srv.mu.Unlock()
	defer srv.disconnect(s)

	srv.admit(s)
	srv.readLoop(s)
}

func (srv *Server) disconnect(s *Socket) {
	srv.mu.Lock()
	delete(srv.sockets, s)
	srv.mu.Unlock()
	s.Close()
}

// admit runs the migration gate: while a migration is in progress, the
// socket gets migration_status{running:true} and is parked on the
// pending list instead of running the connect sequence.
func (srv *Server) admit(s *Socket) {
	srv.migrationMu.Lock()
	defer srv.migrationMu.Unlock()

	if srv.migrationRunning {
		s.Emit("migration_status", map[string]any{"running": true, "message": "database migration in progress"})
		srv.pending = append(srv.pending, s)
		return
	}
	srv.runConnectSequence(s)
}

func (srv *Server) runConnectSequence(s *Socket) {
	if srv.connectSequence != nil {
		srv.connectSequence(s)
	}
}

// MigrationRunning reports whether the startup migration gate is still
// held, so HTTP handlers can apply the same 503 gate as the websocket
// channel.
func (srv *Server) MigrationRunning() bool {
	srv.migrationMu.Lock()
	defer srv.migrationMu.Unlock()
	return srv.migrationRunning
}

// SetMigrationRunning sets the flag and, on the false transition, drains
// every pending socket: each gets migration_status{running:false} then
// the full connect sequence, as if it had just connected.
func (srv *Server) SetMigrationRunning(running bool) {
	srv.migrationMu.Lock()
	defer srv.migrationMu.Unlock()

	wasRunning := srv.migrationRunning
	srv.migrationRunning = running
	if running || !wasRunning {
		return
	}

	pending := srv.pending
	srv.pending = nil
	for _, s := range pending {
		s.Emit("migration_status", map[string]any{"running": false})
		srv.runConnectSequence(s)
	}
}

func (srv *Server) readLoop(s *Socket) {
	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			return
		}
		srv.dispatch(s, env)
	}
}

func (srv *Server) dispatch(s *Socket, env Envelope) {
	h, ok := srv.handlers[env.Event]
	if !ok {
		s.Emit("error", map[string]any{"message": "unknown event: " + env.Event})
		return
	}
	h(s, env.Data)
}

// Shutdown closes every currently connected socket.
func (srv *Server) Shutdown() {
	srv.mu.Lock()
	sockets := make([]*Socket, 0, len(srv.sockets))
	for s := range srv.sockets {
		sockets = append(sockets, s)
	}
	srv.mu.Unlock()

	for _, s := range sockets {
		s.Close()
	}
}

// Broadcast sends event to every currently connected socket.
func (srv *Server) Broadcast(event string, data any) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for s := range srv.sockets {
		s.Emit(event, data)
	}
}

// RequireRemoteUpdates reports whether a mutating operation is currently
// permitted, emitting a typed rejection event on s and returning false if
// not.
func (srv *Server) RequireRemoteUpdates(s *Socket) bool {
	if srv.allowRemote != nil && srv.allowRemote() {
		return true
	}
	s.Emit("remote_update_rejected", map[string]any{"message": "remote updates are disabled"})
	return false
}
