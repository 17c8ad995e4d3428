// Package server exposes the simulation's debug stream: a websocket
// endpoint that pushes frame events to attached clients and accepts a small
// set of schema-validated control commands.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Controller is the handle the server drives the simulation through. Its
// methods are called from connection goroutines and must be safe for that.
type Controller interface {
	Pause()
	Resume()
	Paused() bool
	// StepFrames advances n frames while paused.
	StepFrames(n int) error
	Spawn(body protocol.SpawnBody) error
	Frame() uint64
}

// Server owns the websocket sessions. Attach it to the bus before stepping
// the world so no frame's events are missed.
type Server struct {
	logger log.Log
	ctrl   Controller
	digest string

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id   string
	conn *websocket.Conn
	send chan protocol.ServerMessage
	done chan struct{}
}

type Deps struct {
	Logger       log.Log
	Controller   Controller
	ConfigDigest uint64
}

func New(d Deps) *Server {
	return &Server{
		logger:   d.Logger.With(log.String("component", "debug-server")),
		ctrl:     d.Controller,
		digest:   fmt.Sprintf("%016x", d.ConfigDigest),
		sessions: make(map[string]*session),
	}
}

// Attach subscribes the server to every bus event and fans them out to the
// connected sessions.
func (s *Server) Attach(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(bus.TypeAny, func(e bus.Event) error {
		s.broadcast(protocol.ServerMessage{
			Type:  protocol.TypeEvent,
			Frame: e.Frame(),
			Topic: e.Type(),
			Data:  e.Data(),
		})
		return nil
	})
}

// Handler exposes the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves the debug stream on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("debug server: %w", err)
	}
	s.logger.Info("debug stream listening", log.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeAll()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("debug server: %w", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan protocol.ServerMessage, 256),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.logger.Info("session attached", log.String("session", sess.id))

	sess.send <- protocol.ServerMessage{
		Type:         protocol.TypeWelcome,
		Session:      sess.id,
		ConfigDigest: s.digest,
		Frame:        s.ctrl.Frame(),
	}

	go s.writeLoop(sess)
	s.readLoop(sess)

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	close(sess.done)
	_ = conn.Close()
	s.logger.Info("session detached", log.String("session", sess.id))
}

func (s *Server) readLoop(sess *session) {
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := protocol.ParseCommand(raw)
		if err != nil {
			s.reply(sess, protocol.ServerMessage{
				Type:  protocol.TypeError,
				Frame: s.ctrl.Frame(),
				Error: err.Error(),
			})
			continue
		}
		s.reply(sess, s.apply(cmd))
	}
}

func (s *Server) apply(cmd protocol.Command) protocol.ServerMessage {
	switch cmd.Type {
	case protocol.TypePause:
		s.ctrl.Pause()
	case protocol.TypeResume:
		s.ctrl.Resume()
	case protocol.TypeStep:
		if err := s.ctrl.StepFrames(cmd.Count); err != nil {
			return protocol.ServerMessage{
				Type:  protocol.TypeError,
				Frame: s.ctrl.Frame(),
				Error: err.Error(),
			}
		}
	case protocol.TypeSpawn:
		if err := s.ctrl.Spawn(*cmd.Body); err != nil {
			return protocol.ServerMessage{
				Type:  protocol.TypeError,
				Frame: s.ctrl.Frame(),
				Error: err.Error(),
			}
		}
	}
	return protocol.ServerMessage{
		Type:   protocol.TypeAck,
		Frame:  s.ctrl.Frame(),
		Paused: s.ctrl.Paused(),
	}
}

func (s *Server) writeLoop(sess *session) {
	for {
		select {
		case msg := <-sess.send:
			if err := sess.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-sess.done:
			return
		}
	}
}

// broadcast fans a message out without blocking the simulation; a session
// that cannot keep up loses events rather than stalling the frame loop.
func (s *Server) broadcast(msg protocol.ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		select {
		case sess.send <- msg:
		default:
			s.logger.Warn("session lagging, event dropped",
				log.String("session", sess.id), log.String("topic", msg.Topic))
		}
	}
}

func (s *Server) reply(sess *session, msg protocol.ServerMessage) {
	select {
	case sess.send <- msg:
	case <-sess.done:
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		_ = sess.conn.Close()
	}
}
