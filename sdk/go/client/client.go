// Package client is a Go SDK for the simulation's debug stream. It attaches
// to the websocket endpoint, surfaces frame events on a channel, and wraps
// the control commands in call-and-wait methods.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/protocol"
)

type Config struct {
	// ServerAddr is host:port of the debug server.
	ServerAddr string
	DialTimeout time.Duration
	// EventBuffer caps the events channel; the read loop drops events once
	// it is full rather than stalling the connection.
	EventBuffer int
	Logger      log.Log
}

func DefaultConfig() Config {
	return Config{
		ServerAddr:  "localhost:8080",
		DialTimeout: 10 * time.Second,
		EventBuffer: 256,
		Logger:      log.Nop(),
	}
}

// Client is a single debug-stream session. Commands may be issued from any
// goroutine, one at a time.
type Client struct {
	logger log.Log
	conn   *websocket.Conn

	session string
	digest  string

	events  chan protocol.ServerMessage
	replies chan protocol.ServerMessage

	cmdMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// Connect dials the server and waits for its welcome message.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 256
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, "ws://"+cfg.ServerAddr+"/ws", nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", cfg.ServerAddr, err)
	}

	var welcome protocol.ServerMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("client: read welcome: %w", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("client: expected welcome, got %s", welcome.Type)
	}

	c := &Client{
		logger:  cfg.Logger.With(log.String("component", "debug-client")),
		conn:    conn,
		session: welcome.Session,
		digest:  welcome.ConfigDigest,
		events:  make(chan protocol.ServerMessage, cfg.EventBuffer),
		replies: make(chan protocol.ServerMessage, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	c.logger.Info("session established", log.String("session", c.session))
	return c, nil
}

func (c *Client) Session() string      { return c.session }
func (c *Client) ConfigDigest() string { return c.digest }

// Events streams the simulation's frame events for this session.
func (c *Client) Events() <-chan protocol.ServerMessage { return c.events }

func (c *Client) Pause(ctx context.Context) (protocol.ServerMessage, error) {
	return c.send(ctx, protocol.Command{Type: protocol.TypePause})
}

func (c *Client) Resume(ctx context.Context) (protocol.ServerMessage, error) {
	return c.send(ctx, protocol.Command{Type: protocol.TypeResume})
}

// Step advances a paused simulation by n frames.
func (c *Client) Step(ctx context.Context, n int) (protocol.ServerMessage, error) {
	return c.send(ctx, protocol.Command{Type: protocol.TypeStep, Count: n})
}

func (c *Client) Spawn(ctx context.Context, body protocol.SpawnBody) (protocol.ServerMessage, error) {
	return c.send(ctx, protocol.Command{Type: protocol.TypeSpawn, Body: &body})
}

func (c *Client) send(ctx context.Context, cmd protocol.Command) (protocol.ServerMessage, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	select {
	case <-c.done:
		return protocol.ServerMessage{}, ErrClosed
	default:
	}

	if err := c.conn.WriteJSON(cmd); err != nil {
		return protocol.ServerMessage{}, fmt.Errorf("client: send %s: %w", cmd.Type, err)
	}
	select {
	case <-ctx.Done():
		return protocol.ServerMessage{}, ctx.Err()
	case <-c.done:
		return protocol.ServerMessage{}, ErrClosed
	case reply := <-c.replies:
		if reply.Type == protocol.TypeError {
			return reply, fmt.Errorf("%w: %s", ErrRejected, reply.Error)
		}
		return reply, nil
	}
}

func (c *Client) readLoop() {
	defer close(c.events)
	defer c.Close()
	for {
		var msg protocol.ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case protocol.TypeEvent:
			select {
			case c.events <- msg:
			default:
				c.logger.Warn("event dropped", log.String("topic", msg.Topic))
			}
		case protocol.TypeAck, protocol.TypeError:
			select {
			case c.replies <- msg:
			default:
			}
		}
	}
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}
