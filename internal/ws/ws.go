// Package ws accepts websocket peers and registers them as broadcast
// subscribers. Peers only receive; anything they send is read and dropped
// regardless of size.
package ws

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sweeney/hall-direction/internal/broadcast"
)

// Defaults for Options fields left zero.
const (
	DefaultWriteTimeout = 2 * time.Second
	DefaultQueueSize    = 16
	DefaultPongWait     = 60 * time.Second
)

// Options tunes per-connection behavior.
type Options struct {
	// WriteTimeout bounds a single frame write to the peer.
	WriteTimeout time.Duration
	// QueueSize is the number of messages buffered per peer before it is
	// considered too slow and dropped.
	QueueSize int
	// PongWait is how long a peer may stay silent before it is considered gone.
	// Pings are sent at 9/10 of this period.
	PongWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.PongWait <= 0 {
		o.PongWait = DefaultPongWait
	}
	return o
}

// Handler upgrades HTTP requests to websocket connections.
type Handler struct {
	hub      *broadcast.Broadcaster
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler registering peers with hub.
func NewHandler(hub *broadcast.Broadcaster, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:    hub,
		opts:   opts.withDefaults(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// No authentication or origin policy on the event channel.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and serves the peer until it disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(conn, h.opts, h.logger.With("remote", r.RemoteAddr))
	h.hub.Register(c)

	go c.writePump()
	c.readPump()

	h.hub.Unregister(c)
	c.Close()
}

// client is a websocket peer. Messages are queued by Send and written by
// writePump so the broadcaster never waits on the network.
type client struct {
	id     string
	conn   *websocket.Conn
	opts   Options
	logger *slog.Logger

	send      chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, opts Options, logger *slog.Logger) *client {
	id := uuid.NewString()
	return &client{
		id:     id,
		conn:   conn,
		opts:   opts,
		logger: logger.With("subscriber", id),
		send:   make(chan string, opts.QueueSize),
		done:   make(chan struct{}),
	}
}

func (c *client) ID() string {
	return c.id
}

// Send queues msg without blocking.
func (c *client) Send(msg string) error {
	select {
	case <-c.done:
		return broadcast.ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return broadcast.ErrClosed
	default:
		return broadcast.ErrQueueFull
	}
}

// Close marks the client closed and returns at once. writePump sends the
// close frame and releases the connection, so a peer stalled mid-write
// never holds up the caller. Safe to call repeatedly.
func (c *client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// readPump reads until the peer goes away. Inbound frames of any size are
// drained and discarded; reading is still required to process control
// frames.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, r, err := c.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket closed unexpectedly", "error", err)
			} else {
				c.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		n, err := io.Copy(io.Discard, r)
		if err != nil {
			c.logger.Debug("websocket read failed", "error", err)
			return
		}
		c.logger.Debug("discarding inbound message", "bytes", n)
	}
}

// writePump drains the queue to the connection and owns closing it. Every
// write carries a deadline; a failed write closes the client so the next
// broadcast drops it.
func (c *client) writePump() {
	pingPeriod := c.opts.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("websocket close failed", "error", err)
		}
	}()

	for {
		select {
		case <-c.done:
			err := c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(c.opts.WriteTimeout))
			if err != nil {
				c.logger.Debug("websocket close frame failed", "error", err)
			}
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				c.logger.Warn("websocket write failed", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.logger.Debug("websocket ping failed", "error", err)
				c.Close()
				return
			}
		}
	}
}
