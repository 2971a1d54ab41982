// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/metrics"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one WebSocket connection. It implements relay.Peer: the relay
// enqueues encoded messages with Deliver and the write pump drains them.
type Client struct {
	id    string
	conn  *websocket.Conn
	hub   *Hub
	addr  string
	query url.Values
	log   logger.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	maxMessageSize int64
	limiter        *rate.Limiter
	rateLimit      config.RateLimitConfig

	session *relay.Session
}

// NewClient creates a Client for conn. query carries the upgrade request's
// query parameters, used to resolve the user name when the session opens.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, query url.Values, cfg config.Config, log logger.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		addr:           addr,
		query:          query,
		log:            logger.NewPrefixedLogger(log, "ws "+id),
		send:           make(chan []byte, cfg.SendBuffer),
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        rate.NewLimiter(rate.Every(cfg.RateLimit.RefillInterval/time.Duration(cfg.RateLimit.Burst)), cfg.RateLimit.Burst),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Deliver queues payload for the write pump without blocking.
func (c *Client) Deliver(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return relay.ErrPeerClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return relay.ErrSendBufferFull
	}
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// closeSend marks the client closed and closes its send channel once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "addr", c.addr, "error", err.Error())
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", "addr", c.addr, "error", err.Error())
		}
		return nil
	})
}

// handleReadError logs the read error and reports unexpected ones to the
// session. Every read error ends the read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", "addr", c.addr, "limit", c.maxMessageSize)
		c.reportError(err)

	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Info("Client disconnected", "addr", c.addr, "reason", err.Error())

	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "addr", c.addr, "reason", err.Error())

	default:
		c.reportError(err)
	}
}

func (c *Client) reportError(err error) {
	if c.session != nil {
		c.session.Error(err)
		return
	}
	c.log.Error("WebSocket read error", err, "addr", c.addr)
}

func (c *Client) allow() bool {
	if c.limiter != nil && !c.limiter.Allow() {
		c.log.Warn("Rate limit exceeded; discarding message", "addr", c.addr, "burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval.String())
		metrics.RejectedInbound.WithLabelValues(metrics.ReasonRateLimited).Inc()
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Error("Error closing connection in readPump", err)
		}
	}()

	c.setupReadConnection()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if messageType != websocket.TextMessage {
			c.log.Debug("Dropping non-text frame", "addr", c.addr, "type", messageType)
			metrics.RejectedInbound.WithLabelValues(metrics.ReasonBinary).Inc()
			continue
		}

		if !c.allow() {
			continue
		}

		c.session.Message(string(payload))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.writePing()
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Error("Error closing connection in writePump", err)
	}
}

func (c *Client) writeCloseMessage() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error writing close message", "addr", c.addr, "error", err.Error())
	}
	return false
}

// writeTextMessage writes one message per frame so every frame is a single
// JSON document.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline", "addr", c.addr, "error", err.Error())
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Error("Error writing message", err, "addr", c.addr)
		}
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline for ping", "addr", c.addr, "error", err.Error())
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("Error writing ping message", "addr", c.addr, "error", err.Error())
		return false
	}
	return true
}
