package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/NotesGenerator/extension/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 1024
	ackChSize    = 16
	maxReconnect = 10
	writeWait    = 10 * time.Second
)

// session is one dialed socket with its read and write loops. Whichever
// loop fails first ends the session and starts a reconnect.
type session struct {
	conn *ws.Conn
	stop chan struct{}
	once sync.Once
}

func (s *session) end() bool {
	ended := false
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
		ended = true
	})
	return ended
}

// connection manages the socket to the viewer and replaces it after failures.
type connection struct {
	mu      sync.Mutex
	current *session
	sendCh  chan []byte
	ackCh   chan streaming.AckMessage
	done    chan struct{} // closed on shutdown
	closed  bool

	wsURL  string
	secret string

	// Hello message replayed after a reconnect.
	cachedHello []byte

	firstBackoff time.Duration
	maxBackoff   time.Duration
	logger       *slog.Logger
}

func newConnection(logger *slog.Logger, maxBackoff time.Duration) *connection {
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &connection{
		sendCh:       make(chan []byte, sendChSize),
		ackCh:        make(chan streaming.AckMessage, ackChSize),
		done:         make(chan struct{}),
		firstBackoff: min(time.Second, maxBackoff),
		maxBackoff:   maxBackoff,
		logger:       logger,
	}
}

// dial connects to the server and starts the loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.start(conn)
	return nil
}

// dialOnce performs a single dial with the secret as query parameter.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) start(conn *ws.Conn) {
	s := &session{conn: conn, stop: make(chan struct{})}

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	go c.writeLoop(s)
	go c.readLoop(s)
}

// fail ends s and reconnects unless the connection is shutting down.
func (c *connection) fail(s *session, msg string, err error) {
	if !s.end() {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	c.logger.Warn(msg, "error", err)
	go c.reconnect()
}

// writeLoop is the only writer of s.conn while s is live.
func (c *connection) writeLoop(s *session) {
	for {
		select {
		case <-c.done:
			return
		case <-s.stop:
			return
		case data := <-c.sendCh:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.fail(s, "WebSocket SetWriteDeadline error", err)
				return
			}
			if err := s.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.fail(s, "WebSocket write error", err)
				return
			}
		}
	}
}

// readLoop routes acks from the server to ackCh.
func (c *connection) readLoop(s *session) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			c.fail(s, "WebSocket read error", err)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect dials again with exponential backoff capped at maxBackoff. The
// cached hello is written before the loops restart so it precedes any
// queued annotation.
func (c *connection) reconnect() {
	backoff := c.firstBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		c.mu.Lock()
		cached := c.cachedHello
		closed := c.closed
		c.mu.Unlock()
		if closed {
			_ = conn.Close()
			return
		}

		if cached != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				err = conn.WriteMessage(ws.TextMessage, cached)
			}
			if err != nil {
				c.logger.Warn("Failed to replay hello after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.start(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send queues data for the write loop. It drops the message when the queue is full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// sendAndWait sends data and blocks until the server acknowledges ackFor
// or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	_ = s.conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.end()
	return nil
}
