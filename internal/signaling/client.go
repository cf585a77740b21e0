package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/warpmeet/internal/dns"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
	eventBuffer    = 64
)

var ErrNotConnected = errors.New("signaling channel not connected")

// EventKind classifies channel events.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	}
	return "unknown"
}

// Event is delivered on Client.Events in receive order.
type Event struct {
	Kind    EventKind
	Message *Message

	// Code is the websocket close code for EventClosed.
	Code int
	// Reconnecting is set on EventClosed when a new connection will be attempted.
	Reconnecting bool
}

// IsAbnormalClosure reports whether a close code warrants a reconnection attempt.
func IsAbnormalClosure(code int) bool {
	return code == websocket.CloseGoingAway || code == websocket.CloseAbnormalClosure
}

// Options configures a Client.
type Options struct {
	URL            string
	LocalID        string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

// Client manages the relay WebSocket. A connection that drops abnormally is
// replaced once by a fresh connection that repeats the join.
type Client struct {
	opts   Options
	events chan Event
	quit   chan struct{}

	mu        sync.Mutex
	conn      *connection
	timer     *time.Timer
	attempted bool
	closed    bool

	finishOnce sync.Once
}

type connection struct {
	ws       *websocket.Conn
	send     chan []byte
	stop     chan struct{}
	dead     chan struct{}
	stopOnce sync.Once
}

func (c *connection) shutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Dial connects to the relay and sends the join announcement. A failure here
// is final; reconnection only applies to connections that were once open.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.LocalID == "" {
		return nil, errors.New("signaling: local id required")
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			NetDialContext:   dns.DialContext,
			HandshakeTimeout: 10 * time.Second,
		}
	}

	c := &Client{
		opts:   opts,
		events: make(chan Event, eventBuffer),
		quit:   make(chan struct{}),
	}

	conn, err := c.open(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.emit(Event{Kind: EventOpen})
	c.start(conn)
	return c, nil
}

// open dials a new connection and queues the join as its first frame.
func (c *Client) open(ctx context.Context) (*connection, error) {
	ws, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	ws.SetReadLimit(maxMessageSize)
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	conn := &connection{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		stop: make(chan struct{}),
		dead: make(chan struct{}),
	}

	join, err := Encode(&Message{
		Type:      MessageTypeJoin,
		From:      c.opts.LocalID,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		ws.Close()
		return nil, err
	}
	conn.send <- join

	return conn, nil
}

func (c *Client) start(conn *connection) {
	go c.writePump(conn)
	go c.readPump(conn)
}

// Events returns the inbound event stream. It is closed after the final EventClosed.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

func (c *Client) finish(code int) {
	c.finishOnce.Do(func() {
		c.emit(Event{Kind: EventClosed, Code: code})
		close(c.events)
	})
}

// readPump reads frames from one connection until it fails.
func (c *Client) readPump(conn *connection) {
	defer close(conn.dead)

	conn.ws.SetReadDeadline(time.Now().Add(pongWait))

	var code int
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			code = closeCode(err)
			break
		}

		msg, err := Decode(data)
		if err != nil {
			slog.Warn("dropping malformed signaling message", "error", err)
			continue
		}
		if !msg.IsAddressedTo(c.opts.LocalID) {
			continue
		}
		c.emit(Event{Kind: EventMessage, Message: msg})
	}
	conn.ws.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	retry := !c.closed && !c.attempted && IsAbnormalClosure(code)
	if retry {
		c.attempted = true
	}
	c.mu.Unlock()

	if !retry {
		slog.Debug("signaling channel closed", "code", code)
		c.finish(code)
		return
	}

	slog.Info("signaling channel dropped, reconnecting", "code", code, "delay", c.opts.ReconnectDelay)
	c.emit(Event{Kind: EventClosed, Code: code, Reconnecting: true})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.finish(websocket.CloseNormalClosure)
		return
	}
	c.timer = time.AfterFunc(c.opts.ReconnectDelay, func() { c.reconnect(code) })
	c.mu.Unlock()
}

// reconnect makes the single replacement attempt for a dropped connection.
func (c *Client) reconnect(lastCode int) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	conn, err := c.open(ctx)

	c.mu.Lock()
	c.timer = nil
	if c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.ws.Close()
		}
		c.finish(websocket.CloseNormalClosure)
		return
	}
	if err != nil {
		c.mu.Unlock()
		slog.Warn("signaling reconnect failed", "error", err)
		c.finish(lastCode)
		return
	}
	c.conn = conn
	c.attempted = false
	c.mu.Unlock()

	slog.Info("signaling channel reopened")
	c.emit(Event{Kind: EventOpen})
	c.start(conn)
}

// writePump writes queued frames to one connection and sends periodic pings.
func (c *Client) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.stop:
			// Flush what was queued before the close, such as a leave.
			for len(conn.send) > 0 {
				conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.ws.WriteMessage(websocket.TextMessage, <-conn.send); err != nil {
					break
				}
			}
			conn.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			select {
			case <-conn.dead:
			case <-time.After(writeWait):
				conn.ws.Close()
			}
			return

		case <-conn.dead:
			return
		}
	}
}

// Send stamps msg with the local id and time and queues it on the current connection.
func (c *Client) Send(msg *Message) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if conn == nil || closed {
		return ErrNotConnected
	}

	if msg.From == "" {
		msg.From = c.opts.LocalID
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	select {
	case conn.send <- frame:
		return nil
	case <-conn.dead:
		return ErrNotConnected
	}
}

// Close performs a normal closure. No reconnection follows.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.quit)
	conn := c.conn
	pending := c.timer != nil && c.timer.Stop()
	c.mu.Unlock()

	if conn != nil {
		conn.shutdown()
		select {
		case <-conn.dead:
		case <-time.After(writeWait):
		}
	}
	if pending {
		c.finish(websocket.CloseNormalClosure)
	}
	return nil
}

// closeCode maps a read error onto a websocket close code. Errors without a
// close frame count as abnormal closure.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
