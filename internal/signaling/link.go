package signaling

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/musaddique333/Gatherly/internal/dns"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second
)

// ErrConnectionLost is surfaced once reconnection attempts are exhausted.
var ErrConnectionLost = errors.New("connection to signaling server lost")

// Link manages the WebSocket connection to the signaling server for one room
// session. An unexpected close triggers reconnection with capped exponential
// backoff; a deliberate Close does not.
type Link struct {
	serverURL string

	onReady   func()
	onMessage func(*Message)
	onDown    func(error)

	outgoing chan *Message

	mu        sync.Mutex
	conn      *websocket.Conn
	attempts  int
	closed    bool
	reconnect *time.Timer
}

// NewLink creates a link to the given signaling endpoint. onReady fires after
// every successful connect (initial and reconnects), onMessage for every
// well-formed inbound message, onDown once when reconnection gives up.
func NewLink(serverURL string, onReady func(), onMessage func(*Message), onDown func(error)) *Link {
	return &Link{
		serverURL: serverURL,
		onReady:   onReady,
		onMessage: onMessage,
		onDown:    onDown,
		outgoing:  make(chan *Message, 32),
	}
}

// Connect establishes the WebSocket connection and starts the read and write
// pumps. On success the reconnect-attempt counter is reset and onReady fires.
func (l *Link) Connect() error {
	u, err := url.Parse(l.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Custom dialer using the robust DNS lookup with public fallback
	dialer := *websocket.DefaultDialer
	dialer.NetDial = func(network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		resolvedIP, err := dns.Lookup(host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}

		return net.Dial(network, net.JoinHostPort(resolvedIP, port))
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	l.mu.Lock()
	l.conn = conn
	l.attempts = 0
	l.mu.Unlock()

	stop := make(chan struct{})
	go l.readPump(conn, stop)
	go l.writePump(conn, stop)

	if l.onReady != nil {
		l.onReady()
	}
	return nil
}

// Send enqueues a message for delivery. Messages queued while the link is
// reconnecting are flushed once the new connection is up.
func (l *Link) Send(msg *Message) {
	select {
	case l.outgoing <- msg:
	default:
		slog.Warn("signaling send queue full, dropping message", "type", msg.Type)
	}
}

// Close shuts the link down deliberately. No reconnect is attempted.
func (l *Link) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.reconnect != nil {
		l.reconnect.Stop()
	}
	conn := l.conn
	l.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

// readPump reads until the connection breaks, then schedules a reconnect
// unless the link was closed deliberately. Payloads that fail to parse are
// logged and dropped; they never take the link down.
func (l *Link) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer func() {
		close(stop)
		conn.Close()
		l.scheduleReconnect()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := Parse(data)
		if err != nil {
			slog.Warn("discarding malformed signaling message", "error", err)
			continue
		}

		if l.onMessage != nil {
			l.onMessage(msg)
		}
	}
}

// writePump writes queued messages and sends periodic pings. It exits with
// its connection; the shared outgoing queue survives for the next pump.
func (l *Link) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-l.outgoing:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return
		}
	}
}

func (l *Link) scheduleReconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	if l.attempts >= maxReconnectAttempts {
		slog.Error("maximum reconnection attempts reached")
		l.closed = true
		if l.onDown != nil {
			go l.onDown(ErrConnectionLost)
		}
		return
	}

	delay := reconnectDelay(l.attempts)
	l.attempts++
	slog.Info("scheduling signaling reconnect", "attempt", l.attempts, "delay", delay)

	l.reconnect = time.AfterFunc(delay, func() {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		if err := l.Connect(); err != nil {
			slog.Warn("signaling reconnect failed", "error", err)
			l.scheduleReconnect()
		}
	})
}

// reconnectDelay returns the backoff before the given zero-based attempt:
// 1s, 2s, 4s, 8s, 16s, capped at 30s.
func reconnectDelay(attempt int) time.Duration {
	delay := baseReconnectDelay << uint(attempt)
	if delay > maxReconnectDelay || delay <= 0 {
		delay = maxReconnectDelay
	}
	return delay
}
