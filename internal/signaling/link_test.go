package signaling

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestReconnectDelaySequence(t *testing.T) {
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}
	for attempt, w := range want {
		if got := reconnectDelay(attempt); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}
	if got := reconnectDelay(5); got != maxReconnectDelay {
		t.Fatalf("expected cap at %v, got %v", maxReconnectDelay, got)
	}
	if got := reconnectDelay(10); got != maxReconnectDelay {
		t.Fatalf("expected cap for late attempts, got %v", got)
	}
}

func TestExhaustedRetriesSurfaceTerminalError(t *testing.T) {
	var mu sync.Mutex
	var terminal error

	l := NewLink("ws://127.0.0.1:0/ws/r/u", nil, nil, func(err error) {
		mu.Lock()
		terminal = err
		mu.Unlock()
	})
	l.attempts = maxReconnectAttempts

	l.scheduleReconnect()

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		err := terminal
		mu.Unlock()
		if err != nil {
			if !errors.Is(err, ErrConnectionLost) {
				t.Fatalf("expected ErrConnectionLost, got %v", err)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("terminal error never surfaced")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// echoServer upgrades one websocket per request and exposes what it read.
type echoServer struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []*Message
}

func (s *echoServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	go func() {
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, &msg)
			s.mu.Unlock()
		}
	}()
}

func (s *echoServer) lastConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return nil
	}
	return s.conns[len(s.conns)-1]
}

func (s *echoServer) receivedOfType(tp Type) []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Message
	for _, m := range s.received {
		if m.Type == tp {
			out = append(out, m)
		}
	}
	return out
}

func TestLinkRoundTrip(t *testing.T) {
	server := &echoServer{}
	ts := httptest.NewServer(http.HandlerFunc(server.handler))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/standup/alice"

	ready := make(chan struct{}, 4)
	inbound := make(chan *Message, 4)

	l := NewLink(wsURL,
		func() { ready <- struct{}{} },
		func(msg *Message) { inbound <- msg },
		nil,
	)
	defer l.Close()

	if err := l.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("onReady never fired")
	}

	// Client -> server.
	l.Send(NewUser("alice"))
	deadline := time.Now().Add(2 * time.Second)
	for len(server.receivedOfType(TypeNewUser)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("server never received the announcement")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Server -> client, with a malformed frame first: it must be discarded
	// without taking the link down.
	conn := server.lastConn()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatalf("write malformed: %v", err)
	}
	if err := conn.WriteJSON(NewChatMessage("bob", "hi", "10:00:00")); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	select {
	case msg := <-inbound:
		if msg.Type != TypeChatMessage || msg.From != "bob" || msg.Message != "hi" {
			t.Fatalf("unexpected inbound message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("inbound message never delivered")
	}
}

func TestLinkReconnectsAfterUnexpectedClose(t *testing.T) {
	if testing.Short() {
		t.Skip("reconnect test waits for first backoff delay")
	}

	server := &echoServer{}
	ts := httptest.NewServer(http.HandlerFunc(server.handler))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/standup/alice"

	ready := make(chan struct{}, 4)
	l := NewLink(wsURL, func() { ready <- struct{}{} }, nil, nil)
	defer l.Close()

	if err := l.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	<-ready

	// Drop the connection server-side without a close handshake.
	server.lastConn().Close()

	select {
	case <-ready:
		// Reconnected after the 1s backoff.
	case <-time.After(5 * time.Second):
		t.Fatalf("link never reconnected")
	}
}
