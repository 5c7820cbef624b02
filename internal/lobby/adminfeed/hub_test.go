package adminfeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastReachesConnectedViewer(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Give the hub goroutine a moment to process the registration.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast([]byte(`{"event":"room_created","room_id":"r1"}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(msg), "room_created") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestDisconnectedViewerIsRemovedFromHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	hub.mu.RLock()
	connected := len(hub.clients)
	hub.mu.RUnlock()
	if connected != 1 {
		t.Fatalf("expected 1 connected viewer, got %d", connected)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("viewer was never removed from hub.clients after disconnect")
}
