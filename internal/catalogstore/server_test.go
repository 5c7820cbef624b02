package catalogstore

import (
	"net"
	"testing"

	"gamelobby/internal/wireproto"
)

func startTestServer(t *testing.T) net.Conn {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	srv, err := NewServer(store, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerInsertAndFindOne(t *testing.T) {
	netConn := startTestServer(t)
	conn := wireproto.New(netConn)

	if err := conn.WriteMessage(wireproto.Message{
		"action":     "insert",
		"collection": "Game",
		"data":       map[string]any{"name": "chat"},
	}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if resp["success"] != true {
		t.Fatalf("expected success, got %v", resp)
	}
	id, _ := resp["id"].(string)
	if id == "" {
		t.Fatalf("expected assigned id in response: %v", resp)
	}

	if err := conn.WriteMessage(wireproto.Message{
		"action":     "find_one",
		"collection": "Game",
		"query":      map[string]any{"_id": id},
	}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	resp2, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	result, ok := resp2["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v", resp2)
	}
	if result["name"] != "chat" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestServerFindOneNotFoundReportsFailure(t *testing.T) {
	netConn := startTestServer(t)
	conn := wireproto.New(netConn)

	if err := conn.WriteMessage(wireproto.Message{
		"action":     "find_one",
		"collection": "Game",
		"query":      map[string]any{"_id": "does-not-exist"},
	}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if resp["success"] != false || resp["error"] != "Not found" {
		t.Fatalf("expected {success:false, error:\"Not found\"}, got %v", resp)
	}
}

func TestServerUnknownActionReportsError(t *testing.T) {
	netConn := startTestServer(t)
	conn := wireproto.New(netConn)

	if err := conn.WriteMessage(wireproto.Message{"action": "destroy_everything", "collection": "Game"}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if resp["success"] != false {
		t.Fatalf("expected failure response, got %v", resp)
	}
}

func TestServerInvalidCollectionReportsError(t *testing.T) {
	netConn := startTestServer(t)
	conn := wireproto.New(netConn)

	if err := conn.WriteMessage(wireproto.Message{
		"action":     "find",
		"collection": "NotReal",
		"query":      map[string]any{},
	}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if resp["success"] != false || resp["error"] != "Invalid request" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestServerRequestResponseOrderingOverManyMessages(t *testing.T) {
	netConn := startTestServer(t)
	conn := wireproto.New(netConn)

	var ids []string
	for i := 0; i < 5; i++ {
		if err := conn.WriteMessage(wireproto.Message{
			"action":     "insert",
			"collection": "Review",
			"data":       map[string]any{"rating": i},
		}); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		resp, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		id, _ := resp["id"].(string)
		ids = append(ids, id)
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Fatalf("expected distinct ids, got %v", ids)
		}
		seen[id] = true
	}
}
