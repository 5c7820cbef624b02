package wireproto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	conn := New(&buf)

	want := Message{"action": "login", "username": "alice", "retries": float64(3)}
	if err := conn.WriteMessage(want); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got["action"] != "login" || got["username"] != "alice" || got["retries"] != float64(3) {
		t.Fatalf("round trip mismatch: got %#v", got)
	}
}

func TestReadMessageEOFIsTransportError(t *testing.T) {
	conn := New(&bytes.Buffer{})
	_, err := conn.ReadMessage()
	if err == nil || !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !conn.Closed() {
		t.Fatalf("expected connection to be marked closed")
	}
}

func TestReadMessageTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	// Claim 10 bytes of body but supply none.
	buf.Write([]byte{0, 0, 0, 10})
	conn := New(&buf)
	_, err := conn.ReadMessage()
	if err == nil || !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for truncated body, got %v", err)
	}
}

func TestReadMessageInvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("not json")
	lenPrefix := []byte{0, 0, 0, byte(len(body))}
	buf.Write(lenPrefix)
	buf.Write(body)

	conn := New(&buf)
	_, err := conn.ReadMessage()
	if err == nil || !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for invalid JSON, got %v", err)
	}
}

func TestReadMessageOversize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	conn := New(&buf)
	_, err := conn.ReadMessage()
	if err == nil || !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for oversize length, got %v", err)
	}
}

func TestFileFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	conn := New(&buf)

	payload := []byte("hello, game package")
	if err := conn.WriteFile(payload); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := conn.ReadFile()
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("file round trip mismatch: got %q want %q", got, payload)
	}
}

func TestWriteFileStream(t *testing.T) {
	var buf bytes.Buffer
	conn := New(&buf)

	payload := "streamed file contents"
	if err := conn.WriteFileStream(strings.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("WriteFileStream: %v", err)
	}

	got, err := conn.ReadFile()
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != payload {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestRequestThenResponseOrdering(t *testing.T) {
	// Simulate a single connection carrying a request followed
	// immediately by its response in the same byte stream, as the
	// protocol mandates (no pipelining).
	var buf bytes.Buffer
	conn := New(&buf)

	if err := conn.WriteMessage(Message{"action": "ping"}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	if err := conn.WriteMessage(Message{"success": true}); err != nil {
		t.Fatalf("write response: %v", err)
	}

	req, err := conn.ReadMessage()
	if err != nil || req["action"] != "ping" {
		t.Fatalf("unexpected request: %#v, err=%v", req, err)
	}
	resp, err := conn.ReadMessage()
	if err != nil || resp["success"] != true {
		t.Fatalf("unexpected response: %#v, err=%v", resp, err)
	}
}
