// Package wireproto implements the length-prefixed message and file
// framing shared by the Catalog, Gateway, and Lobby servers: a 4-byte
// big-endian length prefix for JSON control messages, and an 8-byte
// big-endian length prefix for opaque file payloads, both carried on
// the same duplex TCP connection.
package wireproto

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTransport is wrapped by every framing failure (short read, EOF
// mid-frame, oversize length, malformed JSON) so callers can recognize
// the TransportError tag with errors.Is instead of string matching.
var ErrTransport = errors.New("wireproto: transport error")

// MaxMessageSize bounds a single control message to guard against a
// corrupt or hostile length prefix forcing an enormous allocation.
const MaxMessageSize = 16 * 1024 * 1024

// MaxFileSize bounds a single file frame for the same reason.
const MaxFileSize = 4 * 1024 * 1024 * 1024

// Message is a generic control frame body: a decoded JSON object.
// Handlers read the fields they care about with type assertions and
// build responses as new Message values.
type Message map[string]any

// Conn wraps a net.Conn-shaped stream with the framing primitives.
// It is not safe for concurrent use by multiple goroutines; each
// connection is serviced by exactly one goroutine, matching the
// request-then-response discipline of the protocol.
type Conn struct {
	rw     io.ReadWriter
	closed bool
}

// New wraps rw (typically a *net.TCPConn) in a Conn.
func New(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

// Closed reports whether a prior frame error already poisoned this
// connection; callers should stop issuing further reads/writes.
func (c *Conn) Closed() bool {
	return c.closed
}

// ReadMessage reads one length-prefixed JSON message. It returns
// io.EOF (wrapped with ErrTransport) when the peer closed the
// connection cleanly before any bytes of the next frame arrived.
func (c *Conn) ReadMessage() (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.rw, lenBuf[:]); err != nil {
		c.closed = true
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: connection closed: %w", ErrTransport, err)
		}
		return nil, fmt.Errorf("%w: reading length prefix: %v", ErrTransport, err)
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxMessageSize {
		c.closed = true
		return nil, fmt.Errorf("%w: message of %d bytes exceeds limit %d", ErrTransport, n, MaxMessageSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.rw, body); err != nil {
		c.closed = true
		return nil, fmt.Errorf("%w: reading message body: %v", ErrTransport, err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.closed = true
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrTransport, err)
	}
	return msg, nil
}

// WriteMessage serializes msg as JSON and writes it with a 4-byte
// big-endian length prefix.
func (c *Conn) WriteMessage(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		c.closed = true
		return fmt.Errorf("%w: encoding message: %v", ErrTransport, err)
	}
	if len(body) > MaxMessageSize {
		c.closed = true
		return fmt.Errorf("%w: message of %d bytes exceeds limit %d", ErrTransport, len(body), MaxMessageSize)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := c.rw.Write(lenBuf[:]); err != nil {
		c.closed = true
		return fmt.Errorf("%w: writing length prefix: %v", ErrTransport, err)
	}
	if _, err := c.rw.Write(body); err != nil {
		c.closed = true
		return fmt.Errorf("%w: writing message body: %v", ErrTransport, err)
	}
	return nil
}

// ReadFile reads exactly one file frame (8-byte length + payload) and
// returns its bytes.
func (c *Conn) ReadFile() ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(c.rw, lenBuf[:]); err != nil {
		c.closed = true
		return nil, fmt.Errorf("%w: reading file length prefix: %v", ErrTransport, err)
	}

	n := binary.BigEndian.Uint64(lenBuf[:])
	if n > MaxFileSize {
		c.closed = true
		return nil, fmt.Errorf("%w: file of %d bytes exceeds limit %d", ErrTransport, n, MaxFileSize)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(c.rw, data); err != nil {
		c.closed = true
		return nil, fmt.Errorf("%w: reading file body: %v", ErrTransport, err)
	}
	return data, nil
}

// WriteFile writes exactly one file frame: an 8-byte big-endian length
// prefix followed by data.
func (c *Conn) WriteFile(data []byte) error {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))

	if _, err := c.rw.Write(lenBuf[:]); err != nil {
		c.closed = true
		return fmt.Errorf("%w: writing file length prefix: %v", ErrTransport, err)
	}
	if _, err := c.rw.Write(data); err != nil {
		c.closed = true
		return fmt.Errorf("%w: writing file body: %v", ErrTransport, err)
	}
	return nil
}

// WriteFileStream copies exactly size bytes from r as a file frame,
// without buffering the whole payload in memory. Used by download
// streaming, where game packages may be large.
func (c *Conn) WriteFileStream(r io.Reader, size int64) error {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(size))
	if _, err := c.rw.Write(lenBuf[:]); err != nil {
		c.closed = true
		return fmt.Errorf("%w: writing file length prefix: %v", ErrTransport, err)
	}
	n, err := io.CopyN(c.rw, r, size)
	if err != nil {
		c.closed = true
		return fmt.Errorf("%w: streaming file body (%d/%d bytes): %v", ErrTransport, n, size, err)
	}
	return nil
}
