// Package catalogclient is the TCP client the Developer Gateway and
// Lobby use to talk to one or more Catalog Store instances. When more
// than one address is configured it routes each collection to a
// server deterministically via rendezvous (highest random weight)
// hashing, so repeated calls for the same collection land on the same
// backend without needing a shared routing table (SPEC_FULL.md §4.4,
// "multi-endpoint catalog routing").
package catalogclient

import (
	"fmt"
	"net"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"gamelobby/internal/wireproto"
)

func hashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Client dials one Catalog address per collection (selected by
// rendezvous hashing across the configured address list) and keeps
// one persistent connection per address, reconnecting lazily on
// failure.
type Client struct {
	addrs []string
	rdv   *rendezvous.Rendezvous

	mu    sync.Mutex
	conns map[string]*wireproto.Conn
}

// New returns a Client routing across addrs. A single address is the
// common case (one Catalog instance); more than one enables
// client-side sharding of collections across independently-run
// Catalog processes, with no data migration or rebalancing performed
// by this package (see SPEC_FULL.md §10 on replication being out of
// scope).
func New(addrs []string) (*Client, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("catalogclient: at least one address is required")
	}
	return &Client{
		addrs: addrs,
		rdv:   rendezvous.New(addrs, hashString),
		conns: make(map[string]*wireproto.Conn),
	}, nil
}

// addrFor picks the backend address for collection.
func (c *Client) addrFor(collection string) string {
	if len(c.addrs) == 1 {
		return c.addrs[0]
	}
	return c.rdv.Lookup(collection)
}

func (c *Client) connFor(collection string) (*wireproto.Conn, error) {
	addr := c.addrFor(collection)

	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[addr]; ok && !conn.Closed() {
		return conn, nil
	}

	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("catalogclient: dialing %s: %w", addr, err)
	}
	conn := wireproto.New(netConn)
	c.conns[addr] = conn
	return conn, nil
}

// call sends req to the backend owning collection and returns its
// response. Requests are never pipelined: the per-connection mutex
// implicit in holding c.mu across the round trip would serialize
// unrelated collections too aggressively, so instead each call holds
// only its own connection for the duration of the exchange.
func (c *Client) call(collection string, req wireproto.Message) (wireproto.Message, error) {
	conn, err := c.connFor(collection)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(req); err != nil {
		c.invalidate(collection)
		return nil, fmt.Errorf("catalogclient: writing request: %w", err)
	}
	resp, err := conn.ReadMessage()
	if err != nil {
		c.invalidate(collection)
		return nil, fmt.Errorf("catalogclient: reading response: %w", err)
	}
	return resp, nil
}

func (c *Client) invalidate(collection string) {
	addr := c.addrFor(collection)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, addr)
}

// Insert stores data in collection and returns its assigned id.
func (c *Client) Insert(collection string, data map[string]any) (string, error) {
	resp, err := c.call(collection, wireproto.Message{
		"action": "insert", "collection": collection, "data": data,
	})
	if err != nil {
		return "", err
	}
	if ok, _ := resp["success"].(bool); !ok {
		return "", responseError(resp)
	}
	id, _ := resp["id"].(string)
	return id, nil
}

// Find returns every document in collection matching query.
func (c *Client) Find(collection string, query map[string]any) ([]map[string]any, error) {
	resp, err := c.call(collection, wireproto.Message{
		"action": "find", "collection": collection, "query": query,
	})
	if err != nil {
		return nil, err
	}
	if ok, _ := resp["success"].(bool); !ok {
		return nil, responseError(resp)
	}
	raw, _ := resp["results"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindOne returns the first document in collection matching query, or
// (nil, nil) if no document matches.
func (c *Client) FindOne(collection string, query map[string]any) (map[string]any, error) {
	resp, err := c.call(collection, wireproto.Message{
		"action": "find_one", "collection": collection, "query": query,
	})
	if err != nil {
		return nil, err
	}
	if ok, _ := resp["success"].(bool); !ok {
		if code, _ := resp["error"].(string); code == "Not found" {
			return nil, nil
		}
		return nil, responseError(resp)
	}
	result, _ := resp["result"].(map[string]any)
	return result, nil
}

// Update applies update to every document in collection matching
// query and returns the count updated.
func (c *Client) Update(collection string, query, update map[string]any) (int, error) {
	resp, err := c.call(collection, wireproto.Message{
		"action": "update", "collection": collection, "query": query, "update": update,
	})
	if err != nil {
		return 0, err
	}
	if ok, _ := resp["success"].(bool); !ok {
		return 0, responseError(resp)
	}
	return intField(resp["count"]), nil
}

// Delete removes every document in collection matching query and
// returns the count removed.
func (c *Client) Delete(collection string, query map[string]any) (int, error) {
	resp, err := c.call(collection, wireproto.Message{
		"action": "delete", "collection": collection, "query": query,
	})
	if err != nil {
		return 0, err
	}
	if ok, _ := resp["success"].(bool); !ok {
		return 0, responseError(resp)
	}
	return intField(resp["count"]), nil
}

func intField(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func responseError(resp wireproto.Message) error {
	msg, _ := resp["message"].(string)
	code, _ := resp["error"].(string)
	if msg == "" {
		msg = code
	}
	return fmt.Errorf("catalogclient: %s", msg)
}
