package catalogstore

import (
	"errors"
	"log"
	"net"

	"gamelobby/internal/wireproto"
)

// Server accepts Catalog connections and dispatches one request per
// message, matching database_server.py's single-request-then-response
// handling loop (no pipelining, one collection action per message).
type Server struct {
	store    *Store
	listener net.Listener
}

// NewServer binds addr and returns a Server ready to Serve.
func NewServer(store *Store, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{store: store, listener: ln}, nil
}

// Addr returns the bound address, useful when addr was "host:0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(netConn net.Conn) {
	defer netConn.Close()
	conn := wireproto.New(netConn)

	for {
		req, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, wireproto.ErrTransport) {
				log.Printf("catalogstore: unexpected read error from %s: %v", netConn.RemoteAddr(), err)
			}
			return
		}

		resp := s.dispatch(req)
		if err := conn.WriteMessage(resp); err != nil {
			log.Printf("catalogstore: write error to %s: %v", netConn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) dispatch(req wireproto.Message) wireproto.Message {
	action, _ := req["action"].(string)
	collection, _ := req["collection"].(string)

	switch action {
	case "insert":
		data := toDoc(req["data"])
		id, err := s.store.Insert(collection, data)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.Message{"success": true, "id": id}

	case "find":
		query := toQuery(req["query"])
		docs, err := s.store.Find(collection, query)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.Message{"success": true, "results": docsToAny(docs)}

	case "find_one":
		query := toQuery(req["query"])
		doc, err := s.store.FindOne(collection, query)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return wireproto.Message{"success": false, "error": "Not found"}
			}
			return errorResponse(err)
		}
		return wireproto.Message{"success": true, "result": map[string]any(doc)}

	case "update":
		query := toQuery(req["query"])
		update := toDoc(req["update"])
		count, err := s.store.Update(collection, query, update)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.Message{"success": true, "count": count}

	case "delete":
		query := toQuery(req["query"])
		count, err := s.store.Delete(collection, query)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.Message{"success": true, "count": count}

	default:
		return wireproto.Message{"success": false, "error": "unknown_action", "message": "unknown action: " + action}
	}
}

func errorResponse(err error) wireproto.Message {
	code := "internal_error"
	if errors.Is(err, ErrInvalidCollection) {
		code = "Invalid request"
	}
	return wireproto.Message{"success": false, "error": code, "message": err.Error()}
}

func toDoc(v any) Doc {
	m, ok := v.(map[string]any)
	if !ok {
		return Doc{}
	}
	return Doc(m)
}

func toQuery(v any) Query {
	m, ok := v.(map[string]any)
	if !ok {
		return Query{}
	}
	return Query(m)
}

func docsToAny(docs []Doc) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = map[string]any(d)
	}
	return out
}
