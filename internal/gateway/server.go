package gateway

import (
	"context"
	"errors"
	"log"
	"net"
	"os"

	"gamelobby/internal/catalogclient"
	"gamelobby/internal/rediscache"
	"gamelobby/internal/wireproto"
)

// Server is the Developer Gateway: it accepts connections, tracks one
// session per connection, and dispatches authenticated and
// unauthenticated actions against the Catalog.
type Server struct {
	catalog   *catalogclient.Client
	uploadDir string
	cache     *rediscache.Cache // nil when config.RedisEnabled is false

	listener net.Listener
}

// NewServer wires a Gateway to catalog and binds addr. cache may be
// nil.
func NewServer(catalog *catalogclient.Client, uploadDir, addr string, cache *rediscache.Cache) (*Server, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{catalog: catalog, uploadDir: uploadDir, cache: cache, listener: ln}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(netConn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

func (s *Server) invalidateGameCaches(gameName string) {
	ctx := context.Background()
	s.cache.Invalidate(ctx, "catalog:games:active")
	s.cache.Invalidate(ctx, "catalog:game:"+gameName)
}

func (s *Server) handleConn(netConn net.Conn) {
	defer netConn.Close()
	conn := wireproto.New(netConn)
	sess := &session{}

	for {
		req, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, wireproto.ErrTransport) {
				log.Printf("gateway: unexpected read error from %s: %v", netConn.RemoteAddr(), err)
			}
			return
		}

		action, _ := req["action"].(string)

		// upload_game/update_game own the rest of the conversation
		// themselves (multiple frames); every other action is a
		// single request/response exchange handled by dispatch.
		switch action {
		case "upload_game":
			if !sess.loggedIn {
				if err := conn.WriteMessage(errorMsg(errNotAuthenticated, "login required")); err != nil {
					return
				}
				continue
			}
			if err := s.handleUploadGame(conn, sess, req); err != nil {
				log.Printf("gateway: upload_game from %s: %v", netConn.RemoteAddr(), err)
				return
			}
			continue
		case "update_game":
			if !sess.loggedIn {
				if err := conn.WriteMessage(errorMsg(errNotAuthenticated, "login required")); err != nil {
					return
				}
				continue
			}
			if err := s.handleUpdateGame(conn, sess, req); err != nil {
				log.Printf("gateway: update_game from %s: %v", netConn.RemoteAddr(), err)
				return
			}
			continue
		}

		resp := s.dispatch(sess, action, req)
		if err := conn.WriteMessage(resp); err != nil {
			log.Printf("gateway: write error to %s: %v", netConn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) dispatch(sess *session, action string, req wireproto.Message) wireproto.Message {
	switch action {
	case "register":
		return s.handleRegister(req)
	case "login":
		return s.handleLogin(sess, req)
	}

	if !sess.loggedIn {
		return errorMsg(errNotAuthenticated, "login required")
	}

	switch action {
	case "my_games":
		return s.handleMyGames(sess)
	case "remove_game":
		return s.handleRemoveGame(sess, req)
	case "logout":
		return s.handleLogout(sess)
	default:
		return errorMsg(errInvalidRequest, "unknown action: "+action)
	}
}
