// Package lobby implements the Matchmaker/Lobby tier: player accounts,
// MFA, game catalog browsing, reviews, room lifecycle, host migration,
// and game-server subprocess supervision, grounded in
// original_source/server/lobby_server.py and cmd/server/main.go's
// connection-handling and hub idioms.
package lobby

import (
	"errors"
	"log"
	"net"

	"gamelobby/internal/catalogclient"
	"gamelobby/internal/lobby/adminfeed"
	"gamelobby/internal/rediscache"
	"gamelobby/internal/wireproto"
)

// Server accepts Lobby connections, tracking one connSession per
// connection and dispatching every action against the Manager and
// Catalog.
type Server struct {
	catalog *catalogclient.Client
	manager *Manager
	cache   *rediscache.Cache // nil when config.RedisEnabled is false

	// adminFeed, when non-nil, receives a copy of every published room
	// event for the operator dashboard (SPEC_FULL.md §4.4). It is
	// optional and never gates client-visible behavior.
	adminFeed *adminfeed.Hub

	listener net.Listener
}

// NewServer wires a Lobby Server to its Catalog client, room Manager,
// and optional cache/admin feed, and binds addr.
func NewServer(catalog *catalogclient.Client, manager *Manager, addr string, cache *rediscache.Cache, adminFeed *adminfeed.Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		catalog:   catalog,
		manager:   manager,
		cache:     cache,
		adminFeed: adminFeed,
		listener:  ln,
	}, nil
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

func (s *Server) handleConn(netConn net.Conn) {
	defer netConn.Close()
	conn := wireproto.New(netConn)
	sess := &connSession{}

	defer func() {
		if sess.loggedIn {
			if room, destroyed := s.manager.Logout(sess.userID); room != nil {
				if destroyed {
					s.publishRoomEvent("room_destroyed", room)
				} else {
					s.publishRoomEvent("host_migrated", room)
				}
			}
		}
	}()

	for {
		req, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, wireproto.ErrTransport) {
				log.Printf("lobby: unexpected read error from %s: %v", netConn.RemoteAddr(), err)
			}
			return
		}

		action, _ := req["action"].(string)

		// download_game owns the rest of the conversation itself
		// (multiple file frames); every other action is a single
		// request/response exchange handled by dispatch.
		if action == "download_game" {
			if !sess.loggedIn {
				if err := conn.WriteMessage(errorMsg("login required")); err != nil {
					return
				}
				continue
			}
			if err := s.handleDownloadGame(conn, req); err != nil {
				log.Printf("lobby: download_game from %s: %v", netConn.RemoteAddr(), err)
				return
			}
			continue
		}

		resp := s.dispatch(sess, action, req)
		if err := conn.WriteMessage(resp); err != nil {
			log.Printf("lobby: write error to %s: %v", netConn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) dispatch(sess *connSession, action string, req wireproto.Message) wireproto.Message {
	switch action {
	case "register":
		return s.handleRegister(req)
	case "login":
		return s.handleLogin(sess, req)
	case "list_games":
		return s.handleListGames()
	case "game_info":
		return s.handleGameInfo(req)
	}

	if !sess.loggedIn {
		return errorMsg("Login required")
	}

	switch action {
	case "enroll_mfa":
		return s.handleEnrollMFA(sess)
	case "confirm_mfa":
		return s.handleConfirmMFA(sess, req)
	case "submit_review":
		return s.handleSubmitReview(sess, req)
	case "list_rooms":
		return s.handleListRooms()
	case "create_room":
		return s.handleCreateRoom(sess, req)
	case "join_room":
		return s.handleJoinRoom(sess, req)
	case "leave_room":
		return s.handleLeaveRoom(sess)
	case "start_game":
		return s.handleStartGame(sess)
	case "check_game_status":
		return s.handleCheckGameStatus(sess)
	case "end_game":
		return s.handleEndGame(sess)
	case "logout":
		return s.handleLogoutAction(sess)
	default:
		return errorMsg("Unknown action: " + action)
	}
}

// handleLogoutAction clears the session and evicts it from any room,
// publishing whatever room transition results.
func (s *Server) handleLogoutAction(sess *connSession) wireproto.Message {
	userID := sess.userID
	sess.loggedIn = false
	sess.userID = ""
	sess.username = ""

	room, destroyed := s.manager.Logout(userID)
	if room != nil {
		if destroyed {
			s.publishRoomEvent("room_destroyed", room)
		} else {
			s.publishRoomEvent("host_migrated", room)
		}
	}
	return wireproto.Message{"success": true, "message": "Logged out"}
}
