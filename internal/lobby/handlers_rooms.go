package lobby

import (
	"errors"

	"gamelobby/internal/wireproto"
)

func (s *Server) handleListRooms() wireproto.Message {
	return wireproto.Message{"success": true, "rooms": toAnySlice(s.manager.ListRooms())}
}

func (s *Server) handleCreateRoom(sess *connSession, req wireproto.Message) wireproto.Message {
	gameName, _ := req["game_name"].(string)
	if gameName == "" {
		return errorMsg("Game name required")
	}

	room, err := s.manager.CreateRoom(sess.userID, sess.username, gameName)
	if err != nil {
		return errorMsg("Game not found")
	}
	s.publishRoomEvent("room_created", room)

	return wireproto.Message{
		"success": true,
		"room_id": room.RoomID,
		"message": "Room created for " + gameName,
		"is_host": true,
	}
}

func (s *Server) handleJoinRoom(sess *connSession, req wireproto.Message) wireproto.Message {
	roomID, _ := req["room_id"].(string)
	if roomID == "" {
		return errorMsg("Room ID required")
	}

	room, err := s.manager.JoinRoom(sess.userID, roomID)
	if err != nil {
		return errorMsg(joinRoomErrorMessage(err))
	}
	s.publishRoomEvent("room_joined", room)

	return wireproto.Message{
		"success":   true,
		"room_id":   room.RoomID,
		"game_name": room.GameName,
		"is_host":   false,
	}
}

func joinRoomErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomNotWaiting):
		return "Room is not accepting players"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrAlreadyInRoom):
		return "Already in room"
	default:
		return err.Error()
	}
}

func (s *Server) handleLeaveRoom(sess *connSession) wireproto.Message {
	room, destroyed, err := s.manager.LeaveRoom(sess.userID)
	if err != nil {
		return errorMsg("Not in any room")
	}
	if destroyed {
		s.publishRoomEvent("room_destroyed", room)
	} else {
		s.publishRoomEvent("host_migrated", room)
	}
	return wireproto.Message{"success": true, "message": "Left room"}
}

func (s *Server) handleStartGame(sess *connSession) wireproto.Message {
	result, err := s.manager.StartGame(sess.userID)
	if err != nil {
		return errorMsg(startGameErrorMessage(err))
	}
	s.publishRoomEventRaw("game_started", result)

	resp := wireproto.Message{"success": true}
	for k, v := range result {
		resp[k] = v
	}
	return resp
}

func startGameErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotInRoom):
		return "Not in any room"
	case errors.Is(err, ErrNotHost):
		return "Only host can start game"
	case errors.Is(err, ErrAlreadyStarted):
		return "Game already started"
	case errors.Is(err, ErrRoomNotFound):
		return "Game not found"
	case errors.Is(err, ErrNoPortsAvailable):
		return "No available ports: " + err.Error()
	case errors.Is(err, ErrGameServerCrashed):
		return "Game server crashed on startup. Check server logs."
	default:
		return err.Error()
	}
}

func (s *Server) handleCheckGameStatus(sess *connSession) wireproto.Message {
	status := s.manager.CheckGameStatus(sess.userID)
	resp := wireproto.Message{"success": true}
	for k, v := range status {
		resp[k] = v
	}
	return resp
}

func (s *Server) handleEndGame(sess *connSession) wireproto.Message {
	room, wasInGame := s.manager.EndGame(sess.userID)
	if !wasInGame {
		return wireproto.Message{"success": true, "message": "Not in any room or game not in progress"}
	}
	s.publishRoomEvent("game_ended", room)
	return wireproto.Message{"success": true, "message": "Game ended, room reset to waiting"}
}
