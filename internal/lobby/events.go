package lobby

import (
	"context"
	"encoding/json"
)

const roomEventsChannel = "lobby:events"

// publishRoomEvent fans a room-state transition out to the Redis
// pub/sub channel and the in-process admin feed hub, matching
// SPEC_FULL.md §4.4's "room-event fan-out" domain-stack addition. A
// nil room publishes nothing.
func (s *Server) publishRoomEvent(event string, room *Room) {
	if room == nil {
		return
	}
	payload := map[string]any{
		"event":     event,
		"room_id":   room.RoomID,
		"game_name": room.GameName,
		"host_id":   room.HostID,
		"host_name": room.HostName,
		"status":    room.Status,
	}
	s.publishRoomEventRaw(event, payload)
}

// publishRoomEventRaw is used by callers that already hold an
// assembled result map (e.g. start_game's {game_server, game_name,
// version}) rather than a *Room.
func (s *Server) publishRoomEventRaw(event string, payload map[string]any) {
	stamped := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		stamped[k] = v
	}
	stamped["event"] = event

	s.cache.Publish(context.Background(), roomEventsChannel, stamped)
	if s.adminFeed != nil {
		if raw, err := json.Marshal(stamped); err == nil {
			s.adminFeed.Broadcast(raw)
		}
	}
}
