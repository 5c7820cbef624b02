package lobby

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gamelobby/internal/catalogclient"
	"gamelobby/internal/manifest"
)

var (
	ErrAlreadyLoggedIn   = errors.New("lobby: account already logged in")
	ErrNotInRoom         = errors.New("lobby: not in any room")
	ErrRoomNotFound      = errors.New("lobby: room not found")
	ErrRoomNotWaiting    = errors.New("lobby: room is not accepting players")
	ErrRoomFull          = errors.New("lobby: room is full")
	ErrAlreadyInRoom     = errors.New("lobby: already in room")
	ErrNotHost           = errors.New("lobby: only host can start game")
	ErrAlreadyStarted    = errors.New("lobby: game already started")
	ErrGameServerCrashed = errors.New("lobby: game server crashed on startup")
)

// Manager holds every live session and room. A single mutex serializes
// all mutation and lookup, matching lobby_server.py's self.lock;
// it is never held across Catalog round trips, client socket I/O,
// subprocess spawn, or download file I/O (SPEC_FULL.md §4.4).
type Manager struct {
	catalog *catalogclient.Client
	ports   *portAllocator

	logsDir       string
	advertiseHost string

	mu               sync.Mutex
	sessionUsernames map[string]string // userID -> username, presence == logged in
	rooms            map[string]*Room
}

// NewManager wires a Manager to its Catalog client and game-port
// range. logsDir holds per-room game-server stdout/stderr logs;
// advertiseHost is the address handed to clients in game_server.host.
func NewManager(catalog *catalogclient.Client, logsDir, advertiseHost string, gamePortMin, gamePortMax int) *Manager {
	return &Manager{
		catalog:          catalog,
		ports:            newPortAllocator(gamePortMin, gamePortMax),
		logsDir:          logsDir,
		advertiseHost:    advertiseHost,
		sessionUsernames: make(map[string]string),
		rooms:            make(map[string]*Room),
	}
}

// Login records userID as having a live session, refusing if one
// already exists.
func (m *Manager) Login(userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessionUsernames[userID]; exists {
		return ErrAlreadyLoggedIn
	}
	m.sessionUsernames[userID] = username
	return nil
}

// Logout removes userID's session and evicts it from any room.
func (m *Manager) Logout(userID string) (evicted *Room, destroyed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessionUsernames, userID)
	return m.removeUserFromAllRoomsLocked(userID)
}

// removeUserFromAllRoomsLocked evicts userID from whatever room it
// occupies (there is at most one, per the "one room per player"
// invariant), destroying the room if it becomes empty or promoting the
// next player to host. Caller must hold m.mu.
func (m *Manager) removeUserFromAllRoomsLocked(userID string) (affected *Room, destroyed bool) {
	for roomID, room := range m.rooms {
		if !room.hasPlayer(userID) {
			continue
		}
		room.removePlayer(userID)

		if len(room.Players) == 0 {
			if room.GameProcess != nil {
				room.GameProcess.Terminate()
			}
			room.closeLog()
			delete(m.rooms, roomID)
			return room, true
		}

		if room.HostID == userID {
			room.HostID = room.Players[0]
			room.HostName = m.sessionUsernames[room.Players[0]]

			if room.Status == StatusInGame && room.processExited() {
				room.resetToWaiting()
			}
		}
		return room, false
	}
	return nil, false
}

// ListRooms returns a summary of every room, matching
// _handle_list_rooms's field subset.
func (m *Manager) ListRooms() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]any, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, map[string]any{
			"room_id":     room.RoomID,
			"game_name":   room.GameName,
			"version":     room.Version,
			"host":        room.HostName,
			"players":     len(room.Players),
			"max_players": room.MaxPlayers,
			"status":      room.Status,
		})
	}
	return out
}

// CreateRoom evicts userID from any prior room, looks up game by
// name, and creates a new waiting room with userID as sole player and
// host.
func (m *Manager) CreateRoom(userID, username, gameName string) (*Room, error) {
	game, err := m.catalog.FindOne("Game", map[string]any{"name": gameName, "status": "active"})
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrRoomNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeUserFromAllRoomsLocked(userID)

	roomID := uuid.New().String()[:8]
	room := &Room{
		RoomID:     roomID,
		GameName:   gameName,
		GameID:     fmt.Sprint(game["_id"]),
		Version:    fmt.Sprint(game["latest_version"]),
		HostID:     userID,
		HostName:   username,
		Players:    []string{userID},
		MaxPlayers: intField(game["max_players"]),
		Status:     StatusWaiting,
	}
	m.rooms[roomID] = room
	return room, nil
}

// JoinRoom evicts userID from any prior room, then appends it to
// roomID if waiting and not full.
func (m *Manager) JoinRoom(userID, roomID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeUserFromAllRoomsLocked(userID)

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.Status != StatusWaiting {
		return nil, ErrRoomNotWaiting
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, ErrRoomFull
	}
	if room.hasPlayer(userID) {
		return nil, ErrAlreadyInRoom
	}

	room.Players = append(room.Players, userID)
	return room, nil
}

// LeaveRoom removes userID from its current room.
func (m *Manager) LeaveRoom(userID string) (*Room, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		if room.hasPlayer(userID) {
			affected, destroyed := m.removeUserFromAllRoomsLocked(userID)
			return affected, destroyed, nil
		}
	}
	return nil, false, ErrNotInRoom
}

func (m *Manager) findRoomByPlayerLocked(userID string) *Room {
	for _, room := range m.rooms {
		if room.hasPlayer(userID) {
			return room
		}
	}
	return nil
}

// CheckGameStatus always recomputes is_host fresh, lazily reaping an
// exited subprocess.
func (m *Manager) CheckGameStatus(userID string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.findRoomByPlayerLocked(userID)
	if room == nil {
		return map[string]any{"game_started": false}
	}

	isHost := room.HostID == userID

	if room.Status == StatusInGame && room.processExited() {
		room.resetToWaiting()
	}
	if room.Status == StatusInGame {
		return map[string]any{
			"game_started": true,
			"game_server":  map[string]any{"host": m.advertiseHost, "port": room.GamePort},
			"game_name":    room.GameName,
			"version":      room.Version,
			"room_id":      room.RoomID,
			"host_id":      room.HostID,
			"host_name":    room.HostName,
			"is_host":      isHost,
			"status":       room.Status,
		}
	}

	return map[string]any{
		"game_started": false,
		"room_id":      room.RoomID,
		"host_id":      room.HostID,
		"host_name":    room.HostName,
		"is_host":      isHost,
		"status":       room.Status,
	}
}

// EndGame is host-or-non-host idempotent: a no-op when the room is
// already waiting.
func (m *Manager) EndGame(userID string) (room *Room, wasInGame bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room = m.findRoomByPlayerLocked(userID)
	if room == nil || room.Status != StatusInGame {
		return room, false
	}

	if room.GameProcess != nil && !room.processExited() {
		room.GameProcess.Terminate()
	}
	room.resetToWaiting()
	return room, true
}

// StartGame is the host-only transition that allocates a port and
// spawns the game server subprocess. It performs the Catalog lookups
// and the subprocess spawn itself outside the lock (they are
// comparatively slow I/O); the lock is only held to validate
// preconditions and to commit the final room state.
func (m *Manager) StartGame(userID string) (map[string]any, error) {
	m.mu.Lock()
	room := m.findRoomByPlayerLocked(userID)
	if room == nil {
		m.mu.Unlock()
		return nil, ErrNotInRoom
	}
	if room.HostID != userID {
		m.mu.Unlock()
		return nil, ErrNotHost
	}

	if room.Status == StatusInGame {
		if pollForExit(room.GameProcess) {
			room.resetToWaiting()
		} else {
			m.mu.Unlock()
			return nil, ErrAlreadyStarted
		}
	}

	gameID := room.GameID
	numPlayers := len(room.Players)
	roomID := room.RoomID
	m.mu.Unlock()

	game, err := m.catalog.FindOne("Game", map[string]any{"_id": gameID, "status": "active"})
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrRoomNotFound
	}
	latestVersion := fmt.Sprint(game["latest_version"])

	version, err := m.catalog.FindOne("Version", map[string]any{"game_id": gameID, "version": latestVersion})
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, fmt.Errorf("lobby: version %s not found for game %s", latestVersion, gameID)
	}
	gameDir := fmt.Sprint(version["file_path"])

	m2, err := manifest.Validate(gameDir)
	if err != nil {
		return nil, fmt.Errorf("lobby: reading game manifest: %w", err)
	}

	port, err := m.ports.Allocate()
	if err != nil {
		return nil, err
	}

	proc, logFile, _, err := spawnGameServer(m2, gameDir, m.logsDir, port, numPlayers, roomID)
	if err != nil {
		return nil, err
	}

	waitEarlyCrashWindow()
	crashed := proc.Exited()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-resolve the room: it may have been destroyed by a concurrent
	// leave_room while we were spawning.
	room, ok := m.rooms[roomID]
	if !ok {
		proc.Terminate()
		logFile.Close()
		return nil, ErrNotInRoom
	}

	if crashed {
		logFile.Close()
		room.Status = StatusWaiting
		room.GameProcess = nil
		room.GamePort = 0
		return nil, ErrGameServerCrashed
	}

	room.Version = latestVersion
	room.GameProcess = proc
	room.GamePort = port
	room.GameLogFile = logFile
	room.Status = StatusInGame

	return map[string]any{
		"game_server": map[string]any{"host": m.advertiseHost, "port": port},
		"game_name":   room.GameName,
		"version":     room.Version,
	}, nil
}

func intField(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
