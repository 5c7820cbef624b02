package gateway

import (
	"net"
	"path/filepath"
	"testing"

	"gamelobby/internal/catalogclient"
	"gamelobby/internal/catalogstore"
	"gamelobby/internal/wireproto"
)

func startCatalog(t *testing.T) string {
	t.Helper()
	store, err := catalogstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	srv, err := catalogstore.NewServer(store, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv.Addr().String()
}

func startGateway(t *testing.T) *wireproto.Conn {
	t.Helper()
	catalogAddr := startCatalog(t)
	client, err := catalogclient.New([]string{catalogAddr})
	if err != nil {
		t.Fatalf("catalogclient.New: %v", err)
	}

	srv, err := NewServer(client, filepath.Join(t.TempDir(), "uploaded_games"), "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	netConn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { netConn.Close() })
	return wireproto.New(netConn)
}

func mustExchange(t *testing.T, conn *wireproto.Conn, req wireproto.Message) wireproto.Message {
	t.Helper()
	if err := conn.WriteMessage(req); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return resp
}

func TestRegisterLoginLogout(t *testing.T) {
	conn := startGateway(t)

	resp := mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "hunter2"})
	if resp["success"] != true {
		t.Fatalf("expected register success, got %v", resp)
	}

	resp = mustExchange(t, conn, wireproto.Message{"action": "login", "username": "alice", "password": "hunter2"})
	if resp["success"] != true {
		t.Fatalf("expected login success, got %v", resp)
	}

	resp = mustExchange(t, conn, wireproto.Message{"action": "logout"})
	if resp["success"] != true {
		t.Fatalf("expected logout success, got %v", resp)
	}
}

func TestDuplicateRegisterRejected(t *testing.T) {
	conn := startGateway(t)

	mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "hunter2"})
	resp := mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "other"})
	if resp["success"] != false || resp["error"] != "DuplicateUser" {
		t.Fatalf("expected DuplicateUser, got %v", resp)
	}
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	conn := startGateway(t)

	mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "hunter2"})
	resp := mustExchange(t, conn, wireproto.Message{"action": "login", "username": "alice", "password": "wrong"})
	if resp["success"] != false || resp["error"] != "InvalidCredentials" {
		t.Fatalf("expected InvalidCredentials, got %v", resp)
	}
}

func TestMyGamesRequiresAuthentication(t *testing.T) {
	conn := startGateway(t)

	resp := mustExchange(t, conn, wireproto.Message{"action": "my_games"})
	if resp["success"] != false || resp["error"] != errNotAuthenticated {
		t.Fatalf("expected NotAuthenticated, got %v", resp)
	}
}

func TestUploadGameFullProtocol(t *testing.T) {
	conn := startGateway(t)

	mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "hunter2"})
	mustExchange(t, conn, wireproto.Message{"action": "login", "username": "alice", "password": "hunter2"})

	resp := mustExchange(t, conn, wireproto.Message{"action": "upload_game", "game_name": "chat"})
	if resp["success"] != true {
		t.Fatalf("expected ready response, got %v", resp)
	}

	manifestJSON := `{
		"name": "chat", "version": "1.0", "description": "a chat room",
		"min_players": 2, "max_players": 8,
		"server": {"start_command": "python3", "entry_point": "server.py", "arguments": ["{PORT}", "{NUM_PLAYERS}"]},
		"client": {"start_command": "python3", "entry_point": "client.py", "arguments": ["{HOST}", "{PORT}", "{USERNAME}"]}
	}`

	if err := conn.WriteMessage(wireproto.Message{"file_count": 3}); err != nil {
		t.Fatalf("WriteMessage file_count: %v", err)
	}

	files := map[string]string{
		"game_info.json": manifestJSON,
		"server.py":      "# server",
		"client.py":      "# client",
	}
	for path, content := range files {
		if err := conn.WriteMessage(wireproto.Message{"path": path, "size": len(content)}); err != nil {
			t.Fatalf("WriteMessage header: %v", err)
		}
		if err := conn.WriteFile([]byte(content)); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	final, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage final: %v", err)
	}
	if final["success"] != true {
		t.Fatalf("expected upload success, got %v", final)
	}

	resp = mustExchange(t, conn, wireproto.Message{"action": "my_games"})
	games, _ := resp["games"].([]any)
	if len(games) != 1 {
		t.Fatalf("expected 1 game in my_games, got %v", resp)
	}
}

func TestUploadDuplicateNameRejected(t *testing.T) {
	conn := startGateway(t)
	mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "hunter2"})
	mustExchange(t, conn, wireproto.Message{"action": "login", "username": "alice", "password": "hunter2"})

	manifestJSON := `{
		"name": "chat", "version": "1.0", "description": "a chat room",
		"min_players": 2, "max_players": 8,
		"server": {"start_command": "python3", "entry_point": "server.py", "arguments": []},
		"client": {"start_command": "python3", "entry_point": "client.py", "arguments": []}
	}`
	uploadOnce := func() {
		mustExchange(t, conn, wireproto.Message{"action": "upload_game", "game_name": "chat"})
		conn.WriteMessage(wireproto.Message{"file_count": 3})
		files := map[string]string{"game_info.json": manifestJSON, "server.py": "# s", "client.py": "# c"}
		for path, content := range files {
			conn.WriteMessage(wireproto.Message{"path": path, "size": len(content)})
			conn.WriteFile([]byte(content))
		}
		conn.ReadMessage()
	}
	uploadOnce()

	resp := mustExchange(t, conn, wireproto.Message{"action": "upload_game", "game_name": "chat"})
	if resp["success"] != false || resp["error"] != errDuplicateName {
		t.Fatalf("expected DuplicateName, got %v", resp)
	}
}

func TestRemoveGameRequiresOwnership(t *testing.T) {
	conn := startGateway(t)
	mustExchange(t, conn, wireproto.Message{"action": "register", "username": "alice", "password": "hunter2"})
	mustExchange(t, conn, wireproto.Message{"action": "login", "username": "alice", "password": "hunter2"})

	resp := mustExchange(t, conn, wireproto.Message{"action": "remove_game", "game_name": "nonexistent"})
	if resp["success"] != false || resp["error"] != errNotFound {
		t.Fatalf("expected NotFound, got %v", resp)
	}
}
