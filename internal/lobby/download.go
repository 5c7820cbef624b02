package lobby

import (
	"fmt"
	"os"
	"path/filepath"

	"gamelobby/internal/manifest"
	"gamelobby/internal/wireproto"
)

// handleDownloadGame inverts the Gateway's upload protocol: it owns
// the rest of the conversation, sending a {success, version, message}
// header, then {file_count}, then one {path, size} + file-frame pair
// per file in the game's package directory. Grounded in
// original_source/server/lobby_server.py's _handle_download_game.
func (s *Server) handleDownloadGame(conn *wireproto.Conn, req wireproto.Message) error {
	gameName, _ := req["game_name"].(string)
	if gameName == "" {
		return conn.WriteMessage(errorMsg("Game name required"))
	}

	game, err := s.catalog.FindOne("Game", map[string]any{"name": gameName, "status": "active"})
	if err != nil || game == nil {
		return conn.WriteMessage(errorMsg("Game not found"))
	}
	latestVersion := fmt.Sprint(game["latest_version"])

	version, err := s.catalog.FindOne("Version", map[string]any{"game_id": game["_id"], "version": latestVersion})
	if err != nil || version == nil {
		return conn.WriteMessage(errorMsg("Game version not found"))
	}
	gameDir := fmt.Sprint(version["file_path"])

	files, err := manifest.ListFiles(gameDir)
	if err != nil {
		return conn.WriteMessage(errorMsg("Failed to read game package"))
	}

	if err := conn.WriteMessage(wireproto.Message{
		"success": true,
		"version": latestVersion,
		"message": "Sending " + gameName + " v" + latestVersion,
	}); err != nil {
		return err
	}

	if err := conn.WriteMessage(wireproto.Message{"file_count": len(files)}); err != nil {
		return err
	}

	for _, rel := range files {
		full := filepath.Join(gameDir, filepath.FromSlash(rel))
		f, err := os.Open(full)
		if err != nil {
			return fmt.Errorf("lobby: opening %s for download: %w", full, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return fmt.Errorf("lobby: statting %s for download: %w", full, err)
		}

		if err := conn.WriteMessage(wireproto.Message{"path": rel, "size": info.Size()}); err != nil {
			f.Close()
			return err
		}
		err = conn.WriteFileStream(f, info.Size())
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
