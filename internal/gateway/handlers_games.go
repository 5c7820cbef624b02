package gateway

import (
	"fmt"
	"os"
	"path/filepath"

	"gamelobby/internal/manifest"
	"gamelobby/internal/model"
	"gamelobby/internal/wireproto"
)

// handleMyGames returns every Game owned by the caller, active or
// removed — a supplemented feature over spec.md, grounded in
// original_source/client_demo_package/developer_client.py, which lists
// a developer's own removed titles alongside active ones.
func (s *Server) handleMyGames(sess *session) wireproto.Message {
	games, err := s.catalog.Find("Game", map[string]any{"developer_id": sess.userID})
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}
	return wireproto.Message{"success": true, "games": toAnySlice(games)}
}

// handleUploadGame drives the full upload protocol from spec.md §4.3:
// it owns the conversation on conn beyond the initial request, writing
// every intermediate and final reply itself.
func (s *Server) handleUploadGame(conn *wireproto.Conn, sess *session, req wireproto.Message) error {
	gameName, _ := req["game_name"].(string)
	if gameName == "" {
		return conn.WriteMessage(errorMsg(errInvalidRequest, "game_name is required"))
	}

	existing, err := s.catalog.FindOne("Game", map[string]any{"name": gameName})
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}
	if existing != nil {
		return conn.WriteMessage(errorMsg(errDuplicateName, fmt.Sprintf("game %q already exists", gameName)))
	}

	if err := conn.WriteMessage(wireproto.Message{"success": true, "message": "Ready to receive files"}); err != nil {
		return err
	}

	stagingDir, err := newStagingDir(s.uploadDir)
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}

	if err := receiveFiles(conn, stagingDir); err != nil {
		purgeStagingDir(stagingDir)
		return err
	}

	m, err := manifest.Validate(stagingDir)
	if err != nil {
		purgeStagingDir(stagingDir)
		return conn.WriteMessage(errorMsg(errInvalidPackage, err.Error()))
	}

	finalDir := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", gameName, m.Version))
	if err := os.Rename(stagingDir, finalDir); err != nil {
		purgeStagingDir(stagingDir)
		return conn.WriteMessage(errorMsg(errInternalError, fmt.Sprintf("promoting package: %v", err)))
	}

	gameDoc, err := model.AsDoc(model.Game{
		Name:          gameName,
		DeveloperID:   sess.userID,
		DeveloperName: sess.username,
		LatestVersion: m.Version,
		Description:   m.Description,
		MinPlayers:    m.MinPlayers,
		MaxPlayers:    m.MaxPlayers,
		Status:        model.GameActive,
	})
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}
	gameID, err := s.catalog.Insert("Game", gameDoc)
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}

	versionDoc, err := model.AsDoc(model.Version{GameID: gameID, Version: m.Version, FilePath: finalDir})
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}
	if _, err := s.catalog.Insert("Version", versionDoc); err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}

	s.invalidateGameCaches(gameName)
	return conn.WriteMessage(wireproto.Message{"success": true, "game_id": gameID, "version": m.Version})
}

// handleUpdateGame mirrors handleUploadGame but requires the game to
// already exist and be owned by the caller; prior version directories
// are retained on disk.
func (s *Server) handleUpdateGame(conn *wireproto.Conn, sess *session, req wireproto.Message) error {
	gameName, _ := req["game_name"].(string)
	if gameName == "" {
		return conn.WriteMessage(errorMsg(errInvalidRequest, "game_name is required"))
	}

	game, err := s.catalog.FindOne("Game", map[string]any{"name": gameName})
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}
	if game == nil {
		return conn.WriteMessage(errorMsg(errNotFound, fmt.Sprintf("game %q not found", gameName)))
	}
	if game["developer_id"] != sess.userID {
		return conn.WriteMessage(errorMsg(errNotOwner, "you do not own this game"))
	}

	if err := conn.WriteMessage(wireproto.Message{"success": true, "message": "Ready to receive files"}); err != nil {
		return err
	}

	stagingDir, err := newStagingDir(s.uploadDir)
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}

	if err := receiveFiles(conn, stagingDir); err != nil {
		purgeStagingDir(stagingDir)
		return err
	}

	m, err := manifest.Validate(stagingDir)
	if err != nil {
		purgeStagingDir(stagingDir)
		return conn.WriteMessage(errorMsg(errInvalidPackage, err.Error()))
	}

	finalDir := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", gameName, m.Version))
	if err := os.Rename(stagingDir, finalDir); err != nil {
		purgeStagingDir(stagingDir)
		return conn.WriteMessage(errorMsg(errInternalError, fmt.Sprintf("promoting package: %v", err)))
	}

	gameID, _ := game["_id"].(string)
	if _, err := s.catalog.Update("Game", map[string]any{"_id": gameID}, map[string]any{
		"latest_version": m.Version,
		"description":    m.Description,
		"min_players":    m.MinPlayers,
		"max_players":    m.MaxPlayers,
	}); err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}

	versionDoc, err := model.AsDoc(model.Version{GameID: gameID, Version: m.Version, FilePath: finalDir})
	if err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}
	if _, err := s.catalog.Insert("Version", versionDoc); err != nil {
		return conn.WriteMessage(errorMsg(errInternalError, err.Error()))
	}

	s.invalidateGameCaches(gameName)
	return conn.WriteMessage(wireproto.Message{"success": true, "game_id": gameID, "version": m.Version})
}

func (s *Server) handleRemoveGame(sess *session, req wireproto.Message) wireproto.Message {
	gameName, _ := req["game_name"].(string)
	if gameName == "" {
		return errorMsg(errInvalidRequest, "game_name is required")
	}

	game, err := s.catalog.FindOne("Game", map[string]any{"name": gameName})
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}
	if game == nil {
		return errorMsg(errNotFound, fmt.Sprintf("game %q not found", gameName))
	}
	if game["developer_id"] != sess.userID {
		return errorMsg(errNotOwner, "you do not own this game")
	}

	gameID, _ := game["_id"].(string)
	if _, err := s.catalog.Update("Game", map[string]any{"_id": gameID}, map[string]any{"status": "removed"}); err != nil {
		return errorMsg(errInternalError, err.Error())
	}

	s.invalidateGameCaches(gameName)
	return wireproto.Message{"success": true}
}

func toAnySlice(docs []map[string]any) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}
