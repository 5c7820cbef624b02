// Package model defines the persisted record shapes shared by the
// Catalog Store, Developer Gateway, and Lobby: User, Game, Version,
// and Review. Room and Session, being in-memory-only and owned by the
// Lobby, live in internal/lobby instead.
package model

import (
	"encoding/json"
	"time"
)

// AccountType distinguishes the two User namespaces. A username may
// exist once per AccountType; (username, account_type) is the unique
// key, so the same username can be both a developer and a player.
type AccountType string

const (
	AccountDeveloper AccountType = "developer"
	AccountPlayer    AccountType = "player"
)

// GameStatus reflects whether a Game is visible to players.
type GameStatus string

const (
	GameActive  GameStatus = "active"
	GameRemoved GameStatus = "removed"
)

// User is a developer or player account.
type User struct {
	ID           string      `json:"_id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"password_hash"`
	AccountType  AccountType `json:"account_type"`
	MFASecret    string      `json:"mfa_secret,omitempty"`
	MFAEnabled   bool        `json:"mfa_enabled,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at,omitempty"`
}

// Game is a published title. Name is unique across all games
// regardless of Status. LatestVersion always equals the version of the
// Game's most recently uploaded Version record.
type Game struct {
	ID            string     `json:"_id"`
	Name          string     `json:"name"`
	DeveloperID   string     `json:"developer_id"`
	DeveloperName string     `json:"developer_name"`
	LatestVersion string     `json:"latest_version"`
	Description   string     `json:"description"`
	MinPlayers    int        `json:"min_players"`
	MaxPlayers    int        `json:"max_players"`
	Status        GameStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

// Version is an immutable package upload record.
type Version struct {
	ID        string    `json:"_id"`
	GameID    string    `json:"game_id"`
	Version   string    `json:"version"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a player's rating/comment on a Game. Never updated or
// deleted; a player may submit multiple reviews for the same game.
type Review struct {
	ID         string    `json:"_id"`
	GameID     string    `json:"game_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// AsDoc round-trips v through JSON into a map[string]any, the shape
// catalogclient.Insert/Update expect. ID/CreatedAt/UpdatedAt are left
// for the Catalog Store to assign or stamp: the encoded _id and
// created_at are overwritten server-side on insert, and updated_at is
// dropped here so that only an actual update stamps it.
func AsDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "updated_at")
	return doc, nil
}
