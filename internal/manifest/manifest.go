// Package manifest parses and validates a game package's game_info.json
// contract, grounded in original_source/common/validate_game.py.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest's required file name within a package
// directory.
const FileName = "game_info.json"

// Process describes one side (server or client) of the launch
// contract: how to invoke it and with what arguments. {PORT} and
// {NUM_PLAYERS} are substituted into the server's arguments;
// {HOST}, {PORT}, and {USERNAME} into the client's.
type Process struct {
	StartCommand string   `json:"start_command"`
	EntryPoint   string   `json:"entry_point"`
	Arguments    []string `json:"arguments"`
}

// Manifest is the parsed game_info.json contract.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	MinPlayers  int      `json:"min_players"`
	MaxPlayers  int      `json:"max_players"`
	Server      Process  `json:"server"`
	Client      Process  `json:"client"`
}

// ServerArgs substitutes {PORT} and {NUM_PLAYERS} into the server's
// argument list.
func (m *Manifest) ServerArgs(port, numPlayers int) []string {
	return substitute(m.Server.Arguments, map[string]string{
		"{PORT}":        fmt.Sprint(port),
		"{NUM_PLAYERS}": fmt.Sprint(numPlayers),
	})
}

// ClientArgs substitutes {HOST}, {PORT}, and {USERNAME} into the
// client's argument list.
func (m *Manifest) ClientArgs(host string, port int, username string) []string {
	return substitute(m.Client.Arguments, map[string]string{
		"{HOST}":     host,
		"{PORT}":     fmt.Sprint(port),
		"{USERNAME}": username,
	})
}

func substitute(args []string, values map[string]string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		for token, value := range values {
			arg = strings.ReplaceAll(arg, token, value)
		}
		out[i] = arg
	}
	return out
}

// Validate parses dir/game_info.json and checks that the manifest is
// well-formed and that both entry points exist on disk relative to
// dir. The first violation encountered is returned verbatim as the
// error string (matching validate_game_package's contract: callers
// surface err.Error() directly as the upload failure reason).
func Validate(dir string) (*Manifest, error) {
	infoPath := filepath.Join(dir, FileName)
	raw, err := os.ReadFile(infoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("missing %s", FileName)
		}
		return nil, fmt.Errorf("cannot read %s: %w", FileName, err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", FileName, err)
	}

	if m.Name == "" {
		return nil, fmt.Errorf("missing required field: name")
	}
	if m.Version == "" {
		return nil, fmt.Errorf("missing required field: version")
	}
	if m.Description == "" {
		return nil, fmt.Errorf("missing required field: description")
	}
	if m.MinPlayers == 0 {
		return nil, fmt.Errorf("missing required field: min_players")
	}
	if m.MaxPlayers == 0 {
		return nil, fmt.Errorf("missing required field: max_players")
	}

	if m.Server.EntryPoint == "" {
		return nil, fmt.Errorf("missing server.entry_point")
	}
	if _, err := os.Stat(filepath.Join(dir, m.Server.EntryPoint)); err != nil {
		return nil, fmt.Errorf("server entry point not found: %s", m.Server.EntryPoint)
	}

	if m.Client.EntryPoint == "" {
		return nil, fmt.Errorf("missing client.entry_point")
	}
	if _, err := os.Stat(filepath.Join(dir, m.Client.EntryPoint)); err != nil {
		return nil, fmt.Errorf("client entry point not found: %s", m.Client.EntryPoint)
	}

	return &m, nil
}

// ListFiles walks dir and returns every regular file's path relative
// to dir, using forward slashes regardless of host OS, matching the
// POSIX-style relative paths the download protocol promises.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing package files: %w", err)
	}
	return files, nil
}
