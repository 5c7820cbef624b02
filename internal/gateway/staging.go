package gateway

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"gamelobby/internal/wireproto"
)

// newStagingDir creates a fresh temp_<8 hex chars> directory under
// uploadDir, matching developer_server.py's uuid4()[:8] convention.
func newStagingDir(uploadDir string) (string, error) {
	name := "temp_" + uuid.New().String()[:8]
	path := filepath.Join(uploadDir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return path, nil
}

// receiveFiles reads the {file_count} message followed by K
// {path, size} + file-frame pairs, writing each into stagingDir.
func receiveFiles(conn *wireproto.Conn, stagingDir string) error {
	countMsg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	count := intField(countMsg["file_count"])

	for i := 0; i < count; i++ {
		header, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		relPath, _ := header["path"].(string)
		if relPath == "" {
			return fmt.Errorf("empty file path in upload stream")
		}

		data, err := conn.ReadFile()
		if err != nil {
			return err
		}

		destPath := filepath.Join(stagingDir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", relPath, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", relPath, err)
		}
	}
	return nil
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

func purgeStagingDir(dir string) {
	os.RemoveAll(dir)
}
