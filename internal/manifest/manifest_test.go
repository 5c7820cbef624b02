package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writePackage(t *testing.T, dir string, info string, withServer, withClient bool) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(info), 0644); err != nil {
		t.Fatal(err)
	}
	if withServer {
		if err := os.WriteFile(filepath.Join(dir, "server.py"), []byte("# server"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if withClient {
		if err := os.WriteFile(filepath.Join(dir, "client.py"), []byte("# client"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

const validInfo = `{
  "name": "chat", "version": "1.0", "description": "a chat room",
  "min_players": 2, "max_players": 8,
  "server": {"start_command": "python3", "entry_point": "server.py", "arguments": ["{PORT}", "{NUM_PLAYERS}"]},
  "client": {"start_command": "python3", "entry_point": "client.py", "arguments": ["{HOST}", "{PORT}", "{USERNAME}"]}
}`

func TestValidateValidPackage(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, validInfo, true, true)

	m, err := Validate(dir)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.Name != "chat" || m.Version != "1.0" {
		t.Fatalf("unexpected manifest: %#v", m)
	}

	args := m.ServerArgs(5001, 3)
	if args[0] != "5001" || args[1] != "3" {
		t.Fatalf("unexpected server args: %v", args)
	}

	cargs := m.ClientArgs("lobby.example.com", 5001, "bob")
	if cargs[0] != "lobby.example.com" || cargs[1] != "5001" || cargs[2] != "bob" {
		t.Fatalf("unexpected client args: %v", cargs)
	}
}

func TestValidateMissingManifest(t *testing.T) {
	dir := t.TempDir()
	if _, err := Validate(dir); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

func TestValidateMissingServerEntryPoint(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, validInfo, false, true)

	_, err := Validate(dir)
	if err == nil {
		t.Fatalf("expected error for missing server entry point")
	}
}

func TestValidateMissingClientEntryPoint(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, validInfo, true, false)

	_, err := Validate(dir)
	if err == nil {
		t.Fatalf("expected error for missing client entry point")
	}
}

func TestValidateMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, `{"name": "chat"}`, true, true)

	_, err := Validate(dir)
	if err == nil {
		t.Fatalf("expected error for incomplete manifest")
	}
}

func TestListFilesRelativePOSIXPaths(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, validInfo, true, true)
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "sprite.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	want := map[string]bool{
		FileName:             false,
		"server.py":          false,
		"client.py":          false,
		"assets/sprite.png":  false,
	}
	for _, f := range files {
		if _, ok := want[f]; !ok {
			t.Fatalf("unexpected file in listing: %s", f)
		}
		want[f] = true
	}
	for f, seen := range want {
		if !seen {
			t.Fatalf("expected file %s in listing", f)
		}
	}
}
