package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.APIPort != 3333 {
		t.Fatalf("expected default port 3333, got %d", c.APIPort)
	}
	if c.EndpointShape != EndpointShapeProgram {
		t.Fatalf("expected default endpoint shape %q, got %q", EndpointShapeProgram, c.EndpointShape)
	}
	if c.Storage != StorageMemory {
		t.Fatalf("expected memory storage, got %q", c.Storage)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api_port = 8080
api_key_auth = true
api_keys = ["k1", "k2"]
storage = "dir"
programs_dir = "/tmp/progs"
endpoint_shape = "update"
api_key = "k1"
log_level = "debug"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.APIPort != 8080 || !c.APIKeyAuth || len(c.APIKeys) != 2 || c.APIKey != "k1" {
		t.Fatalf("unexpected api settings: %+v", c)
	}
	if c.Storage != StorageDir || c.ProgramsDir != "/tmp/progs" {
		t.Fatalf("unexpected storage settings: %+v", c)
	}
	if c.EndpointShape != EndpointShapeUpdate {
		t.Fatalf("expected update shape, got %q", c.EndpointShape)
	}
	if c.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", c.SlogLevel())
	}
}

func TestLoadRejectsUnknownShape(t *testing.T) {
	path := writeConfig(t, `endpoint_shape = "rest"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown endpoint shape")
	}
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	path := writeConfig(t, `storage = "s3"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown storage")
	}
}

func TestSlogLevelFallsBackToInfo(t *testing.T) {
	c := &Config{LogLevel: "loud"}
	if c.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info, got %v", c.SlogLevel())
	}
}

func TestLoadRejectsOpenSSHWithKeyAuth(t *testing.T) {
	path := writeConfig(t, `
api_key_auth = true
api_keys = ["k1"]
ssh_enabled = true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for ssh without authorized keys under key auth")
	}

	path = writeConfig(t, `
api_key_auth = true
api_keys = ["k1"]
ssh_enabled = true
ssh_authorized_keys_path = "/etc/livecode/authorized_keys"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
