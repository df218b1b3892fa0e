package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgconfig "moodboard/server/pkg/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config valid, got %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Fatalf("expected default address :8080, got %s", cfg.App.HTTP.Address())
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected port 0 rejected")
	}
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected port 70000 rejected")
	}
}

func TestValidateRejectsEmptySQLitePath(t *testing.T) {
	cfg := Default()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected empty sqlite path rejected")
	}
}

func TestValidateRejectsZeroRetryCeiling(t *testing.T) {
	cfg := Default()
	cfg.Sync.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero retry ceiling rejected")
	}
}

func TestLoadOverridesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_DIR", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  http:
    port: 9090
sqlite:
  path: ${TEST_DB_DIR}/boards.db
sync:
  reconnect_base: 2s
  max_attempts: 7
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg := Default()
	if err := pkgconfig.LoadOptional(path, cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected loaded config valid, got %v", err)
	}

	if cfg.App.HTTP.Port != 9090 {
		t.Fatalf("expected port override 9090, got %d", cfg.App.HTTP.Port)
	}
	if filepath.Base(cfg.SQLite.Path) != "boards.db" || cfg.SQLite.Path == "${TEST_DB_DIR}/boards.db" {
		t.Fatalf("expected env expanded in sqlite path, got %q", cfg.SQLite.Path)
	}
	if cfg.Sync.ReconnectBase != 2*time.Second || cfg.Sync.MaxAttempts != 7 {
		t.Fatalf("expected sync overrides applied, got %+v", cfg.Sync)
	}
	if cfg.Sync.ReconnectCap != 30*time.Second {
		t.Fatalf("expected unset fields to keep defaults, got %s", cfg.Sync.ReconnectCap)
	}
	if cfg.History.MaxEntries != 100 {
		t.Fatalf("expected history default kept, got %d", cfg.History.MaxEntries)
	}
}

func TestLoadOptionalMissingFileKeepsDefaults(t *testing.T) {
	cfg := Default()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err != nil {
		t.Fatalf("expected missing file tolerated, got %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Fatalf("expected defaults kept, got %d", cfg.App.HTTP.Port)
	}
}
