package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress == "" || cfg.DataDir == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Backend != BackendLevelDB {
		t.Fatalf("expected leveldb default backend, got %q", cfg.Backend)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}

	// Reloading the generated file yields the same configuration.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("reload mismatch: %+v != %+v", again, cfg)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("Backend = \"redis\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
