package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Batch.MaxWrites != 400 {
		t.Errorf("expected default batch cap 400, got %d", cfg.Batch.MaxWrites)
	}
	if cfg.Replicator.SourceCollection != "allOrders" {
		t.Errorf("unexpected source collection %q", cfg.Replicator.SourceCollection)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rosterhub.yaml")
	yaml := `
server:
  port: "9090"
batch:
  max_writes: 250
cache:
  ttl: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Batch.MaxWrites != 250 {
		t.Errorf("expected batch cap 250, got %d", cfg.Batch.MaxWrites)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", cfg.Cache.TTL)
	}
	// Unset sections keep defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %q", cfg.NATS.URL)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rosterhub.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ROSTERHUB_PORT", "7070")
	t.Setenv("ROSTERHUB_BATCH_MAX_WRITES", "100")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected env port 7070, got %q", cfg.Server.Port)
	}
	if cfg.Batch.MaxWrites != 100 {
		t.Errorf("expected env batch cap 100, got %d", cfg.Batch.MaxWrites)
	}
}

func TestValidateRejectsCapAtStoreLimit(t *testing.T) {
	cfg := Defaults()
	cfg.Batch.MaxWrites = 500
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for cap at store hard limit")
	}

	cfg.Batch.MaxWrites = 499
	if err := validate(&cfg); err != nil {
		t.Fatalf("cap below limit should validate: %v", err)
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
