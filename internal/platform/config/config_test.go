package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadDefaults verifies a config loads with pure defaults when no file
// is present.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected error for an explicitly named missing file")
	}

	// Without an explicit path the missing file is tolerated.
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(t.TempDir())

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Cache.Backend != "dynamodb" {
		t.Errorf("Expected dynamodb default backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("Expected 2m default TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.QueryTimeout != 150*time.Millisecond {
		t.Errorf("Expected 150ms default query timeout, got %v", cfg.Cache.QueryTimeout)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected default HTTP port 8080, got %d", cfg.HTTP.Port)
	}

	t.Log("✓ Defaults load and validate")
}

// TestLoadFromFile verifies file values override defaults and validation
// catches bad values.
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	good := []byte("cache:\n  backend: redis\n  ttl: 90s\nredis:\n  address: cache:6379\n")
	if err := os.WriteFile(path, good, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Backend != "redis" || cfg.Redis.Address != "cache:6379" {
		t.Errorf("Expected file overrides applied, got %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Expected 90s TTL, got %v", cfg.Cache.TTL)
	}

	bad := []byte("cache:\n  backend: filesystem\n")
	if err := os.WriteFile(path, bad, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for unknown backend")
	}

	t.Log("✓ File values override defaults; validation rejects bad config")
}
