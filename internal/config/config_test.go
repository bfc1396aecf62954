package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Cache.LocationTTL != time.Hour {
		t.Errorf("location ttl = %v, want 1h", cfg.Cache.LocationTTL)
	}
	if cfg.Budgets.Event != 15*time.Second {
		t.Errorf("event budget = %v, want 15s", cfg.Budgets.Event)
	}
	if cfg.Worker.Concurrency != 5 {
		t.Errorf("concurrency = %d, want 5", cfg.Worker.Concurrency)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9090"
cache:
  event_ttl: 10m
budgets:
  search: 3s
keys:
  ticketmaster: tm-key
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Cache.EventTTL != 10*time.Minute {
		t.Errorf("event ttl = %v, want 10m", cfg.Cache.EventTTL)
	}
	if cfg.Budgets.Search != 3*time.Second {
		t.Errorf("search budget = %v, want 3s", cfg.Budgets.Search)
	}
	if cfg.Keys.Ticketmaster != "tm-key" {
		t.Errorf("ticketmaster key = %q", cfg.Keys.Ticketmaster)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.LocationTTL != time.Hour {
		t.Errorf("location ttl = %v, want the default 1h", cfg.Cache.LocationTTL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("CACHE_SEARCH_TTL", "5m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("environment must win over the file, addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.SearchTTL != 5*time.Minute {
		t.Errorf("search ttl = %v, want 5m", cfg.Cache.SearchTTL)
	}
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  event_ttl: -1s\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("err = %v, want ErrInvalidTTL", err)
	}
}

func TestLoadRejectsNonPositiveBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("budgets:\n  location: 0s\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidBudget) {
		t.Errorf("err = %v, want ErrInvalidBudget", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml must be rejected")
	}
}
