package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent", "config.json")
	store := Load(path, zap.NewNop())

	cfg := store.Get()
	if cfg.APIProtocol != "https" {
		t.Errorf("Expected default protocol https, got %s", cfg.APIProtocol)
	}
	if cfg.APIHost != "localhost" {
		t.Errorf("Expected default host localhost, got %s", cfg.APIHost)
	}
	if cfg.APIPort != 14443 {
		t.Errorf("Expected default port 14443, got %d", cfg.APIPort)
	}
	if cfg.LocalPort != 12345 {
		t.Errorf("Expected default local port 12345, got %d", cfg.LocalPort)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected config file created on first load: %v", err)
	}
}

func TestUpdatePersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := Load(path, zap.NewNop())

	err := store.Update(func(c *Config) {
		c.APIHost = "backend.example.com"
		c.APIToken = "secret"
		c.MinMeetingLength = 3
	})
	if err != nil {
		t.Fatalf("Failed to update config: %v", err)
	}

	reloaded := Load(path, zap.NewNop()).Get()
	if reloaded.APIHost != "backend.example.com" {
		t.Errorf("Expected persisted host, got %s", reloaded.APIHost)
	}
	if reloaded.APIToken != "secret" {
		t.Errorf("Expected persisted token, got %q", reloaded.APIToken)
	}
	if reloaded.MinMeetingLength != 3 {
		t.Errorf("Expected persisted minimum length 3, got %d", reloaded.MinMeetingLength)
	}
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to seed corrupt file: %v", err)
	}

	cfg := Load(path, zap.NewNop()).Get()
	if cfg.APIPort != 14443 {
		t.Errorf("Expected defaults after corrupt file, got port %d", cfg.APIPort)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"api_host": "other"}`), 0o600); err != nil {
		t.Fatalf("Failed to seed partial file: %v", err)
	}

	cfg := Load(path, zap.NewNop()).Get()
	if cfg.APIHost != "other" {
		t.Errorf("Expected host from file, got %s", cfg.APIHost)
	}
	if cfg.APIProtocol != "https" || cfg.APIPort != 14443 {
		t.Errorf("Expected missing fields filled with defaults, got %s port %d", cfg.APIProtocol, cfg.APIPort)
	}
}

func TestAPIBaseURL(t *testing.T) {
	cfg := Config{APIProtocol: "https", APIHost: "example.com", APIPort: 9443}
	if got := cfg.APIBaseURL(); got != "https://example.com:9443/api/v1" {
		t.Errorf("Expected versioned base URL, got %s", got)
	}
}

func TestMinMeetingDuration(t *testing.T) {
	cfg := Config{MinMeetingLength: 2}
	if got := cfg.MinMeetingDuration(); got != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", got)
	}
	if got := (Config{}).MinMeetingDuration(); got != 0 {
		t.Errorf("Expected zero to disable discarding, got %v", got)
	}
}
