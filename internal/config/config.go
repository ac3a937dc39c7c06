package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIProtocol = "https"
	defaultAPIHost     = "localhost"
	defaultAPIPort     = 14443
	defaultLocalPort   = 12345

	configFileName = "config.json"
)

// Config holds the persisted agent configuration.
type Config struct {
	APIProtocol      string `json:"api_protocol"`
	APIHost          string `json:"api_host"`
	APIPort          int    `json:"api_port"`
	APIToken         string `json:"api_token"`
	LocalPort        int    `json:"local_port"`
	InputDeviceName  string `json:"input_device_name,omitempty"`
	OutputDeviceName string `json:"output_device_name,omitempty"`

	// MinMeetingLength is in minutes. Recordings shorter than this are
	// discarded on stop; zero disables discarding.
	MinMeetingLength int `json:"min_meeting_length"`
}

// Default returns the configuration used on first run.
func Default() Config {
	return Config{
		APIProtocol: defaultAPIProtocol,
		APIHost:     defaultAPIHost,
		APIPort:     defaultAPIPort,
		LocalPort:   defaultLocalPort,
	}
}

// APIBaseURL builds the backend API root from the connection settings.
func (c Config) APIBaseURL() string {
	return fmt.Sprintf("%s://%s:%d/api/v1", c.APIProtocol, c.APIHost, c.APIPort)
}

// MinMeetingDuration converts the configured minimum to a duration.
func (c Config) MinMeetingDuration() time.Duration {
	return time.Duration(c.MinMeetingLength) * time.Minute
}

// normalize fills zero values left by partial config files.
func (c *Config) normalize() {
	if c.APIProtocol == "" {
		c.APIProtocol = defaultAPIProtocol
	}
	if c.APIHost == "" {
		c.APIHost = defaultAPIHost
	}
	if c.APIPort == 0 {
		c.APIPort = defaultAPIPort
	}
	if c.LocalPort == 0 {
		c.LocalPort = defaultLocalPort
	}
}

// DefaultPath resolves the config file location: a config.json in the
// working directory wins as a development override, otherwise the standard
// per-user configuration directory is used.
func DefaultPath() string {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(dir, "rekam", configFileName)
}

// Store is a concurrency-safe holder for the live configuration. The
// control plane updates it at runtime (pairing, device selection) and
// every consumer reads point-in-time snapshots.
type Store struct {
	mu     sync.RWMutex
	cfg    Config
	path   string
	logger *zap.Logger
}

// Load reads the configuration at path, creating it with defaults when it
// does not exist. A corrupt file logs and falls back to defaults rather
// than failing startup.
func Load(path string, logger *zap.Logger) *Store {
	s := &Store{path: path, logger: logger, cfg: Default()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("Config file not found, creating defaults", zap.String("path", path))
		if err := s.save(s.cfg); err != nil {
			logger.Error("Failed to write default config", zap.Error(err))
		}
		return s
	}
	if err != nil {
		logger.Error("Failed to read config, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Error("Failed to parse config, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}
	cfg.normalize()
	s.cfg = cfg
	logger.Info("Config loaded", zap.String("path", path))
	return s
}

// Get returns a snapshot of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to the configuration and persists the result.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
	s.cfg.normalize()
	return s.save(s.cfg)
}

func (s *Store) save(cfg Config) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
