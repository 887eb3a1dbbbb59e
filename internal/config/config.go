// Package config holds the daemon configuration: defaults, overridden by an
// optional YAML file, then by KBC_* environment variables. Command-line flags
// are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`
	Debug   bool   `yaml:"debug"`

	Sync        SyncConfig        `yaml:"sync"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Cloud       CloudConfig       `yaml:"cloud"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Zeroconf    ZeroconfConfig    `yaml:"zeroconf"`
}

// SyncConfig configures the debounce windows.
type SyncConfig struct {
	Delay       string `yaml:"delay"`
	NotifyDelay string `yaml:"notify_delay"`
}

// Bridge transports.
const (
	TransportHTTP = "http"
	TransportDBus = "dbus"
	TransportMock = "mock"
)

// BridgeConfig selects and configures the keyboard transport.
type BridgeConfig struct {
	Transport  string `yaml:"transport"` // http, dbus, mock
	URL        string `yaml:"url"`
	BusName    string `yaml:"bus_name"`
	ObjectPath string `yaml:"object_path"`
	Timeout    string `yaml:"timeout"`
}

// Cloud backends.
const (
	CloudHTTP   = "http"
	CloudSQLite = "sqlite"
)

// CloudConfig configures the cloud mirror.
type CloudConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Backend    string  `yaml:"backend"` // http, sqlite
	URL        string  `yaml:"url"`
	Collection string  `yaml:"collection"`
	Token      string  `yaml:"token"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
	Timeout    string  `yaml:"timeout"`
	SQLitePath string  `yaml:"sqlite_path"`
}

// MaintenanceConfig configures background housekeeping.
type MaintenanceConfig struct {
	StatusInterval string `yaml:"status_interval"`
	Backups        bool   `yaml:"backups"`
	BackupKeep     int    `yaml:"backup_keep"`
}

// ZeroconfConfig configures LAN advertisement of the API.
type ZeroconfConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultDataDir returns ~/.config/kbcompanion.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kbcompanion"
	}
	return filepath.Join(home, ".config", "kbcompanion")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:  "127.0.0.1:5007",
		DataDir: DefaultDataDir(),
		Sync: SyncConfig{
			Delay:       "400ms",
			NotifyDelay: "150ms",
		},
		Bridge: BridgeConfig{
			Transport:  TransportHTTP,
			URL:        "http://127.0.0.1:5008",
			BusName:    "io.glyphkey.Keyboard",
			ObjectPath: "/io/glyphkey/Keyboard",
			Timeout:    "5s",
		},
		Cloud: CloudConfig{
			Backend:    CloudSQLite,
			Collection: "keyboard_settings",
			RatePerSec: 2,
			Burst:      4,
			Timeout:    "10s",
		},
		Maintenance: MaintenanceConfig{
			StatusInterval: "30s",
			Backups:        true,
			BackupKeep:     14,
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. An empty or missing path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KBC_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("KBC_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KBC_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	if v := os.Getenv("KBC_BRIDGE_TRANSPORT"); v != "" {
		c.Bridge.Transport = v
	}
	if v := os.Getenv("KBC_BRIDGE_URL"); v != "" {
		c.Bridge.URL = v
	}
	if v := os.Getenv("KBC_CLOUD_URL"); v != "" {
		c.Cloud.URL = v
	}
	if v := os.Getenv("KBC_CLOUD_TOKEN"); v != "" {
		c.Cloud.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Bridge.Transport {
	case TransportHTTP:
		if c.Bridge.URL == "" {
			return fmt.Errorf("bridge.url is required for the http transport")
		}
	case TransportDBus, TransportMock:
	default:
		return fmt.Errorf("unknown bridge transport %q", c.Bridge.Transport)
	}
	if c.Cloud.Enabled {
		switch c.Cloud.Backend {
		case CloudHTTP:
			if c.Cloud.URL == "" {
				return fmt.Errorf("cloud.url is required for the http backend")
			}
		case CloudSQLite:
		default:
			return fmt.Errorf("unknown cloud backend %q", c.Cloud.Backend)
		}
	}
	for name, d := range map[string]string{
		"sync.delay":                  c.Sync.Delay,
		"sync.notify_delay":           c.Sync.NotifyDelay,
		"bridge.timeout":              c.Bridge.Timeout,
		"cloud.timeout":               c.Cloud.Timeout,
		"maintenance.status_interval": c.Maintenance.StatusInterval,
	} {
		if d == "" {
			continue
		}
		if v, err := time.ParseDuration(d); err != nil || v <= 0 {
			return fmt.Errorf("%s: invalid duration %q", name, d)
		}
	}
	return nil
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetSyncDelay returns the settings debounce window.
func (c *Config) GetSyncDelay() time.Duration { return duration(c.Sync.Delay, 400*time.Millisecond) }

// GetNotifyDelay returns the change-signal debounce window.
func (c *Config) GetNotifyDelay() time.Duration {
	return duration(c.Sync.NotifyDelay, 150*time.Millisecond)
}

// GetBridgeTimeout returns the per-call keyboard timeout.
func (c *Config) GetBridgeTimeout() time.Duration { return duration(c.Bridge.Timeout, 5*time.Second) }

// GetCloudTimeout returns the per-call cloud timeout.
func (c *Config) GetCloudTimeout() time.Duration { return duration(c.Cloud.Timeout, 10*time.Second) }

// GetStatusInterval returns the keyboard status poll period.
func (c *Config) GetStatusInterval() time.Duration {
	return duration(c.Maintenance.StatusInterval, 30*time.Second)
}

// CloudSQLitePath returns the mirror database path, defaulting into DataDir.
func (c *Config) CloudSQLitePath() string {
	if c.Cloud.SQLitePath != "" {
		return c.Cloud.SQLitePath
	}
	return filepath.Join(c.DataDir, "mirror.db")
}

// BackupDir returns the preference backup directory, or "" when disabled.
func (c *Config) BackupDir() string {
	if !c.Maintenance.Backups {
		return ""
	}
	return filepath.Join(c.DataDir, "backups")
}
