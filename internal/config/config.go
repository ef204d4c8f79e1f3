// Package config holds user-level settings for Herald. Settings come
// from .herald/config.yaml with HERALD_* environment variables layered
// on top, so a shell or .env file can override the file without
// touching it.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configFile = ".herald/config.yaml"

// Config holds every Herald setting.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Push     PushConfig     `yaml:"push"`
	Sound    SoundConfig    `yaml:"sound"`
	Poll     PollConfig     `yaml:"poll"`
	Storage  StorageConfig  `yaml:"storage"`
	Location LocationConfig `yaml:"location"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig points at the CivicWatch backend.
type ServerConfig struct {
	// BaseURL of the API. Empty means the production backend.
	BaseURL string `yaml:"baseURL"`
}

// PushConfig holds push relay settings.
type PushConfig struct {
	// RelayURL is the websocket address of the push relay daemon.
	// Empty disables push entirely.
	RelayURL string `yaml:"relayURL"`
}

// SoundConfig holds chime settings.
type SoundConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PollConfig controls the background badge re-check.
type PollConfig struct {
	// Schedule is a cron expression. Empty disables the background poll.
	Schedule string `yaml:"schedule"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	// Engine is "sqlite" or "json".
	Engine string `yaml:"engine"`
	// Dir overrides the state directory. Empty means ~/.herald.
	Dir string `yaml:"dir"`
}

// LocationConfig controls the optional position enrichment.
type LocationConfig struct {
	// Mode is "off", "geoip", or "static".
	Mode string `yaml:"mode"`
	// URL of the geolocation endpoint in geoip mode.
	URL string `yaml:"url"`
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
	// File receives the log. Empty logs to stderr for headless commands,
	// or to the state directory while the TUI owns the terminal.
	File string `yaml:"file"`
}

// Default returns the settings used before any file or environment
// overrides.
func Default() *Config {
	return &Config{
		Sound: SoundConfig{Enabled: true},
		Poll:  PollConfig{Schedule: "@every 5m"},
		Storage: StorageConfig{
			Engine: "sqlite",
		},
		Location: LocationConfig{Mode: "off"},
		Log:      LogConfig{Level: "info"},
	}
}

// configPath returns the full path to the config file.
func configPath(baseDir string) string {
	return filepath.Join(baseDir, configFile)
}

// Exists checks if the config file exists.
func Exists(baseDir string) bool {
	_, err := os.Stat(configPath(baseDir))
	return err == nil
}

// Load reads the config from .herald/config.yaml under baseDir and
// applies environment overrides. A missing file is not an error, the
// defaults are returned instead.
func Load(baseDir string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(configPath(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config to .herald/config.yaml under baseDir.
func Save(baseDir string, cfg *Config) error {
	path := configPath(baseDir)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// StateDir resolves the directory holding the ledger, device identity,
// and push state.
func (c *Config) StateDir() string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".herald"
	}
	return filepath.Join(home, ".herald")
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HERALD_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("HERALD_RELAY_URL"); v != "" {
		c.Push.RelayURL = v
	}
	if v := os.Getenv("HERALD_SOUND"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Sound.Enabled = enabled
		}
	}
	if v := os.Getenv("HERALD_POLL_SCHEDULE"); v != "" {
		c.Poll.Schedule = v
	}
	if v := os.Getenv("HERALD_STORAGE_ENGINE"); v != "" {
		c.Storage.Engine = v
	}
	if v := os.Getenv("HERALD_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("HERALD_LOCATION_MODE"); v != "" {
		c.Location.Mode = v
	}
	if v := os.Getenv("HERALD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HERALD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("HERALD_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}
