package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains HTTP listener configuration.
type Server struct {
	APIBind           string   `toml:"api_bind"`
	ReadHeaderTimeout int      `toml:"read_header_timeout"`
	WriteTimeout      int      `toml:"write_timeout"`
	ShutdownTimeout   int      `toml:"shutdown_timeout"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	MetricsEnabled    bool     `toml:"metrics_enabled"`
}

// Store contains record store (SQLite) configuration.
type Store struct {
	// File is resolved relative to Paths.DataDir unless absolute.
	File              string `toml:"file"`
	BusyTimeoutMillis int    `toml:"busy_timeout_ms"`
}

// Cache contains position cache (BadgerDB) configuration.
type Cache struct {
	// Dir defaults to <data_dir>/poscache.
	Dir               string  `toml:"dir"`
	InMemory          bool    `toml:"in_memory"`
	SyncWrites        bool    `toml:"sync_writes"`
	GCIntervalSeconds int     `toml:"gc_interval_seconds"`
	GCDiscardRatio    float64 `toml:"gc_discard_ratio"`
}

// Notify contains change notifier configuration.
type Notify struct {
	HistoryCapacity     int `toml:"history_capacity"`
	SubscriberBuffer    int `toml:"subscriber_buffer"`
	PingIntervalSeconds int `toml:"ping_interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Stagehand.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Server: API bind address, timeouts, websocket origins, metrics
//   - Store: SQLite record store file and busy timeout
//   - Cache: BadgerDB position cache location and GC
//   - Notify: event history and subscriber buffering
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	Store   Store   `toml:"store"`
	Cache   Cache   `toml:"cache"`
	Notify  Notify  `toml:"notify"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath is the per-user configuration file, ~/.config/stagehand/config.toml.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join("~", ".config", "stagehand", "config.toml"))
}

// Load reads the configuration at path, or the first existing candidate
// location when path is empty, applies defaults and environment overrides,
// and validates the result. It also reports the file it settled on and
// whether that file existed; a missing file means pure defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath expands an explicit path, or else picks the user
// config file, then ./stagehand.toml, falling back to the user path when
// neither exists.
func resolveConfigPath(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		userPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidates = []string{userPath, "stagehand.toml"}
	}

	for i, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		candidates[i] = expanded
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config %s: %w", expanded, err)
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates required directories for server operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if !c.Cache.InMemory {
		dirs = append(dirs, c.Cache.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the absolute path of the SQLite record store.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Store.File) {
		return c.Store.File
	}
	return filepath.Join(c.Paths.DataDir, c.Store.File)
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "stagehand.lock")
}

// LogPath returns the server log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "stagehand.log")
}

// CacheGCInterval returns the badger value log GC cadence; zero disables GC.
func (c *Config) CacheGCInterval() time.Duration {
	return time.Duration(c.Cache.GCIntervalSeconds) * time.Second
}

// PingInterval returns the websocket keepalive cadence.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Notify.PingIntervalSeconds) * time.Second
}

// expandPath resolves a leading ~ to the home directory and makes the
// result absolute. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + value[1:]
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same ~ and absolute-path rules used for config
// paths.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample configuration to path,
// creating parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
