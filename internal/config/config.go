package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"dpc-go/internal/model"
)

// Config represents the main configuration for dpc.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Scan       ScanConfig       `toml:"scan"`
	Actions    map[string]int   `toml:"actions,omitempty"` // action kind name -> stored code
	Filesystem FilesystemConfig `toml:"filesystem"`
	Watch      WatchConfig      `toml:"watch"`
	Log        LogConfig        `toml:"log"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// DatabaseConfig represents configuration for the cache database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type        string `toml:"type"`               // "sqlite" or "memory"
	DataDir     string `toml:"data_dir,omitempty"` // database is <data_dir>/<host_id>.db
	Path        string `toml:"path,omitempty"`     // explicit database file; wins over data_dir
	AutoMigrate bool   `toml:"auto_migrate"`       // apply pending migrations on open
}

// ScanConfig tunes directory scans. Durations use time.ParseDuration syntax;
// an empty string means zero.
type ScanConfig struct {
	Workers            int    `toml:"workers"`             // parallel scans in tree mode; 0 = number of CPUs
	ListTimeout        string `toml:"list_timeout"`        // per-directory listing timeout; empty = none
	MissThreshold      int    `toml:"miss_threshold"`      // consecutive misses before a directory is removed
	TimestampPrecision string `toml:"timestamp_precision"` // compare timestamps truncated to this; empty = exact
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// WatchConfig holds settings for `dpc watch`.
type WatchConfig struct {
	Debounce string `toml:"debounce"` // quiet period before a changed directory is rescanned
}

// LogConfig controls the log file and its rotation.
type LogConfig struct {
	Level      string `toml:"level"` // debug, info, warn or error
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// VaultConfig represents configuration for an archive vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig selects how archived snapshots are encrypted.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a new Config with the provided values and defaults for
// everything else.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:        "sqlite",
			DataDir:     filepath.Join(baseDir, "db"),
			AutoMigrate: true,
		},
		Scan: ScanConfig{
			ListTimeout:   "30s",
			MissThreshold: 3,
		},
		Watch: WatchConfig{Debounce: "2s"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "dpc.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "dpc.key"),
		},
	}
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}

	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	if c.Scan.MissThreshold < 0 {
		return fmt.Errorf("scan.miss_threshold must not be negative")
	}
	if _, err := c.Scan.ListTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Scan.Precision(); err != nil {
		return err
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		return err
	}
	if _, err := model.NewActionCodec(c.Actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}

	for i, v := range c.Vaults {
		switch v.Type {
		case "memory", "filesystem", "s3":
		default:
			return fmt.Errorf("vaults[%d]: unknown vault type: %q", i, v.Type)
		}
	}

	switch c.Encryption.Type {
	case "", "none", "age", "test":
	default:
		return fmt.Errorf("unknown encryption type: %q", c.Encryption.Type)
	}
	return nil
}

// ListTimeoutDuration parses ListTimeout.
func (s ScanConfig) ListTimeoutDuration() (time.Duration, error) {
	return parseDuration("scan.list_timeout", s.ListTimeout)
}

// Precision parses TimestampPrecision.
func (s ScanConfig) Precision() (time.Duration, error) {
	return parseDuration("scan.timestamp_precision", s.TimestampPrecision)
}

// DebounceDuration parses Debounce.
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	return parseDuration("watch.debounce", w.Debounce)
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. auto_migrate defaults to
// true when absent.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Config{Database: DatabaseConfig{AutoMigrate: true}}
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
