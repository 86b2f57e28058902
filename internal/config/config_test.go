package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("test-host-abc", "/home/user/.local/share/dpc")
	original.Vaults = []VaultConfig{
		{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
	}
	original.Database = DatabaseConfig{Type: "sqlite", Path: "/var/cache/dpc.db", AutoMigrate: false}
	original.Scan.Workers = 4
	original.Actions = map[string]int{"scanned": 10}
	original.Filesystem = FilesystemConfig{Ignore: []string{"*.log", ".git"}}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if len(got.Vaults) != 1 || got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vaults = %+v, want one filesystem vault at /backup/vault", got.Vaults)
	}
	if got.Database.Path != "/var/cache/dpc.db" {
		t.Errorf("Database.Path = %q, want %q", got.Database.Path, "/var/cache/dpc.db")
	}
	if got.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = true, want explicit false to survive")
	}
	if got.Scan != original.Scan {
		t.Errorf("Scan = %+v, want %+v", got.Scan, original.Scan)
	}
	if got.Actions["scanned"] != 10 {
		t.Errorf("Actions[scanned] = %d, want 10", got.Actions["scanned"])
	}
	if got.Log != original.Log {
		t.Errorf("Log = %+v, want %+v", got.Log, original.Log)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestManager_Read_Defaults(t *testing.T) {
	m := &Manager{}
	got, err := m.Read(strings.NewReader("host_id = \"h\"\n[database]\ntype = \"memory\"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = false, want true when absent")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/dpc")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.LogDir != "/data/dpc/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/dpc/log")
	}
	if cfg.Database.DataDir != "/data/dpc/db" || !cfg.Database.AutoMigrate {
		t.Errorf("Database = %+v, want sqlite in /data/dpc/db with auto_migrate", cfg.Database)
	}
	if cfg.Scan.MissThreshold != 3 {
		t.Errorf("Scan.MissThreshold = %d, want 3", cfg.Scan.MissThreshold)
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want none", cfg.Encryption.Type)
	}
	if cfg.Encryption.PublicKeyPath != "/data/dpc/keys/dpc.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/dpc/keys/dpc.pub")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown database type", func(c *Config) { c.Database.Type = "postgres" }},
		{"negative workers", func(c *Config) { c.Scan.Workers = -1 }},
		{"negative miss threshold", func(c *Config) { c.Scan.MissThreshold = -2 }},
		{"bad list timeout", func(c *Config) { c.Scan.ListTimeout = "soon" }},
		{"negative precision", func(c *Config) { c.Scan.TimestampPrecision = "-1s" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "1 minute" }},
		{"unknown action kind", func(c *Config) { c.Actions = map[string]int{"renamed": 9} }},
		{"duplicate action code", func(c *Config) { c.Actions = map[string]int{"scanned": 1} }},
		{"unknown vault type", func(c *Config) { c.Vaults = []VaultConfig{{Type: "ftp"}} }},
		{"unknown encryption type", func(c *Config) { c.Encryption.Type = "rot13" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("h", "/tmp/dpc")
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestScanConfig_Durations(t *testing.T) {
	s := ScanConfig{ListTimeout: "1m30s", TimestampPrecision: ""}

	timeout, err := s.ListTimeoutDuration()
	if err != nil {
		t.Fatalf("ListTimeoutDuration() error = %v", err)
	}
	if timeout != 90*time.Second {
		t.Errorf("ListTimeoutDuration() = %v, want 1m30s", timeout)
	}

	precision, err := s.Precision()
	if err != nil {
		t.Fatalf("Precision() error = %v", err)
	}
	if precision != 0 {
		t.Errorf("Precision() = %v, want 0 for empty", precision)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dpc.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dpc.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dpc.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want memory", got.Database.Type)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/dpc.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
