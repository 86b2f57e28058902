package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"dpc-go/internal/config"
)

// Environment variables consulted by the app layer.
const (
	EnvConfigPath   = "DPC_CONFIG_PATH" // config file location
	EnvHome         = "DPC_HOME"        // base directory for dpc data
	EnvDatabasePath = "DATABASE_PATH"   // overrides the database file
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DPC_CONFIG_PATH: config file location (default: ~/.config/dpc.toml)
//   - DPC_HOME: base directory for dpc data (default: ~/.local/share/dpc)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dpc.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dpc"), nil
}

// LoadDotEnv loads variables from the named .env files into the process
// environment. Variables already set win. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig reads the config file at path, or returns defaults when it
// does not exist, then applies environment overrides.
func LoadConfig(path string, defaults map[string]string) (*config.Config, error) {
	cfg, err := config.ReadFromFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.NewConfig(defaultHostID(), defaults["base_dir"])
	default:
		return nil, err
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = defaults["base_dir"]
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.BaseDir, "log")
	}
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides to cfg.
func ApplyEnv(cfg *config.Config) {
	if path := os.Getenv(EnvDatabasePath); path != "" {
		cfg.Database.Type = "sqlite"
		cfg.Database.Path = path
	}
}

func defaultHostID() string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return "local"
}
