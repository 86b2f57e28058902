package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dpc-go/internal/config"
	"dpc-go/internal/database/migrations"
	"dpc-go/internal/model"
)

// NewStoreFromConfig creates a Store implementation based on the database config type.
// Pending migrations are applied when cfg.AutoMigrate is set; in-memory
// databases are always migrated.
func NewStoreFromConfig(cfg config.DatabaseConfig, hostID string, codec *model.ActionCodec) (*SQLiteStore, error) {
	var path string
	migrate := cfg.AutoMigrate

	switch cfg.Type {
	case "sqlite":
		switch {
		case cfg.Path != "":
			path = cfg.Path
		case cfg.DataDir != "":
			path = filepath.Join(cfg.DataDir, hostID+".db")
		default:
			return nil, fmt.Errorf("data_dir or path required for sqlite database")
		}
	case "memory":
		path = ":memory:"
		migrate = true
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	if !isMemory(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	store, err := NewSQLiteStore(path, codec)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := migrations.MigrateUp(store.DB()); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	return store, nil
}
