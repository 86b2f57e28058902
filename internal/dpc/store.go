package dpc

import (
	"context"
	"time"

	"dpc-go/internal/model"
)

// StoreReader holds the read operations of the snapshot store.
// Find-style getters return nil and no error when nothing matches.
type StoreReader interface {
	// GetDirectory returns the directory with an exact path match.
	GetDirectory(path string) (*model.Directory, error)

	// GetDirectoryByID returns the directory with the given id.
	GetDirectoryByID(id int64) (*model.Directory, error)

	// ListDirectories returns every tracked directory ordered by path.
	ListDirectories() ([]*model.Directory, error)

	// ListFiles returns the cached file records of a directory ordered by name.
	ListFiles(directoryID int64) ([]*model.FileRecord, error)

	// ListActions returns the full action log of a directory, oldest first.
	ListActions(directoryID int64) ([]*model.DirectoryAction, error)

	// RecentActions returns at most n actions of a directory, newest first.
	RecentActions(directoryID int64, n int) ([]*model.DirectoryAction, error)
}

// StoreTx is a write scope over the snapshot store. Everything done through
// one StoreTx becomes visible at once, or not at all.
type StoreTx interface {
	StoreReader

	// CreateDirectory inserts a new tracked directory.
	CreateDirectory(path string) (*model.Directory, error)

	// UpsertFile inserts or replaces the cached record for (directoryID, name).
	// Fails with ErrNotFound if the directory does not exist.
	UpsertFile(directoryID int64, name string, createdDate, modifiedDate, cachedDate time.Time) error

	// DeleteFile removes the cached record for (directoryID, name).
	DeleteFile(directoryID int64, name string) error

	// AppendAction appends an entry to the directory's action log.
	// Fails with ErrNotFound if the directory does not exist.
	AppendAction(directoryID int64, kind model.ActionKind, at time.Time) (*model.DirectoryAction, error)
}

// Store provides durable storage for directories, cached file records and
// the action log.
type Store interface {
	StoreReader

	// Update runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise. Writes are durable when
	// Update returns nil. If a rollback fails the returned error wraps
	// ErrConsistencyViolation.
	Update(ctx context.Context, fn func(tx StoreTx) error) error

	// MaxActionID returns the highest action id in the log, or 0.
	MaxActionID() (int64, error)

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the store to destPath.
	BackupTo(destPath string) error

	// Close closes the store.
	Close() error
}
