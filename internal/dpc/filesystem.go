package dpc

import (
	"context"
	"time"

	"dpc-go/internal/model"
)

// Lister produces the live listing of a single directory.
type Lister interface {
	// List returns the regular files and child directories of path.
	// File names are unique within a listing. A directory that does not
	// exist must be reported with an error wrapping fs.ErrNotExist.
	// Implementations must give up when ctx is done.
	List(ctx context.Context, path string) (*model.Listing, error)
}

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	Lister

	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// SetModTime sets the modification time of a regular file, leaving
	// its access time untouched.
	SetModTime(path *Path, t time.Time) error
}
