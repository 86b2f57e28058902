package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"dpc-go/internal/dpc"
	"dpc-go/internal/model"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
// ignorePatterns are applied to every listing on top of the defaults and of
// the listed directory's .dpcignore file.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	patterns := append(append([]string{}, defaultIgnorePatterns...), ignorePatterns...)
	return &OSFilesystemManager{
		ignore: NewIgnoreMatcher(patterns),
	}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*dpc.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return dpc.NewPath(absPath, info.IsDir(), info), nil
}

type listResult struct {
	listing *model.Listing
	err     error
}

// List reads the regular files and child directories of path. Symlinks and
// special files are skipped. Reading happens on its own goroutine so a hung
// filesystem cannot hold the caller past ctx.
func (m *OSFilesystemManager) List(ctx context.Context, path string) (*model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan listResult, 1)
	go func() {
		listing, err := m.list(path)
		done <- listResult{listing: listing, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("listing %s: %w", path, ctx.Err())
	case r := <-done:
		return r.listing, r.err
	}
}

func (m *OSFilesystemManager) list(path string) (*model.Listing, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	local, err := ParseIgnoreFile(filepath.Join(path, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	ignore := m.ignore.With(local)

	listing := &model.Listing{Path: path}
	for _, entry := range entries {
		full := filepath.Join(path, entry.Name())
		if ignore.Match(full) {
			continue
		}

		if entry.IsDir() {
			listing.Subdirs = append(listing.Subdirs, full)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Deleted since ReadDir.
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", full, err)
		}

		listing.Files = append(listing.Files, model.Entry{
			Name:         entry.Name(),
			CreatedDate:  birthTime(full, info),
			ModifiedDate: info.ModTime(),
		})
	}

	sort.Strings(listing.Subdirs)
	return listing, nil
}

// SetModTime sets the modification time of a regular file and leaves its
// access time alone.
func (m *OSFilesystemManager) SetModTime(path *dpc.Path, t time.Time) error {
	if path.IsDir() {
		return fmt.Errorf("cannot set modification time of directory: %s", path.String())
	}
	return setModTime(path.String(), t)
}

// Compile-time check that OSFilesystemManager implements dpc.FilesystemManager interface
var _ dpc.FilesystemManager = (*OSFilesystemManager)(nil)
