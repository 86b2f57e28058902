package dpc

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryUnavailable means the listing provider could not list the
	// directory. Retryable by the caller.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrStoreUnavailable means the snapshot store failed. The store is left
	// in its pre-commit state. Retryable by the caller.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConsistencyViolation means the store may hold a partially applied
	// commit or breaks an invariant. Not retryable; run a verify pass.
	ErrConsistencyViolation = errors.New("consistency violation")

	// ErrRelativePath means a scan was requested for a path that is not
	// absolute. Callers resolve paths before scanning.
	ErrRelativePath = errors.New("path is not absolute")

	// ErrNotFound means a directory was requested that was never observed.
	ErrNotFound = errors.New("not found")
)

// ScanError reports which category of failure a scan hit and for which
// directory. errors.Is matches both Kind and the underlying cause.
type ScanError struct {
	Kind        error
	Path        string
	DirectoryID int64 // 0 if the directory is not tracked
	Err         error
}

func (e *ScanError) Error() string {
	if e.DirectoryID != 0 {
		return fmt.Sprintf("%v: %s (directory %d): %v", e.Kind, e.Path, e.DirectoryID, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ScanError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is a transient listing or store failure.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConsistencyViolation) {
		return false
	}
	return errors.Is(err, ErrDirectoryUnavailable) || errors.Is(err, ErrStoreUnavailable)
}
