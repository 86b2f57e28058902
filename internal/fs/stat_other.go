//go:build !linux

package fs

import (
	"fmt"
	"io/fs"
	"os"
	"time"
)

// birthTime falls back to the modification time where statx is unavailable.
func birthTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}

func setModTime(path string, t time.Time) error {
	// A zero access time is left unchanged.
	if err := os.Chtimes(path, time.Time{}, t); err != nil {
		return fmt.Errorf("setting modification time of %s: %w", path, err)
	}
	return nil
}
