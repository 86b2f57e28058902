package dpc

import (
	"fmt"
	"path/filepath"
)

// ApplyDates sets the modification time of every cached file of the
// directory at path back to its cached value. Files that no longer exist or
// are no longer regular files are skipped. The store is not modified.
// Returns the number of files updated.
func (s *Service) ApplyDates(path string) (int, error) {
	path = cleanPath(path)

	unlock := s.locks.Lock(path)
	defer unlock()

	dir, err := s.findDirectory(path)
	if err != nil {
		return 0, err
	}

	files, err := s.store.ListFiles(dir.ID)
	if err != nil {
		return 0, fmt.Errorf("loading cached files: %w", err)
	}

	count := 0
	for _, f := range files {
		target := filepath.Join(dir.Path, f.Name)

		p, err := s.fsmgr.Resolve(target)
		if err != nil {
			s.logger.Debug("skipping file", "path", target, "error", err)
			continue
		}
		if p.IsDir() {
			s.logger.Debug("skipping directory", "path", target)
			continue
		}

		if err := s.fsmgr.SetModTime(p, f.ModifiedDate); err != nil {
			return count, fmt.Errorf("restoring modification time of %s: %w", target, err)
		}
		count++
	}

	s.logger.Info("modification times restored", "path", dir.Path, "count", count)
	return count, nil
}
