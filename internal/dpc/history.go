package dpc

import (
	"fmt"
	"path/filepath"

	"dpc-go/internal/model"
)

// DirectoryStatus describes one tracked directory.
type DirectoryStatus struct {
	Directory  *model.Directory
	State      DirState
	LastAction *model.DirectoryAction // nil if the log is empty
	Files      int
}

// History returns the action log of the directory at path, oldest first.
func (s *Service) History(path string) ([]*model.DirectoryAction, error) {
	dir, err := s.findDirectory(path)
	if err != nil {
		return nil, err
	}

	actions, err := s.store.ListActions(dir.ID)
	if err != nil {
		return nil, fmt.Errorf("loading actions: %w", err)
	}
	return actions, nil
}

// Files returns the cached file records of the directory at path.
func (s *Service) Files(path string) ([]*model.FileRecord, error) {
	dir, err := s.findDirectory(path)
	if err != nil {
		return nil, err
	}

	files, err := s.store.ListFiles(dir.ID)
	if err != nil {
		return nil, fmt.Errorf("loading cached files: %w", err)
	}
	return files, nil
}

// Directories returns the status of every tracked directory, ordered by path.
func (s *Service) Directories() ([]*DirectoryStatus, error) {
	dirs, err := s.store.ListDirectories()
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}

	statuses := make([]*DirectoryStatus, 0, len(dirs))
	for _, dir := range dirs {
		recent, err := s.store.RecentActions(dir.ID, 1)
		if err != nil {
			return nil, fmt.Errorf("loading latest action of %s: %w", dir.Path, err)
		}
		files, err := s.store.ListFiles(dir.ID)
		if err != nil {
			return nil, fmt.Errorf("loading cached files of %s: %w", dir.Path, err)
		}

		status := &DirectoryStatus{
			Directory: dir,
			State:     stateOf(recent),
			Files:     len(files),
		}
		if len(recent) > 0 {
			status.LastAction = recent[0]
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// findDirectory returns the tracked directory at path or an error wrapping
// ErrNotFound.
func (s *Service) findDirectory(path string) (*model.Directory, error) {
	path = cleanPath(path)

	dir, err := s.store.GetDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("finding directory: %w", err)
	}
	if dir == nil {
		return nil, fmt.Errorf("directory %s: %w", path, ErrNotFound)
	}
	return dir, nil
}

func cleanPath(path string) string {
	return filepath.Clean(path)
}
