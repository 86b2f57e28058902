package dpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"dpc-go/internal/model"
)

// DirState is the lifecycle state of a directory as seen by the cache.
type DirState string

const (
	StateUnknown DirState = "unknown" // never observed
	StateKnown   DirState = "known"
	StateMissing DirState = "missing" // recent scans could not find it
	StateRemoved DirState = "removed" // missed MissThreshold scans in a row
)

// listFailed classifies a listing failure. A not-found listing of a known
// directory is recorded as a miss; other failures leave the store alone.
func (s *Service) listFailed(ctx context.Context, path string, listErr error) error {
	scanErr := &ScanError{Kind: ErrDirectoryUnavailable, Path: path, Err: listErr}

	if !errors.Is(listErr, fs.ErrNotExist) {
		s.logger.Warn("listing failed", "path", path, "error", listErr)
		return scanErr
	}

	dir, err := s.store.GetDirectory(path)
	if err != nil {
		return s.storeFailed(path, 0, err)
	}
	if dir == nil {
		s.logger.Debug("untracked directory not found", "path", path)
		return scanErr
	}
	scanErr.DirectoryID = dir.ID

	err = s.store.Update(context.WithoutCancel(ctx), func(tx StoreTx) error {
		return s.recordMiss(tx, dir)
	})
	if err != nil {
		return s.storeFailed(path, dir.ID, err)
	}

	return scanErr
}

// recordMiss appends a missing action and, once the directory has been
// missed MissThreshold times in a row, drops its cached files and marks it
// vanished. A directory that already vanished is left untouched.
func (s *Service) recordMiss(tx StoreTx, dir *model.Directory) error {
	recent, err := tx.RecentActions(dir.ID, s.opts.MissThreshold)
	if err != nil {
		return fmt.Errorf("loading recent actions: %w", err)
	}
	if len(recent) > 0 && recent[0].Kind == model.ActionVanished {
		return nil
	}

	misses := 1
	for _, a := range recent {
		if a.Kind != model.ActionMissing {
			break
		}
		misses++
	}

	at, err := commitTime(tx, dir.ID, s.clock.Now())
	if err != nil {
		return err
	}

	if _, err := tx.AppendAction(dir.ID, model.ActionMissing, at); err != nil {
		return fmt.Errorf("appending %s action: %w", model.ActionMissing, err)
	}
	s.logger.Warn("directory missing", "path", dir.Path, "misses", misses)

	if misses < s.opts.MissThreshold {
		return nil
	}

	files, err := tx.ListFiles(dir.ID)
	if err != nil {
		return fmt.Errorf("loading cached files: %w", err)
	}
	if len(files) > 0 {
		diff := &Diff{}
		for _, f := range files {
			diff.Removed = append(diff.Removed, f.Name)
		}
		if _, err := CommitDiff(tx, dir.ID, diff, at); err != nil {
			return err
		}
	}

	if _, err := tx.AppendAction(dir.ID, model.ActionVanished, at); err != nil {
		return fmt.Errorf("appending %s action: %w", model.ActionVanished, err)
	}
	s.logger.Warn("directory removed", "path", dir.Path, "files", len(files))

	return nil
}

// stateOf derives a directory's state from its newest action.
func stateOf(recent []*model.DirectoryAction) DirState {
	if len(recent) == 0 {
		return StateKnown
	}
	switch recent[0].Kind {
	case model.ActionVanished:
		return StateRemoved
	case model.ActionMissing:
		return StateMissing
	default:
		return StateKnown
	}
}

// State returns the lifecycle state of the directory at path.
func (s *Service) State(path string) (DirState, error) {
	dir, err := s.store.GetDirectory(cleanPath(path))
	if err != nil {
		return "", fmt.Errorf("finding directory: %w", err)
	}
	if dir == nil {
		return StateUnknown, nil
	}

	recent, err := s.store.RecentActions(dir.ID, 1)
	if err != nil {
		return "", fmt.Errorf("loading latest action: %w", err)
	}
	return stateOf(recent), nil
}
