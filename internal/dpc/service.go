package dpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dpc-go/internal/model"
)

// DefaultMissThreshold is the number of consecutive failed scans after
// which a known directory is considered removed.
const DefaultMissThreshold = 3

// Options tunes a Service.
type Options struct {
	// ListTimeout bounds a single directory listing. 0 disables it.
	ListTimeout time.Duration
	// MissThreshold is the number of consecutive not-found listings before
	// a directory is marked removed. Defaults to DefaultMissThreshold.
	MissThreshold int
	// Precision is the resolution timestamps are compared at. 0 is exact.
	Precision time.Duration
	// Workers bounds parallel scans in ScanTree. Defaults to NumCPU.
	Workers int
}

// Service is the orchestration layer that detects changes in tracked
// directories and commits them to the snapshot store.
type Service struct {
	store  Store
	fsmgr  FilesystemManager
	logger Logger
	clock  Clock
	opts   Options
	locks  *dirLocks
}

// NewService creates a new Service with the provided dependencies.
func NewService(store Store, fsmgr FilesystemManager, logger Logger, clock Clock, opts Options) *Service {
	if opts.MissThreshold <= 0 {
		opts.MissThreshold = DefaultMissThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Service{
		store:  store,
		fsmgr:  fsmgr,
		logger: logger,
		clock:  clock,
		opts:   opts,
		locks:  newDirLocks(),
	}
}

// ScanResult summarizes one committed scan.
type ScanResult struct {
	DirectoryID int64
	Path        string
	Created     bool // the directory was seen for the first time
	Added       int
	Removed     int
	Modified    int
	Unchanged   int
	ActionIDs   []int64
	CommittedAt time.Time
	Subdirs     []string
}

// ScanDirectory lists path, compares the listing with the cached state of
// the directory and commits the difference.
//
// The directory is locked from before its cached state is loaded until the
// commit has finished. Only the listing honours ctx; once the commit starts
// it runs to completion or rolls back. Failures are returned as *ScanError
// with Kind ErrDirectoryUnavailable, ErrStoreUnavailable or
// ErrConsistencyViolation. A path that is not absolute is rejected with
// ErrRelativePath before anything is listed.
func (s *Service) ScanDirectory(ctx context.Context, path string) (*ScanResult, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %q", ErrRelativePath, path)
	}
	path = filepath.Clean(path)

	unlock := s.locks.Lock(path)
	defer unlock()

	s.logger.Debug("scanning directory", "path", path)

	listing, err := s.list(ctx, path)
	if err != nil {
		return nil, s.listFailed(ctx, path, err)
	}

	var result *ScanResult
	var directoryID int64

	err = s.store.Update(context.WithoutCancel(ctx), func(tx StoreTx) error {
		dir, created, err := getOrCreateDirectory(tx, path)
		if err != nil {
			return err
		}
		if !created {
			directoryID = dir.ID
		}

		cached, err := tx.ListFiles(dir.ID)
		if err != nil {
			return fmt.Errorf("loading cached files: %w", err)
		}

		diff := Detect(cached, listing.Files, s.opts.Precision)

		at, err := commitTime(tx, dir.ID, s.clock.Now())
		if err != nil {
			return err
		}

		actions, err := CommitDiff(tx, dir.ID, diff, at)
		if err != nil {
			return err
		}

		result = &ScanResult{
			DirectoryID: dir.ID,
			Path:        dir.Path,
			Created:     created,
			Added:       len(diff.Added),
			Removed:     len(diff.Removed),
			Modified:    len(diff.Modified),
			Unchanged:   len(diff.Unchanged),
			CommittedAt: at,
			Subdirs:     listing.Subdirs,
		}
		for _, a := range actions {
			result.ActionIDs = append(result.ActionIDs, a.ID)
		}
		return nil
	})
	if err != nil {
		return nil, s.storeFailed(path, directoryID, err)
	}

	s.logger.Info("directory scanned",
		"path", path,
		"added", result.Added,
		"removed", result.Removed,
		"modified", result.Modified,
		"unchanged", result.Unchanged,
	)
	return result, nil
}

// ScanTree scans root and every directory below it. Each level of the tree
// is scanned in parallel, bounded by Options.Workers. A subdirectory that
// disappears after its parent was listed is skipped. Any other failure
// stops the walk; results of the scans committed so far are returned with it.
func (s *Service) ScanTree(ctx context.Context, root string) ([]*ScanResult, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: %q", ErrRelativePath, root)
	}
	root = filepath.Clean(root)

	var results []*ScanResult
	level := []string{root}

	for len(level) > 0 {
		var mu sync.Mutex
		var next []string

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Workers)

		for _, dir := range level {
			g.Go(func() error {
				res, err := s.ScanDirectory(gctx, dir)
				if err != nil {
					if dir != root && errors.Is(err, fs.ErrNotExist) {
						s.logger.Info("subdirectory disappeared during walk", "path", dir)
						return nil
					}
					return err
				}
				mu.Lock()
				results = append(results, res)
				next = append(next, res.Subdirs...)
				mu.Unlock()
				return nil
			})
		}

		err := g.Wait()
		sortResults(results)
		if err != nil {
			return results, err
		}

		sort.Strings(next)
		level = next
	}

	return results, nil
}

func (s *Service) list(ctx context.Context, path string) (*model.Listing, error) {
	if s.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ListTimeout)
		defer cancel()
	}
	return s.fsmgr.List(ctx, path)
}

func (s *Service) storeFailed(path string, directoryID int64, err error) error {
	kind := ErrStoreUnavailable
	if errors.Is(err, ErrConsistencyViolation) {
		kind = ErrConsistencyViolation
	}
	s.logger.Error("commit failed", "path", path, "kind", kind, "error", err)
	return &ScanError{Kind: kind, Path: path, DirectoryID: directoryID, Err: err}
}

func getOrCreateDirectory(tx StoreTx, path string) (*model.Directory, bool, error) {
	dir, err := tx.GetDirectory(path)
	if err != nil {
		return nil, false, fmt.Errorf("finding directory: %w", err)
	}
	if dir != nil {
		return dir, false, nil
	}

	dir, err = tx.CreateDirectory(path)
	if err != nil {
		return nil, false, fmt.Errorf("creating directory: %w", err)
	}
	return dir, true, nil
}

func sortResults(results []*ScanResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
}
