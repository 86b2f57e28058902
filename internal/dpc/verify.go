package dpc

import (
	"fmt"

	"dpc-go/internal/model"
)

// VerifyReport lists the invariant violations found in one directory.
type VerifyReport struct {
	DirectoryID int64
	Path        string
	Files       int
	Actions     int
	Problems    []string
}

// OK reports whether no problem was found.
func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}

// Verify checks that the cached records of the directory at path can be
// explained by its action log:
//   - action dates never decrease along the log
//   - no record is newer than the latest action
//   - every record's cached date is the date of an added or modified action
//
// The report is always returned; the error wraps ErrConsistencyViolation
// when it contains problems.
func (s *Service) Verify(path string) (*VerifyReport, error) {
	dir, err := s.findDirectory(path)
	if err != nil {
		return nil, err
	}

	actions, err := s.store.ListActions(dir.ID)
	if err != nil {
		return nil, fmt.Errorf("loading actions: %w", err)
	}
	files, err := s.store.ListFiles(dir.ID)
	if err != nil {
		return nil, fmt.Errorf("loading cached files: %w", err)
	}

	report := &VerifyReport{
		DirectoryID: dir.ID,
		Path:        dir.Path,
		Files:       len(files),
		Actions:     len(actions),
	}

	writes := make(map[int64]bool)
	var latest *model.DirectoryAction
	for _, a := range actions {
		if latest != nil && a.CachedDate.Before(latest.CachedDate) {
			report.Problems = append(report.Problems,
				fmt.Sprintf("action %d is dated before action %d", a.ID, latest.ID))
		}
		latest = a
		if a.Kind == model.ActionAdded || a.Kind == model.ActionModified {
			writes[a.CachedDate.UnixNano()] = true
		}
	}

	for _, f := range files {
		if latest == nil || f.CachedDate.After(latest.CachedDate) {
			report.Problems = append(report.Problems,
				fmt.Sprintf("file %s is cached after the latest action", f.Name))
			continue
		}
		if !writes[f.CachedDate.UnixNano()] {
			report.Problems = append(report.Problems,
				fmt.Sprintf("file %s has no matching added or modified action", f.Name))
		}
	}

	if !report.OK() {
		s.logger.Error("verification failed", "path", dir.Path, "problems", len(report.Problems))
		return report, fmt.Errorf("%w: %d problem(s) in %s", ErrConsistencyViolation, len(report.Problems), dir.Path)
	}
	return report, nil
}
