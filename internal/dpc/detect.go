package dpc

import (
	"sort"
	"time"

	"dpc-go/internal/model"
)

// Diff classifies the entries of one directory listing against the cached
// records of that directory. Every slice is sorted by name.
type Diff struct {
	Added     []model.Entry // observed, not cached
	Modified  []model.Entry // cached, with a different created or modified date
	Removed   []string      // cached, not observed
	Unchanged []string
}

// Empty reports whether the diff would change nothing.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Detect compares cached records with an observed listing.
//
// Timestamps are compared after truncation to precision; a precision of 0
// compares them exactly. Any difference counts as a modification, including
// a modification date older than the cached one. Names in observed are
// expected to be unique; on duplicates the last entry wins.
func Detect(cached []*model.FileRecord, observed []model.Entry, precision time.Duration) *Diff {
	seen := make(map[string]model.Entry, len(observed))
	for _, e := range observed {
		seen[e.Name] = e
	}

	diff := &Diff{}
	known := make(map[string]bool, len(cached))

	for _, rec := range cached {
		known[rec.Name] = true

		e, ok := seen[rec.Name]
		switch {
		case !ok:
			diff.Removed = append(diff.Removed, rec.Name)
		case sameInstant(e.CreatedDate, rec.CreatedDate, precision) &&
			sameInstant(e.ModifiedDate, rec.ModifiedDate, precision):
			diff.Unchanged = append(diff.Unchanged, rec.Name)
		default:
			diff.Modified = append(diff.Modified, e)
		}
	}

	for name, e := range seen {
		if !known[name] {
			diff.Added = append(diff.Added, e)
		}
	}

	sortEntries(diff.Added)
	sortEntries(diff.Modified)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Unchanged)

	return diff
}

func sameInstant(a, b time.Time, precision time.Duration) bool {
	if precision > 0 {
		a = a.Truncate(precision)
		b = b.Truncate(precision)
	}
	return a.Equal(b)
}

func sortEntries(entries []model.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
