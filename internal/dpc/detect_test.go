package dpc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dpc-go/internal/dpc"
	"dpc-go/internal/model"
)

var (
	t1 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
)

func record(name string, created, modified time.Time) *model.FileRecord {
	return &model.FileRecord{Name: name, CreatedDate: created, ModifiedDate: modified, CachedDate: t1}
}

func entry(name string, created, modified time.Time) model.Entry {
	return model.Entry{Name: name, CreatedDate: created, ModifiedDate: modified}
}

func names(entries []model.Entry) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name          string
		cached        []*model.FileRecord
		observed      []model.Entry
		precision     time.Duration
		wantAdded     []string
		wantModified  []string
		wantRemoved   []string
		wantUnchanged []string
	}{
		{
			name: "empty both sides",
		},
		{
			name:      "new files are added, sorted by name",
			observed:  []model.Entry{entry("b", t1, t1), entry("a", t1, t1)},
			wantAdded: []string{"a", "b"},
		},
		{
			name:        "files gone from the listing are removed",
			cached:      []*model.FileRecord{record("z", t1, t1), record("y", t1, t1)},
			wantRemoved: []string{"y", "z"},
		},
		{
			name:          "identical timestamps are unchanged",
			cached:        []*model.FileRecord{record("a", t1, t1)},
			observed:      []model.Entry{entry("a", t1, t1)},
			wantUnchanged: []string{"a"},
		},
		{
			name:         "newer modification date is modified",
			cached:       []*model.FileRecord{record("a", t1, t1)},
			observed:     []model.Entry{entry("a", t1, t2)},
			wantModified: []string{"a"},
		},
		{
			name:         "older modification date is also modified",
			cached:       []*model.FileRecord{record("a", t1, t2)},
			observed:     []model.Entry{entry("a", t1, t1)},
			wantModified: []string{"a"},
		},
		{
			name:         "changed creation date is modified",
			cached:       []*model.FileRecord{record("a", t1, t2)},
			observed:     []model.Entry{entry("a", t2, t2)},
			wantModified: []string{"a"},
		},
		{
			name:          "differences below precision are ignored",
			cached:        []*model.FileRecord{record("a", t1, t1)},
			observed:      []model.Entry{entry("a", t1, t1.Add(300*time.Millisecond))},
			precision:     time.Second,
			wantUnchanged: []string{"a"},
		},
		{
			name:         "exact comparison sees nanoseconds",
			cached:       []*model.FileRecord{record("a", t1, t1)},
			observed:     []model.Entry{entry("a", t1, t1.Add(time.Nanosecond))},
			wantModified: []string{"a"},
		},
		{
			name: "mixed",
			cached: []*model.FileRecord{
				record("keep", t1, t1),
				record("change", t1, t1),
				record("gone", t1, t1),
			},
			observed: []model.Entry{
				entry("new", t2, t2),
				entry("change", t1, t2),
				entry("keep", t1, t1),
			},
			wantAdded:     []string{"new"},
			wantModified:  []string{"change"},
			wantRemoved:   []string{"gone"},
			wantUnchanged: []string{"keep"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := dpc.Detect(tt.cached, tt.observed, tt.precision)

			assert.Equal(t, nonNil(tt.wantAdded), names(diff.Added), "added")
			assert.Equal(t, nonNil(tt.wantModified), names(diff.Modified), "modified")
			assert.Equal(t, nonNil(tt.wantRemoved), append([]string{}, diff.Removed...), "removed")
			assert.Equal(t, nonNil(tt.wantUnchanged), append([]string{}, diff.Unchanged...), "unchanged")

			wantEmpty := len(tt.wantAdded)+len(tt.wantModified)+len(tt.wantRemoved) == 0
			assert.Equal(t, wantEmpty, diff.Empty())
		})
	}
}

func TestDetect_DuplicateNamesLastWins(t *testing.T) {
	diff := dpc.Detect(nil, []model.Entry{entry("a", t1, t1), entry("a", t2, t2)}, 0)

	if assert.Len(t, diff.Added, 1) {
		assert.True(t, diff.Added[0].ModifiedDate.Equal(t2))
	}
}

func TestDetect_ModifiedCarriesObservedDates(t *testing.T) {
	diff := dpc.Detect([]*model.FileRecord{record("a", t1, t1)}, []model.Entry{entry("a", t1, t2)}, 0)

	if assert.Len(t, diff.Modified, 1) {
		assert.True(t, diff.Modified[0].ModifiedDate.Equal(t2))
		assert.True(t, diff.Modified[0].CreatedDate.Equal(t1))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
