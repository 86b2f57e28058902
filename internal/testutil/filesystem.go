package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dpc-go/internal/dpc"
	"dpc-go/internal/model"
)

// MockFile represents a file or directory in the mock filesystem.
type MockFile struct {
	IsDirectory  bool
	CreatedDate  time.Time
	ModifiedDate time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Listings of individual directories can be made to fail or hang.
// Safe for concurrent use.
type MockFilesystemManager struct {
	mu        sync.Mutex
	files     map[string]*MockFile
	failures  map[string]error
	hangs     map[string]bool
	listCalls map[string]int
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:     make(map[string]*MockFile),
		failures:  make(map[string]error),
		hangs:     make(map[string]bool),
		listCalls: make(map[string]int),
	}
}

// AddFile adds a regular file, creating its parent directories.
func (m *MockFilesystemManager) AddFile(path string, created, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{CreatedDate: created, ModifiedDate: modified}
}

// AddDirectory adds a directory and its parents.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{IsDirectory: true}
}

func (m *MockFilesystemManager) addParents(path string) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{IsDirectory: true}
		}
		if dir == filepath.Dir(dir) {
			return
		}
	}
}

// Touch sets the modification time of an existing file.
func (m *MockFilesystemManager) Touch(path string, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		f.ModifiedDate = modified
	}
}

// Remove deletes path and everything below it.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	for p := range m.files {
		if p == path || isBelow(p, path) {
			delete(m.files, p)
		}
	}
}

// ModTime returns the modification time of path, or the zero time.
func (m *MockFilesystemManager) ModTime(path string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		return f.ModifiedDate
	}
	return time.Time{}
}

// FailList makes every listing of path fail with err until cleared with a
// nil err.
func (m *MockFilesystemManager) FailList(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err == nil {
		delete(m.failures, path)
		return
	}
	m.failures[path] = err
}

// HangList makes listings of path block until their context is done.
func (m *MockFilesystemManager) HangList(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hangs[filepath.Clean(path)] = true
}

// ListCalls returns how many times path was listed.
func (m *MockFilesystemManager) ListCalls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls[filepath.Clean(path)]
}

func (m *MockFilesystemManager) List(ctx context.Context, path string) (*model.Listing, error) {
	path = filepath.Clean(path)

	m.mu.Lock()
	m.listCalls[path]++
	hang := m.hangs[path]
	failure := m.failures[path]
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, fmt.Errorf("listing %s: %w", path, ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if !dir.IsDirectory {
		return nil, fmt.Errorf("listing %s: not a directory", path)
	}

	listing := &model.Listing{Path: path}
	for p, f := range m.files {
		if p == path || filepath.Dir(p) != path {
			continue
		}
		if f.IsDirectory {
			listing.Subdirs = append(listing.Subdirs, p)
			continue
		}
		listing.Files = append(listing.Files, model.Entry{
			Name:         filepath.Base(p),
			CreatedDate:  f.CreatedDate,
			ModifiedDate: f.ModifiedDate,
		})
	}
	sort.Strings(listing.Subdirs)
	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].Name < listing.Files[j].Name
	})

	return listing, nil
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*dpc.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	info := &mockFileInfo{
		name:    filepath.Base(absPath),
		modTime: file.ModifiedDate,
		isDir:   file.IsDirectory,
	}
	return dpc.NewPath(absPath, file.IsDirectory, info), nil
}

func (m *MockFilesystemManager) SetModTime(path *dpc.Path, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path.String()]
	if !ok {
		return fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return fmt.Errorf("cannot set modification time of directory: %s", path.String())
	}
	file.ModifiedDate = t
	return nil
}

func isBelow(p, dir string) bool {
	if dir == string(filepath.Separator) {
		return p != dir
	}
	return strings.HasPrefix(p, dir+string(filepath.Separator))
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return 0 }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

func (m *mockFileInfo) Mode() fs.FileMode {
	if m.isDir {
		return fs.ModeDir | 0755
	}
	return 0644
}

// Compile-time check
var _ dpc.FilesystemManager = (*MockFilesystemManager)(nil)
