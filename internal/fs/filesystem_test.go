package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestOSFilesystemManager_List(t *testing.T) {
	t.Run("lists regular files and subdirectories", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "b.txt"))
		writeFile(t, filepath.Join(root, "a.txt"))
		writeFile(t, filepath.Join(root, "sub", "nested.txt"))
		if err := os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link")); err != nil {
			t.Fatalf("creating symlink: %v", err)
		}

		m := NewOSFilesystemManager(nil)
		listing, err := m.List(context.Background(), root)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		var names []string
		for _, e := range listing.Files {
			names = append(names, e.Name)
		}
		if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
			t.Errorf("List() files = %v, want [a.txt b.txt]", names)
		}
		if len(listing.Subdirs) != 1 || listing.Subdirs[0] != filepath.Join(root, "sub") {
			t.Errorf("List() subdirs = %v, want [%s]", listing.Subdirs, filepath.Join(root, "sub"))
		}
	})

	t.Run("reports modification and creation times", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "a.txt")
		writeFile(t, path)
		mtime := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}

		listing, err := NewOSFilesystemManager(nil).List(context.Background(), root)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(listing.Files) != 1 {
			t.Fatalf("List() returned %d files, want 1", len(listing.Files))
		}
		e := listing.Files[0]
		if !e.ModifiedDate.Equal(mtime) {
			t.Errorf("ModifiedDate = %v, want %v", e.ModifiedDate, mtime)
		}
		if e.CreatedDate.IsZero() {
			t.Error("CreatedDate is zero")
		}
	})

	t.Run("applies configured and local ignore patterns", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "keep.txt"))
		writeFile(t, filepath.Join(root, "debug.log"))
		writeFile(t, filepath.Join(root, "scratch.tmp"))
		writeFile(t, filepath.Join(root, ".git", "HEAD"))
		if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("*.tmp\n"), 0644); err != nil {
			t.Fatalf("writing ignore file: %v", err)
		}

		listing, err := NewOSFilesystemManager([]string{"*.log", ".git"}).List(context.Background(), root)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		if len(listing.Files) != 1 || listing.Files[0].Name != "keep.txt" {
			t.Errorf("List() files = %v, want only keep.txt", listing.Files)
		}
		if len(listing.Subdirs) != 0 {
			t.Errorf("List() subdirs = %v, want none", listing.Subdirs)
		}
	})

	t.Run("missing directory wraps fs.ErrNotExist", func(t *testing.T) {
		_, err := NewOSFilesystemManager(nil).List(context.Background(), filepath.Join(t.TempDir(), "gone"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("List() error = %v, want fs.ErrNotExist", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewOSFilesystemManager(nil).List(ctx, t.TempDir())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("List() error = %v, want context.Canceled", err)
		}
	})
}

func TestOSFilesystemManager_SetModTime(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path)

	m := NewOSFilesystemManager(nil)
	p, err := m.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := time.Date(2019, 2, 3, 4, 5, 6, 700, time.UTC)
	if err := m.SetModTime(p, want); err != nil {
		t.Fatalf("SetModTime() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.ModTime().Truncate(time.Microsecond).Equal(want.Truncate(time.Microsecond)) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), want)
	}

	dir, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := m.SetModTime(dir, want); err == nil {
		t.Error("SetModTime() on a directory succeeded, want error")
	}
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	if err := os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link")); err != nil {
		t.Fatalf("creating symlink: %v", err)
	}

	m := NewOSFilesystemManager(nil)

	p, err := m.Resolve(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.IsDir() {
		t.Error("Resolve() file reported as directory")
	}

	if _, err := m.Resolve(filepath.Join(root, "link")); err == nil {
		t.Error("Resolve() on symlink succeeded, want error")
	}
	if _, err := m.Resolve(filepath.Join(root, "missing")); err == nil {
		t.Error("Resolve() on missing path succeeded, want error")
	}
}
