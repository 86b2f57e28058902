package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer(t *testing.T) {
	t0 := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	d := newDebouncer(10 * time.Millisecond)

	d.Touch("/a", t0)
	d.Touch("/b", t0)
	d.Touch("/a", t0.Add(10*time.Millisecond))

	assert.Equal(t, []string{"/b"}, d.Due(t0.Add(15*time.Millisecond)))
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, []string{"/a"}, d.Due(t0.Add(20*time.Millisecond)))
	assert.Empty(t, d.Due(t0.Add(time.Hour)))
	assert.Zero(t, d.Pending())
}

func TestDebouncer_ZeroInterval(t *testing.T) {
	now := time.Now()
	d := newDebouncer(0)
	d.Touch("/a", now)
	assert.Equal(t, []string{"/a"}, d.Due(now))
}

func TestDPCApp_Watch(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Watch.Debounce = "20ms"
	a := newTestApp(t, cfg, nil)
	defer a.Close()

	dir := makeDir(t, "a.txt")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, []string{dir}, true) }()

	require.Eventually(t, func() bool {
		files, err := a.Files(dir)
		return err == nil && len(files) == 1
	}, 5*time.Second, 10*time.Millisecond, "initial scan")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644))

	require.Eventually(t, func() bool {
		files, err := a.Files(dir)
		return err == nil && len(files) == 2
	}, 5*time.Second, 20*time.Millisecond, "rescan after change")

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.txt"), []byte("c"), 0644))

	require.Eventually(t, func() bool {
		files, err := a.Files(sub)
		return err == nil && len(files) == 1
	}, 5*time.Second, 20*time.Millisecond, "new subdirectory scanned")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
	assert.True(t, a.Operation().Wrote())
}
