package dpc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dpc-go/internal/dpc"
	"dpc-go/internal/model"
	"dpc-go/internal/testutil"
)

var errInjected = errors.New("injected store failure")

// failingStore lets the first failAfter writes of every transaction through
// and fails the next one. A negative failAfter never fails.
type failingStore struct {
	dpc.Store
	failAfter int
}

func (s *failingStore) Update(ctx context.Context, fn func(tx dpc.StoreTx) error) error {
	return s.Store.Update(ctx, func(tx dpc.StoreTx) error {
		return fn(&failingTx{StoreTx: tx, failAfter: s.failAfter})
	})
}

type failingTx struct {
	dpc.StoreTx
	failAfter int
	writes    int
}

func (t *failingTx) write() error {
	if t.failAfter >= 0 && t.writes >= t.failAfter {
		return errInjected
	}
	t.writes++
	return nil
}

func (t *failingTx) CreateDirectory(path string) (*model.Directory, error) {
	if err := t.write(); err != nil {
		return nil, err
	}
	return t.StoreTx.CreateDirectory(path)
}

func (t *failingTx) UpsertFile(directoryID int64, name string, created, modified, cached time.Time) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.StoreTx.UpsertFile(directoryID, name, created, modified, cached)
}

func (t *failingTx) DeleteFile(directoryID int64, name string) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.StoreTx.DeleteFile(directoryID, name)
}

func (t *failingTx) AppendAction(directoryID int64, kind model.ActionKind, at time.Time) (*model.DirectoryAction, error) {
	if err := t.write(); err != nil {
		return nil, err
	}
	return t.StoreTx.AppendAction(directoryID, kind, at)
}

type fixture struct {
	svc   *dpc.Service
	store dpc.Store
	fs    *testutil.MockFilesystemManager
	clock *testutil.StubClock
}

func newFixture(t *testing.T, opts dpc.Options) *fixture {
	t.Helper()
	f := &fixture{
		store: testutil.NewTestStore(t),
		fs:    testutil.NewMockFilesystemManager(),
		clock: testutil.FixedClock(),
	}
	f.svc = dpc.NewService(f.store, f.fs, dpc.NewNopLogger(), f.clock, opts)
	return f
}

// scan runs ScanDirectory and fails the test on error.
func (f *fixture) scan(t *testing.T, path string) *dpc.ScanResult {
	t.Helper()
	res, err := f.svc.ScanDirectory(context.Background(), path)
	require.NoError(t, err)
	return res
}

func (f *fixture) kinds(t *testing.T, path string) []model.ActionKind {
	t.Helper()
	actions, err := f.svc.History(path)
	require.NoError(t, err)
	out := []model.ActionKind{}
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func (f *fixture) fileNames(t *testing.T, path string) []string {
	t.Helper()
	files, err := f.svc.Files(path)
	require.NoError(t, err)
	out := []string{}
	for _, r := range files {
		out = append(out, r.Name)
	}
	return out
}
