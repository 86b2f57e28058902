package dpc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpc-go/internal/dpc"
	"dpc-go/internal/model"
	"dpc-go/internal/testutil"
)

func TestCommitDiff(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var dirID int64
	require.NoError(t, store.Update(ctx, func(tx dpc.StoreTx) error {
		dir, err := tx.CreateDirectory("/d")
		if err != nil {
			return err
		}
		dirID = dir.ID
		if err := tx.UpsertFile(dirID, "old", t1, t1, t1); err != nil {
			return err
		}
		return tx.UpsertFile(dirID, "edit", t1, t1, t1)
	}))

	t.Run("categories in order removed, modified, added with one timestamp", func(t *testing.T) {
		diff := &dpc.Diff{
			Added:    []model.Entry{entry("new", t2, t2)},
			Modified: []model.Entry{entry("edit", t1, t2)},
			Removed:  []string{"old"},
		}

		var actions []*model.DirectoryAction
		require.NoError(t, store.Update(ctx, func(tx dpc.StoreTx) error {
			var err error
			actions, err = dpc.CommitDiff(tx, dirID, diff, at)
			return err
		}))

		require.Len(t, actions, 3)
		assert.Equal(t, model.ActionRemoved, actions[0].Kind)
		assert.Equal(t, model.ActionModified, actions[1].Kind)
		assert.Equal(t, model.ActionAdded, actions[2].Kind)
		for _, a := range actions {
			assert.True(t, a.CachedDate.Equal(at))
		}
		assert.Less(t, actions[0].ID, actions[1].ID)
		assert.Less(t, actions[1].ID, actions[2].ID)

		files, err := store.ListFiles(dirID)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "edit", files[0].Name)
		assert.True(t, files[0].ModifiedDate.Equal(t2))
		assert.True(t, files[0].CachedDate.Equal(at))
		assert.Equal(t, "new", files[1].Name)
		assert.True(t, files[1].CachedDate.Equal(at))
	})

	t.Run("empty diff logs a single scanned action", func(t *testing.T) {
		before, err := store.ListFiles(dirID)
		require.NoError(t, err)

		var actions []*model.DirectoryAction
		require.NoError(t, store.Update(ctx, func(tx dpc.StoreTx) error {
			var err error
			actions, err = dpc.CommitDiff(tx, dirID, &dpc.Diff{Unchanged: []string{"edit", "new"}}, at.Add(time.Hour))
			return err
		}))

		require.Len(t, actions, 1)
		assert.Equal(t, model.ActionScanned, actions[0].Kind)

		after, err := store.ListFiles(dirID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("only non-empty categories are logged", func(t *testing.T) {
		var actions []*model.DirectoryAction
		require.NoError(t, store.Update(ctx, func(tx dpc.StoreTx) error {
			var err error
			actions, err = dpc.CommitDiff(tx, dirID, &dpc.Diff{Removed: []string{"new"}}, at.Add(2*time.Hour))
			return err
		}))

		require.Len(t, actions, 1)
		assert.Equal(t, model.ActionRemoved, actions[0].Kind)
	})
}
