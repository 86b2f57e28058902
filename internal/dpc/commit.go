package dpc

import (
	"fmt"
	"time"

	"dpc-go/internal/model"
)

// CommitDiff applies diff to the directory's cached records through tx and
// appends the matching action-log entries, all stamped with at.
//
// Categories are applied in the order removed, modified, added. Each
// non-empty category gets exactly one action, appended before its rows are
// touched. An empty diff appends a single scanned action. CommitDiff must
// run inside Store.Update so a failure leaves nothing behind.
func CommitDiff(tx StoreTx, directoryID int64, diff *Diff, at time.Time) ([]*model.DirectoryAction, error) {
	if diff.Empty() {
		action, err := tx.AppendAction(directoryID, model.ActionScanned, at)
		if err != nil {
			return nil, fmt.Errorf("appending %s action: %w", model.ActionScanned, err)
		}
		return []*model.DirectoryAction{action}, nil
	}

	var actions []*model.DirectoryAction

	if len(diff.Removed) > 0 {
		action, err := tx.AppendAction(directoryID, model.ActionRemoved, at)
		if err != nil {
			return nil, fmt.Errorf("appending %s action: %w", model.ActionRemoved, err)
		}
		actions = append(actions, action)

		for _, name := range diff.Removed {
			if err := tx.DeleteFile(directoryID, name); err != nil {
				return nil, fmt.Errorf("deleting file %s: %w", name, err)
			}
		}
	}

	if len(diff.Modified) > 0 {
		action, err := tx.AppendAction(directoryID, model.ActionModified, at)
		if err != nil {
			return nil, fmt.Errorf("appending %s action: %w", model.ActionModified, err)
		}
		actions = append(actions, action)

		if err := upsertEntries(tx, directoryID, diff.Modified, at); err != nil {
			return nil, err
		}
	}

	if len(diff.Added) > 0 {
		action, err := tx.AppendAction(directoryID, model.ActionAdded, at)
		if err != nil {
			return nil, fmt.Errorf("appending %s action: %w", model.ActionAdded, err)
		}
		actions = append(actions, action)

		if err := upsertEntries(tx, directoryID, diff.Added, at); err != nil {
			return nil, err
		}
	}

	return actions, nil
}

func upsertEntries(tx StoreTx, directoryID int64, entries []model.Entry, at time.Time) error {
	for _, e := range entries {
		if err := tx.UpsertFile(directoryID, e.Name, e.CreatedDate, e.ModifiedDate, at); err != nil {
			return fmt.Errorf("caching file %s: %w", e.Name, err)
		}
	}
	return nil
}

// commitTime returns now, or the directory's latest action time if the
// clock has gone backwards since, so cached dates never decrease.
func commitTime(tx StoreReader, directoryID int64, now time.Time) (time.Time, error) {
	recent, err := tx.RecentActions(directoryID, 1)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading latest action: %w", err)
	}
	if len(recent) > 0 && recent[0].CachedDate.After(now) {
		return recent[0].CachedDate, nil
	}
	return now, nil
}
