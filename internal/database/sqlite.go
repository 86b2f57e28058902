package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dpc-go/internal/database/migrations"
	"dpc-go/internal/database/sqlc"
	"dpc-go/internal/dpc"
	"dpc-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// TimeLayout is the text encoding of every stored timestamp. It is fixed
// width and always UTC, so lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrTimeOutOfRange is returned when a timestamp cannot be stored.
var ErrTimeOutOfRange = errors.New("timestamp out of storable range")

// SQLiteStore implements the dpc.Store interface using SQLite.
type SQLiteStore struct {
	reader
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a SQLite store.
// path can be a file path or ":memory:" for an in-memory database.
// A nil codec uses the default action codes.
func NewSQLiteStore(path string, codec *model.ActionCodec) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return NewSQLiteStoreFromDB(db, path, codec), nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB, path string, codec *model.ActionCodec) *SQLiteStore {
	if codec == nil {
		codec = model.DefaultActionCodec()
	}
	return &SQLiteStore{
		reader: reader{
			ctx:   context.Background(),
			q:     sqlc.New(db),
			codec: codec,
		},
		db:   db,
		path: path,
	}
}

// OpenConnection opens and configures a SQLite database connection.
// Foreign keys are enforced, writers wait up to five seconds for a lock and
// every transaction starts with BEGIN IMMEDIATE so concurrent commits
// serialize instead of failing on lock upgrade.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// DB returns the underlying connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Update runs fn in one transaction. See dpc.Store.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx dpc.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	done := false
	defer func() {
		if !done {
			tx.Rollback()
		}
	}()

	stx := &sqliteTx{reader: reader{ctx: ctx, q: s.q.WithTx(tx), codec: s.codec}}

	if err := fn(stx); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w: rolling back after %v: %v", dpc.ErrConsistencyViolation, err, rbErr)
		}
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// MaxActionID returns the highest action id across all directories, or 0.
func (s *SQLiteStore) MaxActionID() (int64, error) {
	id, err := s.q.MaxActionID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max action ID: %w", err)
	}
	return id, nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// reader implements dpc.StoreReader over either the connection or a
// transaction.
type reader struct {
	ctx   context.Context
	q     *sqlc.Queries
	codec *model.ActionCodec
}

func (r *reader) GetDirectory(path string) (*model.Directory, error) {
	row, err := r.q.GetDirectoryByPath(r.ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding directory by path: %w", err)
	}
	return toDirectory(row), nil
}

func (r *reader) GetDirectoryByID(id int64) (*model.Directory, error) {
	row, err := r.q.GetDirectoryByID(r.ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding directory by ID: %w", err)
	}
	return toDirectory(row), nil
}

func (r *reader) ListDirectories() ([]*model.Directory, error) {
	rows, err := r.q.ListDirectories(r.ctx)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}

	dirs := make([]*model.Directory, len(rows))
	for i, row := range rows {
		dirs[i] = toDirectory(row)
	}
	return dirs, nil
}

func (r *reader) ListFiles(directoryID int64) ([]*model.FileRecord, error) {
	rows, err := r.q.ListFilesByDirectory(r.ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]*model.FileRecord, len(rows))
	for i, row := range rows {
		f, err := toFileRecord(row)
		if err != nil {
			return nil, err
		}
		files[i] = f
	}
	return files, nil
}

func (r *reader) ListActions(directoryID int64) ([]*model.DirectoryAction, error) {
	rows, err := r.q.ListActionsByDirectory(r.ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	return r.toActions(rows)
}

func (r *reader) RecentActions(directoryID int64, n int) ([]*model.DirectoryAction, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.q.RecentActionsByDirectory(r.ctx, sqlc.RecentActionsByDirectoryParams{
		DirID: directoryID,
		Limit: int64(n),
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent actions: %w", err)
	}
	return r.toActions(rows)
}

func (r *reader) toActions(rows []sqlc.DirActionsLog) ([]*model.DirectoryAction, error) {
	actions := make([]*model.DirectoryAction, len(rows))
	for i, row := range rows {
		kind, err := r.codec.Kind(int(row.ActionType))
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", row.ID, err)
		}
		at, err := parseTime(row.CachedDate)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", row.ID, err)
		}
		actions[i] = &model.DirectoryAction{
			ID:          row.ID,
			DirectoryID: row.DirID,
			Kind:        kind,
			CachedDate:  at,
		}
	}
	return actions, nil
}

// sqliteTx implements dpc.StoreTx within one database transaction.
type sqliteTx struct {
	reader
}

func (t *sqliteTx) CreateDirectory(path string) (*model.Directory, error) {
	row, err := t.q.InsertDirectory(t.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("inserting directory: %w", err)
	}
	return toDirectory(row), nil
}

func (t *sqliteTx) UpsertFile(directoryID int64, name string, createdDate, modifiedDate, cachedDate time.Time) error {
	if err := t.requireDirectory(directoryID); err != nil {
		return err
	}

	cached, err := formatTime(cachedDate)
	if err != nil {
		return fmt.Errorf("file %s: cached date: %w", name, err)
	}
	created, err := formatTime(createdDate)
	if err != nil {
		return fmt.Errorf("file %s: created date: %w", name, err)
	}
	modified, err := formatTime(modifiedDate)
	if err != nil {
		return fmt.Errorf("file %s: modified date: %w", name, err)
	}

	err = t.q.UpsertFile(t.ctx, sqlc.UpsertFileParams{
		DirID:        directoryID,
		Name:         name,
		CachedDate:   cached,
		CreatedDate:  created,
		ModifiedDate: modified,
	})
	if err != nil {
		return fmt.Errorf("upserting file: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteFile(directoryID int64, name string) error {
	err := t.q.DeleteFile(t.ctx, sqlc.DeleteFileParams{DirID: directoryID, Name: name})
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

func (t *sqliteTx) AppendAction(directoryID int64, kind model.ActionKind, at time.Time) (*model.DirectoryAction, error) {
	if err := t.requireDirectory(directoryID); err != nil {
		return nil, err
	}

	code, err := t.codec.Code(kind)
	if err != nil {
		return nil, err
	}

	cachedDate, err := formatTime(at)
	if err != nil {
		return nil, fmt.Errorf("action date: %w", err)
	}

	row, err := t.q.InsertAction(t.ctx, sqlc.InsertActionParams{
		DirID:      directoryID,
		ActionType: int64(code),
		CachedDate: cachedDate,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting action: %w", err)
	}

	stored, err := parseTime(row.CachedDate)
	if err != nil {
		return nil, err
	}
	return &model.DirectoryAction{
		ID:          row.ID,
		DirectoryID: row.DirID,
		Kind:        kind,
		CachedDate:  stored,
	}, nil
}

func (t *sqliteTx) requireDirectory(directoryID int64) error {
	dir, err := t.GetDirectoryByID(directoryID)
	if err != nil {
		return err
	}
	if dir == nil {
		return fmt.Errorf("directory %d: %w", directoryID, dpc.ErrNotFound)
	}
	return nil
}

func toDirectory(row sqlc.DirProp) *model.Directory {
	return &model.Directory{ID: row.ID, Path: row.Path}
}

func toFileRecord(row sqlc.DirFileProp) (*model.FileRecord, error) {
	cached, err := parseTime(row.CachedDate)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", row.Name, err)
	}
	created, err := parseTime(row.CreatedDate)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", row.Name, err)
	}
	modified, err := parseTime(row.ModifiedDate)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", row.Name, err)
	}
	return &model.FileRecord{
		ID:           row.ID,
		DirectoryID:  row.DirID,
		Name:         row.Name,
		CachedDate:   cached,
		CreatedDate:  created,
		ModifiedDate: modified,
	}, nil
}

// formatTime encodes t in TimeLayout. Years outside 0-9999 do not fit the
// fixed-width layout and are rejected.
func formatTime(t time.Time) (string, error) {
	t = t.UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return "", fmt.Errorf("%w: %s", ErrTimeOutOfRange, t.Format(time.RFC3339))
	}
	return t.Format(TimeLayout), nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// Compile-time checks
var (
	_ dpc.Store   = (*SQLiteStore)(nil)
	_ dpc.StoreTx = (*sqliteTx)(nil)
)
