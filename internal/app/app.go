package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dpc-go/internal/config"
	"dpc-go/internal/database"
	"dpc-go/internal/dpc"
	"dpc-go/internal/encryption"
	dpcfs "dpc-go/internal/fs"
	"dpc-go/internal/model"
	"dpc-go/internal/vault"
)

// ErrBehindArchive is returned at startup when the archive holds a newer
// snapshot of this host's database than the local one.
var ErrBehindArchive = errors.New("local database is behind the archive")

// DPCApp is the application layer between the CLI and dpc.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and archives the database on Close.
type DPCApp struct {
	cfg       *config.Config
	store     dpc.Store
	vault     dpc.Vault // nil when no vault is configured
	fsmgr     dpc.FilesystemManager
	encryptor dpc.Encryptor // nil when snapshots are archived in plaintext
	service   *dpc.Service
	op        *Operation
	logger    *slog.Logger
	logCloser io.Closer
}

// NewDPCApp creates a fully wired DPCApp from the given config.
// operation names the CLI command being run (e.g. "Scan", "Verify").
// The caller must call Close when done.
func NewDPCApp(ctx context.Context, cfg *config.Config, operation, parameters string) (*DPCApp, error) {
	var v dpc.Vault
	if len(cfg.Vaults) > 0 {
		var err error
		v, err = vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}
	return newApp(cfg, operation, parameters, v, dpcfs.NewOSFilesystemManager(cfg.Filesystem.Ignore), os.Stderr)
}

func newApp(cfg *config.Config, operation, parameters string, v dpc.Vault, fsmgr dpc.FilesystemManager, console io.Writer) (*DPCApp, error) {
	codec, err := model.NewActionCodec(cfg.Actions)
	if err != nil {
		return nil, fmt.Errorf("action codes: %w", err)
	}

	opts, err := serviceOptions(cfg.Scan)
	if err != nil {
		return nil, err
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil && !enc.IsConfigured() {
		return nil, fmt.Errorf("encryption keys not found: run `dpc config keys`")
	}

	op := NewOperation(operation, parameters)
	logger, logCloser, err := newLogger(cfg.Log, cfg.LogDir, op.ID, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Database, cfg.HostID, codec)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := openChecks(store, v, cfg.HostID); err != nil {
		store.Close()
		logCloser.Close()
		return nil, err
	}

	logger.Debug("operation started", "operation", op.Name, "parameters", op.Parameters)

	svc := dpc.NewService(store, fsmgr, &slogAdapter{l: logger}, dpc.RealClock{}, opts)

	return &DPCApp{
		cfg:       cfg,
		store:     store,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		service:   svc,
		op:        op,
		logger:    logger,
		logCloser: logCloser,
	}, nil
}

func serviceOptions(cfg config.ScanConfig) (dpc.Options, error) {
	timeout, err := cfg.ListTimeoutDuration()
	if err != nil {
		return dpc.Options{}, err
	}
	precision, err := cfg.Precision()
	if err != nil {
		return dpc.Options{}, err
	}
	return dpc.Options{
		ListTimeout:   timeout,
		MissThreshold: cfg.MissThreshold,
		Precision:     precision,
		Workers:       cfg.Workers,
	}, nil
}

// openChecks refuses a store whose schema is stale or whose log is older
// than the archived snapshot.
func openChecks(store dpc.Store, v dpc.Vault, hostID string) error {
	if err := store.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}
	if v == nil {
		return nil
	}

	remote, err := v.GetSnapshotVersion(hostID)
	if err != nil {
		return fmt.Errorf("checking archive version: %w", err)
	}
	local, err := store.MaxActionID()
	if err != nil {
		return fmt.Errorf("checking local version: %w", err)
	}
	if remote > local {
		return fmt.Errorf("%w (local=%d, archive=%d): run `dpc archive pull` or re-initialize", ErrBehindArchive, local, remote)
	}
	return nil
}

// Operation returns the operation this app was created for.
func (a *DPCApp) Operation() *Operation {
	return a.op
}

// resolveDirectory turns a raw path into a clean absolute directory path.
// A path that no longer exists is still accepted so that a known directory
// can be scanned as missing.
func (a *DPCApp) resolveDirectory(rawPath string) (string, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			abs, absErr := filepath.Abs(rawPath)
			if absErr != nil {
				return "", fmt.Errorf("resolving path: %w", absErr)
			}
			return abs, nil
		}
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if !p.IsDir() {
		return "", fmt.Errorf("%s is not a directory", p)
	}
	return p.String(), nil
}

// Scan scans the directory at rawPath, or the whole tree below it when
// recursive is set.
func (a *DPCApp) Scan(ctx context.Context, rawPath string, recursive bool) ([]*dpc.ScanResult, error) {
	path, err := a.resolveDirectory(rawPath)
	if err != nil {
		return nil, a.op.Fail(err)
	}

	a.op.MarkWrite()
	if recursive {
		results, err := a.service.ScanTree(ctx, path)
		return results, a.op.Fail(err)
	}

	result, err := a.service.ScanDirectory(ctx, path)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	return []*dpc.ScanResult{result}, nil
}

// ApplyDates restores the cached modification times of the files in the
// directory at rawPath. Returns the number of files touched.
func (a *DPCApp) ApplyDates(rawPath string) (int, error) {
	path, err := a.resolveDirectory(rawPath)
	if err != nil {
		return 0, a.op.Fail(err)
	}
	n, err := a.service.ApplyDates(path)
	return n, a.op.Fail(err)
}

// History returns the action log of the directory at rawPath.
func (a *DPCApp) History(rawPath string) ([]*model.DirectoryAction, error) {
	path, err := a.resolveDirectory(rawPath)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	actions, err := a.service.History(path)
	return actions, a.op.Fail(err)
}

// Files returns the cached file records of the directory at rawPath.
func (a *DPCApp) Files(rawPath string) ([]*model.FileRecord, error) {
	path, err := a.resolveDirectory(rawPath)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	files, err := a.service.Files(path)
	return files, a.op.Fail(err)
}

// Directories returns every tracked directory with its state.
func (a *DPCApp) Directories() ([]*dpc.DirectoryStatus, error) {
	dirs, err := a.service.Directories()
	return dirs, a.op.Fail(err)
}

// Verify checks the stored invariants of the directory at rawPath.
func (a *DPCApp) Verify(rawPath string) (*dpc.VerifyReport, error) {
	path, err := a.resolveDirectory(rawPath)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	report, err := a.service.Verify(path)
	return report, a.op.Fail(err)
}

// Close archives the database if the operation wrote to it, then closes
// the store and the log.
func (a *DPCApp) Close() error {
	var firstErr error

	if a.op.Wrote() && a.vault != nil {
		if err := a.archive(); err != nil {
			a.logger.Error("archiving database failed", "error", err)
			firstErr = err
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", time.Since(a.op.StartedAt).Round(time.Millisecond),
	)
	a.logCloser.Close()

	return firstErr
}

// archive uploads a consistent copy of the database, encrypted when an
// encryptor is configured, with the latest action id as its version.
func (a *DPCApp) archive() error {
	version, err := a.store.MaxActionID()
	if err != nil {
		return fmt.Errorf("reading database version: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "dpc-archive-*")
	if err != nil {
		return fmt.Errorf("creating temp dir for archive: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshotPath := filepath.Join(tmpDir, "snapshot.db")
	if err := a.store.BackupTo(snapshotPath); err != nil {
		return err
	}

	uploadPath := snapshotPath
	if a.encryptor != nil {
		uploadPath = snapshotPath + ".age"
		if err := encryptFile(a.encryptor, snapshotPath, uploadPath); err != nil {
			return err
		}
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return fmt.Errorf("opening archive for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	if err := a.vault.PutSnapshot(a.cfg.HostID, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading archive: %w", err)
	}

	a.logger.Info("database archived", "version", version, "size", info.Size(), "encrypted", a.encryptor != nil)
	return nil
}

func encryptFile(enc dpc.Encryptor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}
