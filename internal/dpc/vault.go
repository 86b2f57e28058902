package dpc

import "io"

// Vault stores archived snapshots of the cache database.
// All operations use io.Reader/io.Writer for streaming.
type Vault interface {
	// PutSnapshot stores the database snapshot for a host.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the snapshot for consistency checks.
	PutSnapshot(hostID string, r io.Reader, size int64, version int64) error

	// GetSnapshot retrieves the database snapshot for a host and writes it to w.
	GetSnapshot(hostID string, w io.Writer) error

	// GetSnapshotVersion returns the stored snapshot version for a host.
	// Returns 0 if no snapshot has been stored.
	GetSnapshotVersion(hostID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
