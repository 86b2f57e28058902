package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"dpc-go/internal/dpc"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores snapshots in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte // hostID -> snapshot
	versions  map[string]int64  // hostID -> version
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
		versions:  make(map[string]int64),
	}
}

// PutSnapshot stores the snapshot for a host, replacing any previous one.
func (m *MemoryVault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[hostID] = data
	m.versions[hostID] = version
	return nil
}

// GetSnapshotVersion returns the snapshot version for a host.
// Returns 0 if no snapshot has been stored for this host.
func (m *MemoryVault) GetSnapshotVersion(hostID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[hostID], nil
}

// GetSnapshot retrieves the snapshot for a host.
func (m *MemoryVault) GetSnapshot(hostID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[hostID]
	if !ok {
		return fmt.Errorf("snapshot for host %s: %w", hostID, dpc.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements dpc.Vault interface
var _ dpc.Vault = (*MemoryVault)(nil)
