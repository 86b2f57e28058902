package testutil

import (
	"dpc-go/internal/dpc"
	"dpc-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() dpc.Vault {
	return vault.NewMemoryVault("test-vault")
}
