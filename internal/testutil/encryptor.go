package testutil

import (
	"dpc-go/internal/dpc"
	"dpc-go/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() dpc.Encryptor {
	return encryption.NewTestEncryptor()
}
