package encryption

import (
	"fmt"

	"dpc-go/internal/config"
	"dpc-go/internal/dpc"
)

// NewEncryptorFromConfig returns the configured Encryptor. Type "none"
// yields a nil Encryptor and snapshots are archived in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (dpc.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
