package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"dpc-go/internal/config"
	"dpc-go/internal/dpc"
	"dpc-go/internal/encryption"
	"dpc-go/internal/vault"
)

// PassphraseFunc supplies the passphrase that unlocks the private key.
type PassphraseFunc func() (string, error)

// PullArchive downloads this host's archived database from the first
// configured vault and writes the decrypted snapshot to w. It does not open
// the local database, so it also works when the local one is behind.
func PullArchive(ctx context.Context, cfg *config.Config, w io.Writer, passphrase PassphraseFunc) error {
	if len(cfg.Vaults) == 0 {
		return fmt.Errorf("no vaults configured")
	}
	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	return pullArchive(v, enc, cfg.HostID, w, passphrase)
}

func pullArchive(v dpc.Vault, enc dpc.Encryptor, hostID string, w io.Writer, passphrase PassphraseFunc) error {
	if enc == nil {
		if err := v.GetSnapshot(hostID, w); err != nil {
			return fmt.Errorf("downloading archive: %w", err)
		}
		return nil
	}

	tmp, err := os.CreateTemp("", "dpc-pull-*.age")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := v.GetSnapshot(hostID, tmp); err != nil {
		return fmt.Errorf("downloading archive: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding archive: %w", err)
	}

	pass, err := passphrase()
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := enc.Unlock(pass)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	if err := dc.Decrypt(tmp, w); err != nil {
		return fmt.Errorf("decrypting archive: %w", err)
	}
	return nil
}
