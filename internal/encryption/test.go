package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"dpc-go/internal/dpc"
)

// sealMarker prefixes every archive sealed by TestEncryptor.
var sealMarker = []byte("DPCENC\x00\x00")

var errNotSealed = errors.New("archive not sealed by the test encryptor")

// TestEncryptor stands in for age in tests and in the "test" encryption
// type. Archives are the plaintext behind sealMarker. The passphrase given
// to Setup is remembered for the life of the value, so a wrong one is
// rejected the same way age rejects it.
type TestEncryptor struct {
	passphrase string
}

var _ dpc.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase must not be empty")
	}
	e.passphrase = passphrase
	return nil
}

// IsConfigured is always true; there are no keys to create.
func (e *TestEncryptor) IsConfigured() bool {
	return true
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, io.MultiReader(bytes.NewReader(sealMarker), r)); err != nil {
		return fmt.Errorf("sealing archive: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase unless Setup was called on e.
func (e *TestEncryptor) Unlock(passphrase string) (dpc.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

type TestDecryptionContext struct{}

var _ dpc.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	marker := make([]byte, len(sealMarker))
	if _, err := io.ReadFull(r, marker); err != nil {
		return fmt.Errorf("%w: %v", errNotSealed, err)
	}
	if !bytes.Equal(marker, sealMarker) {
		return errNotSealed
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	return nil
}
