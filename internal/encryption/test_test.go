package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func TestTestEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if err := e.Setup("any-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if e.passphrase != "any-passphrase" {
		t.Errorf("passphrase = %q, want it remembered", e.passphrase)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
}

func TestTestEncryptor_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "sqlite header", input: []byte("SQLite format 3\x00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewTestEncryptor()

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !bytes.HasPrefix(encrypted.Bytes(), sealMarker) {
				t.Error("encrypted output does not start with the seal marker")
			}

			ctx, err := e.Unlock("any-passphrase")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			var decrypted bytes.Buffer
			if err := ctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %q, want %q", decrypted.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_Passphrase(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") expected error, got nil")
	}
	if _, err := e.Unlock("anything"); err != nil {
		t.Errorf("Unlock() before Setup error = %v, want any passphrase accepted", err)
	}

	if err := e.Setup("right"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	if _, err := e.Unlock("right"); err != nil {
		t.Errorf("Unlock(right) error = %v", err)
	}
}

func TestTestDecryptionContext_Rejects(t *testing.T) {
	t.Parallel()

	for name, input := range map[string][]byte{
		"invalid header": []byte("NOT_VALID_HEADER_data"),
		"truncated":      []byte("DPC"),
		"empty":          nil,
	} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			err := (&TestDecryptionContext{}).Decrypt(bytes.NewReader(input), &out)
			if !errors.Is(err, errNotSealed) {
				t.Errorf("Decrypt() error = %v, want errNotSealed", err)
			}
		})
	}
}
