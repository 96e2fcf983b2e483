package encryption

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"rgit-go/internal/rgit"
)

// testHeader marks output of TestEncryptor so encrypted blobs differ from
// plaintext.
var testHeader = []byte("RGITENC\x00")

// TestEncryptor is a deterministic, reversible stand-in for age. It checks
// the passphrase given to Setup, so tests can exercise unlock failures.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
	setup      bool
	unlocks    int
}

var _ rgit.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passphrase = passphrase
	e.setup = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase until Setup has been called.
func (e *TestEncryptor) Unlock(passphrase string) (rgit.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.setup && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	e.unlocks++
	return &TestDecryptionContext{}, nil
}

// IsConfigured reports whether Setup has been called.
func (e *TestEncryptor) IsConfigured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setup
}

// Unlocks reports how many times Unlock succeeded.
func (e *TestEncryptor) Unlocks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocks
}

// TestDecryptionContext strips the test header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ rgit.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
