package testutil

import (
	"rgit-go/internal/encryption"
)

// NewTestEncryptor creates a header-only encryptor for testing.
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
