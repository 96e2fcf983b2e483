package rgit

import "io"

// Encryptor encrypts snapshot blobs at rest. Encryption needs only the
// public key; reading encrypted blobs back requires unlocking the private key
// with a passphrase.
type Encryptor interface {
	// Setup generates a key pair and protects the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key. It fails on a wrong passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// PassphraseFunc supplies the passphrase when an encrypted blob must be read.
type PassphraseFunc func() (string, error)
