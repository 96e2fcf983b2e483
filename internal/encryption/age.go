package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"rgit-go/internal/config"
	"rgit-go/internal/rgit"
)

// ErrWrongPassphrase is returned by Unlock when the passphrase does not
// decrypt the private key.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// AgeEncryptor encrypts snapshot blobs with an X25519 age key pair. The
// public key is stored in plaintext; the private key file is itself an age
// file encrypted to the user's passphrase (scrypt).
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string

	mu        sync.Mutex
	recipient age.Recipient
}

var _ rgit.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup generates a key pair. It refuses to replace existing keys, which
// would make every stored snapshot unreadable.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	if e.IsConfigured() {
		return fmt.Errorf("keys already exist at %s", filepath.Dir(e.privateKeyPath))
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := writeKeyFile(e.publicKeyPath, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, identity.Recipient().String()+"\n")
		return err
	}); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if err := writeKeyFile(e.privateKeyPath, 0600, func(w io.Writer) error {
		aw, err := age.Encrypt(w, recipient)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(aw, identity.String()+"\n"); err != nil {
			return err
		}
		return aw.Close()
	}); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	e.mu.Lock()
	e.recipient = identity.Recipient()
	e.mu.Unlock()
	return nil
}

func writeKeyFile(path string, perm os.FileMode, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encrypt reads plaintext from r and writes age ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.loadRecipient()
	if err != nil {
		return fmt.Errorf("loading public key: %w", err)
	}

	aw, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(aw, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Unlock decrypts the private key with passphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (rgit.DecryptionContext, error) {
	privData, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(privData), scrypt)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) || errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}
	keyData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted private key: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in private key")
	}
	return &AgeDecryptionContext{identity: identities[0]}, nil
}

// IsConfigured returns true if both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// loadRecipient parses the public key once and caches it.
func (e *AgeEncryptor) loadRecipient() (age.Recipient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recipient != nil {
		return e.recipient, nil
	}

	pubData, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(pubData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in public key file")
	}
	e.recipient = recipients[0]
	return e.recipient, nil
}

// AgeDecryptionContext holds an unlocked age identity.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ rgit.DecryptionContext = (*AgeDecryptionContext)(nil)

func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	dr, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, dr); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}
