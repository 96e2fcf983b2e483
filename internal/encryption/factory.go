package encryption

import (
	"fmt"

	"rgit-go/internal/config"
	"rgit-go/internal/rgit"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil for "none": snapshots are then stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (rgit.Encryptor, error) {
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
