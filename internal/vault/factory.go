package vault

import (
	"context"
	"fmt"

	"rgit-go/internal/config"
	"rgit-go/internal/rgit"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (rgit.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		v, err := NewS3VaultFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
