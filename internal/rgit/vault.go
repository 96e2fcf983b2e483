package rgit

import (
	"context"
	"io"
)

// Vault stores snapshot blobs keyed by their structural hash.
type Vault interface {
	// PutContent stores content under hash. Storing the same hash twice is
	// safe. size is the number of bytes that will be read from r.
	PutContent(ctx context.Context, hash string, r io.Reader, size int64) error

	// GetContent retrieves content by hash and writes it to w.
	GetContent(ctx context.Context, hash string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
