package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
)

// FileSystemVault stores snapshot blobs as files:
//
//	<root>/
//	  snapshots/
//	    <hh>/<hash>    (fanned out by the first two hash characters)
type FileSystemVault struct {
	name         string
	root         string
	snapshotsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		snapshotsDir: snapshotsDir,
	}, nil
}

func (v *FileSystemVault) path(hash string) (string, error) {
	if len(hash) < 3 || filepath.Base(hash) != hash {
		return "", fmt.Errorf("invalid snapshot hash: %q", hash)
	}
	return filepath.Join(v.snapshotsDir, hash[:2], hash), nil
}

// PutContent stores content under hash. Existing content is left untouched.
func (v *FileSystemVault) PutContent(ctx context.Context, hash string, r io.Reader, size int64) error {
	destPath, err := v.path(hash)
	if err != nil {
		return err
	}

	if _, err := os.Stat(destPath); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create fan-out directory: %w", err)
	}
	return v.writeFile(destPath, r, size)
}

// GetContent retrieves content by hash and writes it to w.
func (v *FileSystemVault) GetContent(ctx context.Context, hash string, w io.Writer) error {
	srcPath, err := v.path(hash)
	if err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("snapshot %s: %w", hash, model.ErrNotFound)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	info, err = os.Stat(v.snapshotsDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.snapshotsDir)
	}
	return nil
}

// writeFile writes r to destPath through a temp file and rename.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

var _ rgit.Vault = (*FileSystemVault)(nil)
