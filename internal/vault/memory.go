package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
)

// MemoryVault keeps snapshot blobs in memory. It is safe for concurrent use.
type MemoryVault struct {
	name    string
	content map[string][]byte
	puts    int
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		content: make(map[string][]byte),
	}
}

func (m *MemoryVault) PutContent(ctx context.Context, hash string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if _, ok := m.content[hash]; !ok {
		m.content[hash] = data
	}
	return nil
}

func (m *MemoryVault) GetContent(ctx context.Context, hash string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.content[hash]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("snapshot %s: %w", hash, model.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Len returns the number of distinct blobs stored.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

// Puts returns how many PutContent calls succeeded, including repeats.
func (m *MemoryVault) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Raw returns the stored bytes for hash.
func (m *MemoryVault) Raw(hash string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.content[hash]
	return data, ok
}

var _ rgit.Vault = (*MemoryVault)(nil)
