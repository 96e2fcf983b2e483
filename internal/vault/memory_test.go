package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"rgit-go/internal/model"
)

func TestMemoryVault_PutGet(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault("mem")

	data := "snapshot bytes"
	if err := v.PutContent(ctx, "h1", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetContent(ctx, "h1", &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("content = %q, want %q", buf.String(), data)
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	v := NewMemoryVault("mem")
	if err := v.PutContent(context.Background(), "h1", strings.NewReader("abc"), 10); err == nil {
		t.Fatal("PutContent() expected size mismatch error")
	}
	if v.Len() != 0 {
		t.Errorf("Len() = %d, want 0", v.Len())
	}
}

func TestMemoryVault_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault("mem")

	if err := v.PutContent(ctx, "h1", strings.NewReader("first"), 5); err != nil {
		t.Fatal(err)
	}
	if err := v.PutContent(ctx, "h1", strings.NewReader("other"), 5); err != nil {
		t.Fatal(err)
	}

	raw, ok := v.Raw("h1")
	if !ok || string(raw) != "first" {
		t.Errorf("Raw() = %q, %v; want %q", raw, ok, "first")
	}
	if v.Len() != 1 {
		t.Errorf("Len() = %d, want 1", v.Len())
	}
	if v.Puts() != 2 {
		t.Errorf("Puts() = %d, want 2", v.Puts())
	}
}

func TestMemoryVault_NotFound(t *testing.T) {
	var buf bytes.Buffer
	err := NewMemoryVault("mem").GetContent(context.Background(), "missing", &buf)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetContent() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryVault_Concurrent(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault("mem")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash := []string{"h1", "h2"}[i%2]
			if err := v.PutContent(ctx, hash, strings.NewReader("data"), 4); err != nil {
				t.Errorf("PutContent() error = %v", err)
			}
			var buf bytes.Buffer
			_ = v.GetContent(ctx, hash, &buf)
		}()
	}
	wg.Wait()

	if v.Len() != 2 {
		t.Errorf("Len() = %d, want 2", v.Len())
	}
}
