package rgit

import (
	"bytes"
	"context"
	"fmt"

	"rgit-go/internal/model"
	"rgit-go/internal/snapshot"
)

// storeSnapshot writes the snapshot blob to the vault unless a snapshot with
// the same structural hash is already recorded.
//
// The vault upload happens before the database record, so a failure between
// the two leaves at most an unreferenced blob.
func (s *Service) storeSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	hash := snap.Hash()

	existing, err := s.database.GetSnapshotRecord(ctx, hash)
	if err != nil {
		return fmt.Errorf("checking for existing snapshot: %w", err)
	}
	if existing != nil {
		s.logger.Debug("snapshot deduplicated", "hash", hash)
		s.metrics.RecordSnapshot(false, existing.Size)
		return nil
	}

	plain := snap.Encode()
	blob := plain
	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(plain), &buf); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		blob = buf.Bytes()
	}

	if err := s.vault.PutContent(ctx, hash, bytes.NewReader(blob), int64(len(blob))); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}

	record := &model.SnapshotRecord{
		Hash:       hash,
		BlockCount: snap.Len(),
		Size:       int64(len(plain)),
		Encrypted:  s.encryptor != nil,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.database.CreateSnapshotRecord(ctx, record); err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}

	s.cache.Store(hash, snap)
	s.metrics.RecordSnapshot(true, int64(len(blob)))
	s.logger.Debug("snapshot stored", "hash", hash, "blocks", record.BlockCount, "size", record.Size)
	return nil
}

// loadSnapshot reads and verifies the snapshot stored under hash.
func (s *Service) loadSnapshot(ctx context.Context, hash string) (*snapshot.Snapshot, error) {
	if snap, ok := s.cached(hash); ok {
		return snap, nil
	}

	record, err := s.database.GetSnapshotRecord(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("snapshot %s: %w", hash, model.ErrNotFound)
	}

	var blob bytes.Buffer
	if err := s.vault.GetContent(ctx, hash, &blob); err != nil {
		return nil, fmt.Errorf("reading snapshot %s from vault: %w", hash, err)
	}

	data := blob.Bytes()
	if record.Encrypted {
		dc, err := s.unlock()
		if err != nil {
			return nil, err
		}
		var plain bytes.Buffer
		if err := dc.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("decrypting snapshot %s: %w", hash, err)
		}
		data = plain.Bytes()
	}

	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", hash, err)
	}
	if snap.Hash() != hash {
		return nil, fmt.Errorf("snapshot %s: content hash mismatch (got %s)", hash, snap.Hash())
	}

	s.cache.Store(hash, snap)
	return snap, nil
}

// commitSnapshot returns the snapshot of c, or the empty snapshot for nil.
func (s *Service) commitSnapshot(ctx context.Context, c *model.Commit) (*snapshot.Snapshot, error) {
	if c == nil {
		return snapshot.Empty(), nil
	}
	return s.loadSnapshot(ctx, c.SnapshotHash)
}

func (s *Service) unlock() (DecryptionContext, error) {
	s.unlockMu.Lock()
	defer s.unlockMu.Unlock()

	if s.decryptor != nil {
		return s.decryptor, nil
	}
	if s.encryptor == nil || s.passphrase == nil {
		return nil, model.ErrLocked
	}
	passphrase, err := s.passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	s.decryptor = dc
	return dc, nil
}
