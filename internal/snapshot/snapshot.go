// Package snapshot materializes immutable captures of a resume's block tree.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"

	"rgit-go/internal/model"
	"rgit-go/internal/tree"
)

// Snapshot is an immutable, fully materialized resume state. Blocks are held
// in pre-order and every accessor returns copies.
type Snapshot struct {
	blocks []model.Block
	hash   string
}

type encoded struct {
	Blocks []model.Block `json:"blocks"`
}

// Build captures the current state of t.
func Build(t *tree.Tree) *Snapshot {
	return newSnapshot(t.Blocks())
}

// Empty returns the snapshot of a resume with no blocks.
func Empty() *Snapshot {
	return newSnapshot(nil)
}

// FromBlocks builds a snapshot from raw blocks, validating that they form a
// forest. The input order does not matter.
func FromBlocks(blocks []model.Block) (*Snapshot, error) {
	t, err := tree.Load(blocks, nil)
	if err != nil {
		return nil, err
	}
	return Build(t), nil
}

// Decode parses a snapshot produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	var e encoded
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	s, err := FromBlocks(e.Blocks)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}

func newSnapshot(blocks []model.Block) *Snapshot {
	if blocks == nil {
		blocks = []model.Block{}
	}
	s := &Snapshot{blocks: blocks}
	s.hash = fmt.Sprintf("%x", xxh3.Hash128(s.canonical()).Bytes())
	return s
}

// canonical is the deterministic encoding hashed for deduplication. Blocks are
// already in pre-order and encoding/json sorts map keys.
func (s *Snapshot) canonical() []byte {
	data, err := json.Marshal(encoded{Blocks: s.blocks})
	if err != nil {
		// Blocks hold only strings and ints.
		panic(fmt.Sprintf("encoding snapshot: %v", err))
	}
	return data
}

// Encode returns the canonical serialized form of the snapshot.
func (s *Snapshot) Encode() []byte {
	return s.canonical()
}

// Hash returns the structural hash: structurally identical trees share it.
func (s *Snapshot) Hash() string {
	return s.hash
}

// Blocks returns copies of the snapshot's blocks in pre-order.
func (s *Snapshot) Blocks() []model.Block {
	out := make([]model.Block, len(s.blocks))
	for i := range s.blocks {
		out[i] = s.blocks[i].Clone()
	}
	return out
}

// Len returns the number of blocks.
func (s *Snapshot) Len() int {
	return len(s.blocks)
}

// Equal reports whether two snapshots capture structurally identical trees.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.hash == o.hash
}

// Tree returns a fresh, clean working tree holding the snapshot's blocks.
func (s *Snapshot) Tree(idgen tree.IDGenerator) *tree.Tree {
	t, err := tree.Load(s.blocks, idgen)
	if err != nil {
		// Snapshots are only built from valid trees.
		panic(fmt.Sprintf("loading snapshot %s: %v", s.hash, err))
	}
	return t
}
