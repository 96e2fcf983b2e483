// Package tree holds the editable content block tree of a resume: a forest of
// blocks ordered among siblings by order index (ties broken by id).
//
// A Tree is owned by exactly one editing session and is not safe for
// concurrent use.
package tree

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"rgit-go/internal/model"
)

// IDGenerator produces fresh block identifiers.
type IDGenerator interface {
	New() string
}

// Tree is the working state of a resume's blocks before they are committed.
type Tree struct {
	blocks map[string]*model.Block
	idgen  IDGenerator
	dirty  bool
}

// New creates an empty tree.
func New(idgen IDGenerator) *Tree {
	return &Tree{
		blocks: make(map[string]*model.Block),
		idgen:  idgen,
	}
}

// Load builds a clean tree from existing blocks, validating that they form a
// forest: ids are unique, every parent exists, there are no cycles and order
// indices are unique among siblings.
func Load(blocks []model.Block, idgen IDGenerator) (*Tree, error) {
	t := New(idgen)
	for i := range blocks {
		b := blocks[i].Clone()
		if b.ID == "" {
			return nil, fmt.Errorf("block at position %d has no id", i)
		}
		if !b.Type.Valid() {
			return nil, fmt.Errorf("block %s: %w: %q", b.ID, model.ErrInvalidBlockType, b.Type)
		}
		if _, dup := t.blocks[b.ID]; dup {
			return nil, fmt.Errorf("duplicate block id %s", b.ID)
		}
		t.blocks[b.ID] = &b
	}

	for _, b := range t.blocks {
		if b.ParentID != "" {
			if _, ok := t.blocks[b.ParentID]; !ok {
				return nil, fmt.Errorf("block %s: %w: parent %s does not exist", b.ID, model.ErrInvalidParent, b.ParentID)
			}
		}
	}

	// Every block must be reachable from a root, otherwise it sits on a cycle.
	if reached := len(t.preorder()); reached != len(t.blocks) {
		return nil, fmt.Errorf("%w: %d block(s) form a parent cycle", model.ErrInvalidParent, len(t.blocks)-reached)
	}

	for parentID, children := range t.childIndex() {
		for i := 1; i < len(children); i++ {
			if children[i].OrderIndex == children[i-1].OrderIndex {
				return nil, fmt.Errorf("%w: duplicate order index %d under parent %q",
					model.ErrOrderMismatch, children[i].OrderIndex, parentID)
			}
		}
	}

	return t, nil
}

// AddBlock inserts a new block as the last child of parentID ("" for
// top-level) and returns a copy of it.
func (t *Tree) AddBlock(parentID string, typ model.BlockType, content map[string]string) (model.Block, error) {
	if !typ.Valid() {
		return model.Block{}, fmt.Errorf("%w: %q", model.ErrInvalidBlockType, typ)
	}
	if parentID != "" {
		if _, ok := t.blocks[parentID]; !ok {
			return model.Block{}, fmt.Errorf("%w: %s", model.ErrInvalidParent, parentID)
		}
	}

	order := 0
	for _, sib := range t.children(parentID) {
		if sib.OrderIndex >= order {
			order = sib.OrderIndex + 1
		}
	}

	id := t.idgen.New()
	for t.has(id) {
		id = t.idgen.New()
	}

	b := &model.Block{
		ID:         id,
		ParentID:   parentID,
		Type:       typ,
		OrderIndex: order,
		Layout:     model.DefaultLayout(),
		Content:    maps.Clone(content),
	}
	if b.Content == nil {
		b.Content = map[string]string{}
	}
	t.blocks[id] = b
	t.dirty = true
	return b.Clone(), nil
}

// UpdateBlock merges patch into the block's content payload.
func (t *Tree) UpdateBlock(id string, patch map[string]string) error {
	b, ok := t.blocks[id]
	if !ok {
		return fmt.Errorf("block %s: %w", id, model.ErrNotFound)
	}
	maps.Copy(b.Content, patch)
	t.dirty = true
	return nil
}

// UpdateLayout replaces the block's layout attributes.
func (t *Tree) UpdateLayout(id string, layout model.Layout) error {
	b, ok := t.blocks[id]
	if !ok {
		return fmt.Errorf("block %s: %w", id, model.ErrNotFound)
	}
	b.Layout = layout
	t.dirty = true
	return nil
}

// RemoveBlock deletes the block and all of its descendants.
func (t *Tree) RemoveBlock(id string) error {
	if _, ok := t.blocks[id]; !ok {
		return fmt.Errorf("block %s: %w", id, model.ErrNotFound)
	}

	index := t.childIndex()
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range index[cur] {
			stack = append(stack, c.ID)
		}
		delete(t.blocks, cur)
	}
	t.dirty = true
	return nil
}

// Reorder reassigns the order indices of parentID's direct children to follow
// ids. The ids must be exactly the current set of children.
func (t *Tree) Reorder(parentID string, ids []string) error {
	if parentID != "" {
		if _, ok := t.blocks[parentID]; !ok {
			return fmt.Errorf("%w: %s", model.ErrInvalidParent, parentID)
		}
	}

	children := t.children(parentID)
	if len(children) != len(ids) {
		return fmt.Errorf("%w: got %d id(s), parent has %d child(ren)", model.ErrOrderMismatch, len(ids), len(children))
	}
	current := make(map[string]bool, len(children))
	for _, c := range children {
		current[c.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !current[id] || seen[id] {
			return fmt.Errorf("%w: %s", model.ErrOrderMismatch, id)
		}
		seen[id] = true
	}

	for i, id := range ids {
		t.blocks[id].OrderIndex = i
	}
	t.dirty = true
	return nil
}

// Get returns a copy of the block with the given id.
func (t *Tree) Get(id string) (model.Block, bool) {
	b, ok := t.blocks[id]
	if !ok {
		return model.Block{}, false
	}
	return b.Clone(), true
}

// Children returns copies of parentID's direct children in sibling order.
func (t *Tree) Children(parentID string) []model.Block {
	children := t.children(parentID)
	out := make([]model.Block, len(children))
	for i, c := range children {
		out[i] = c.Clone()
	}
	return out
}

// Blocks returns copies of all blocks in pre-order: roots in sibling order,
// each followed by its subtree.
func (t *Tree) Blocks() []model.Block {
	nodes := t.preorder()
	out := make([]model.Block, len(nodes))
	for i, n := range nodes {
		out[i] = n.block.Clone()
	}
	return out
}

// Walk visits blocks in pre-order with their depth (0 for roots). Returning
// false from fn stops the walk.
func (t *Tree) Walk(fn func(b model.Block, depth int) bool) {
	for _, n := range t.preorder() {
		if !fn(n.block.Clone(), n.depth) {
			return
		}
	}
}

// Len returns the number of blocks in the tree.
func (t *Tree) Len() int {
	return len(t.blocks)
}

// Dirty reports whether the tree has uncommitted changes.
func (t *Tree) Dirty() bool {
	return t.dirty
}

// MarkDirty flags the tree as having uncommitted changes.
func (t *Tree) MarkDirty() {
	t.dirty = true
}

// MarkClean clears the dirty flag, typically after a commit or checkout.
func (t *Tree) MarkClean() {
	t.dirty = false
}

func (t *Tree) has(id string) bool {
	_, ok := t.blocks[id]
	return ok
}

type node struct {
	block *model.Block
	depth int
}

func (t *Tree) preorder() []node {
	index := t.childIndex()
	out := make([]node, 0, len(t.blocks))
	var visit func(parentID string, depth int)
	visit = func(parentID string, depth int) {
		for _, c := range index[parentID] {
			out = append(out, node{block: c, depth: depth})
			visit(c.ID, depth+1)
		}
	}
	visit("", 0)
	return out
}

func (t *Tree) children(parentID string) []*model.Block {
	var out []*model.Block
	for _, b := range t.blocks {
		if b.ParentID == parentID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, compareSiblings)
	return out
}

func (t *Tree) childIndex() map[string][]*model.Block {
	index := make(map[string][]*model.Block)
	for _, b := range t.blocks {
		index[b.ParentID] = append(index[b.ParentID], b)
	}
	for _, children := range index {
		slices.SortFunc(children, compareSiblings)
	}
	return index
}

func compareSiblings(a, b *model.Block) int {
	if c := cmp.Compare(a.OrderIndex, b.OrderIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
