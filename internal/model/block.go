package model

import (
	"fmt"
	"maps"
)

// BlockType identifies the kind of content a block carries.
type BlockType string

const (
	BlockPersonalInfo BlockType = "personal-info"
	BlockExperience   BlockType = "experience-entry"
	BlockEducation    BlockType = "education-entry"
	BlockSkillGroup   BlockType = "skill-group"
	BlockProject      BlockType = "project-entry"
	BlockContainer    BlockType = "container"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockPersonalInfo, BlockExperience, BlockEducation, BlockSkillGroup, BlockProject, BlockContainer:
		return true
	}
	return false
}

type Direction string

const (
	DirectionVertical   Direction = "vertical"
	DirectionHorizontal Direction = "horizontal"
)

type Alignment string

const (
	AlignStart  Alignment = "start"
	AlignCenter Alignment = "center"
	AlignEnd    Alignment = "end"
)

// Layout holds presentational attributes of a block. They are carried in
// snapshots but never reported by the diff engine.
type Layout struct {
	Direction     Direction `json:"direction"`
	Spacing       int       `json:"spacing"`
	PaddingTop    int       `json:"padding_top"`
	PaddingRight  int       `json:"padding_right"`
	PaddingBottom int       `json:"padding_bottom"`
	PaddingLeft   int       `json:"padding_left"`
	Alignment     Alignment `json:"alignment"`
}

// DefaultLayout is assigned to newly added blocks.
func DefaultLayout() Layout {
	return Layout{
		Direction: DirectionVertical,
		Spacing:   8,
		Alignment: AlignStart,
	}
}

// Validate checks the enumerated attributes and rejects negative sizes.
func (l Layout) Validate() error {
	switch l.Direction {
	case DirectionVertical, DirectionHorizontal:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidLayout, l.Direction)
	}
	switch l.Alignment {
	case AlignStart, AlignCenter, AlignEnd:
	default:
		return fmt.Errorf("%w: alignment %q", ErrInvalidLayout, l.Alignment)
	}
	for _, n := range []int{l.Spacing, l.PaddingTop, l.PaddingRight, l.PaddingBottom, l.PaddingLeft} {
		if n < 0 {
			return fmt.Errorf("%w: negative size %d", ErrInvalidLayout, n)
		}
	}
	return nil
}

// Block is one node of a resume's content tree.
type Block struct {
	ID         string            `json:"id"`
	ParentID   string            `json:"parent_id,omitempty"` // empty means top-level
	Type       BlockType         `json:"type"`
	OrderIndex int               `json:"order_index"`
	Layout     Layout            `json:"layout"`
	Content    map[string]string `json:"content"`
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() Block {
	c := *b
	c.Content = maps.Clone(b.Content)
	if c.Content == nil {
		c.Content = map[string]string{}
	}
	return c
}
