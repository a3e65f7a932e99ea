package model

import (
	"encoding/json"
	"fmt"
)

// BlockType is the "type" field of a block, e.g. paragraph or child_page.
type BlockType string

// Block types the crawler treats specially. Every other type is handled
// uniformly through HasChildren.
const (
	// BlockTypeChildPage marks a block that is itself a sub-page.
	BlockTypeChildPage BlockType = "child_page"

	// BlockTypeChildDatabase marks a block that is itself an inline database.
	BlockTypeChildDatabase BlockType = "child_database"

	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeToggle    BlockType = "toggle"
	BlockTypeHeading1  BlockType = "heading_1"
	BlockTypeHeading2  BlockType = "heading_2"
	BlockTypeHeading3  BlockType = "heading_3"
)

// Block is a single content block.
type Block struct {
	Common

	// Object is always "block".
	Object string `json:"object"`

	// ChildIndex is the position of the block among its siblings.
	// The API does not send it; the crawler stamps it from the listing
	// offset so that parent/child order can be rebuilt offline.
	ChildIndex int `json:"child_index"`

	// HasChildren reports whether the block has nested blocks.
	HasChildren bool `json:"has_children"`

	// Type is the block type.
	Type BlockType `json:"type"`

	// Data is the type-specific payload, i.e. the value stored under the
	// key named after Type.
	Data json.RawMessage `json:"-"`
}

// ID returns the block identifier.
func (b *Block) ID() string {
	return b.Common.ID
}

// Kind returns KindBlock.
func (b *Block) Kind() Kind {
	return KindBlock
}

// UnmarshalJSON decodes a block and extracts its type-specific payload.
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := checkObject(p.Object, KindBlock); err != nil {
		return err
	}
	if p.Common.ID == "" {
		return fmt.Errorf("%w: block id", ErrMissingField)
	}
	if p.Type == "" {
		return fmt.Errorf("%w: block type", ErrMissingField)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.Data = fields[string(p.Type)]

	*b = Block(p)
	return nil
}

// MarshalJSON encodes the block with its payload under the type key,
// the same shape the API uses.
func (b *Block) MarshalJSON() ([]byte, error) {
	type plain Block
	base, err := json.Marshal((*plain)(b))
	if err != nil {
		return nil, err
	}
	if len(b.Data) == 0 {
		return base, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	fields[string(b.Type)] = b.Data
	return json.Marshal(fields)
}
