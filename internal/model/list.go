package model

import (
	"encoding/json"
	"fmt"
)

// List is one page of a paginated listing.
//
// The API always sends has_more. When it is true, next_cursor carries the
// opaque token for the following page.
type List struct {
	// Object is always "list".
	Object string `json:"object"`

	// Results holds the raw items of this page, decoded lazily by Items.
	Results []json.RawMessage `json:"results"`

	// NextCursor is the continuation token, if any.
	NextCursor *string `json:"next_cursor"`

	// HasMore is nil when the field was absent from the payload.
	HasMore *bool `json:"has_more"`

	// Type names the item type of the listing, e.g. "block" or "comment".
	Type string `json:"type,omitempty"`
}

// DecodeList decodes a listing envelope.
// A payload without has_more is rejected.
func DecodeList(data []byte) (*List, error) {
	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	if err := checkObject(l.Object, KindList); err != nil {
		return nil, err
	}
	if l.HasMore == nil {
		return nil, fmt.Errorf("%w: has_more", ErrMissingField)
	}
	return &l, nil
}

// Next returns the continuation token of the listing.
// ok is false when this is the last page. has_more=false wins over a
// next_cursor that happens to be present; has_more=true without a
// usable cursor is an error.
func (l *List) Next() (cursor string, ok bool, err error) {
	if l.HasMore == nil {
		return "", false, fmt.Errorf("%w: has_more", ErrMissingField)
	}
	if !*l.HasMore {
		return "", false, nil
	}
	if l.NextCursor == nil || *l.NextCursor == "" {
		return "", false, fmt.Errorf("%w: next_cursor with has_more=true", ErrMissingField)
	}
	return *l.NextCursor, true, nil
}

// Items decodes every result of the page.
func (l *List) Items() ([]Object, error) {
	items := make([]Object, 0, len(l.Results))
	for i, raw := range l.Results {
		obj, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode list item %d: %w", i, err)
		}
		items = append(items, obj)
	}
	return items, nil
}
