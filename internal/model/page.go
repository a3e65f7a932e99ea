package model

import (
	"encoding/json"
	"fmt"
)

// Page is a Notion page. Database rows are pages as well.
type Page struct {
	Common

	// Object is always "page".
	Object string `json:"object"`

	// Properties maps property names to their raw property values.
	Properties map[string]json.RawMessage `json:"properties"`

	URL       string          `json:"url"`
	PublicURL *string         `json:"public_url"`
	Icon      json.RawMessage `json:"icon,omitempty"`
	Cover     json.RawMessage `json:"cover,omitempty"`
}

// ID returns the page identifier.
func (p *Page) ID() string {
	return p.Common.ID
}

// Kind returns KindPage.
func (p *Page) Kind() Kind {
	return KindPage
}

// UnmarshalJSON decodes a page and checks the object tag.
func (p *Page) UnmarshalJSON(data []byte) error {
	type plain Page
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := checkObject(v.Object, KindPage); err != nil {
		return err
	}
	if v.Common.ID == "" {
		return fmt.Errorf("%w: page id", ErrMissingField)
	}
	*p = Page(v)
	return nil
}
