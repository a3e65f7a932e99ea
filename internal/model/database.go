package model

import (
	"encoding/json"
	"fmt"
)

// Database is a Notion database.
type Database struct {
	Common

	// Object is always "database".
	Object string `json:"object"`

	// Properties is the database schema keyed by property name.
	Properties map[string]json.RawMessage `json:"properties"`

	URL       string          `json:"url"`
	PublicURL *string         `json:"public_url"`
	Icon      json.RawMessage `json:"icon,omitempty"`
	Cover     json.RawMessage `json:"cover,omitempty"`

	// IsInline is true when the database is embedded in a page.
	IsInline bool `json:"is_inline"`

	// Title and Description are arrays of rich text objects.
	Title       json.RawMessage `json:"title,omitempty"`
	Description json.RawMessage `json:"description,omitempty"`
}

// ID returns the database identifier.
func (d *Database) ID() string {
	return d.Common.ID
}

// Kind returns KindDatabase.
func (d *Database) Kind() Kind {
	return KindDatabase
}

// UnmarshalJSON decodes a database and checks the object tag.
func (d *Database) UnmarshalJSON(data []byte) error {
	type plain Database
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := checkObject(v.Object, KindDatabase); err != nil {
		return err
	}
	if v.Common.ID == "" {
		return fmt.Errorf("%w: database id", ErrMissingField)
	}
	*d = Database(v)
	return nil
}
