package model

import (
	"time"
)

// Kind identifies the type of a Notion object.
// The values match the "object" field of the API's JSON payloads.
type Kind string

const (
	// KindBlock is a content block. Pages and databases are also addressable
	// as blocks of type child_page and child_database.
	KindBlock Kind = "block"

	// KindPage is a page, either a standalone page or a database row.
	KindPage Kind = "page"

	// KindDatabase is a database (inline or full page).
	KindDatabase Kind = "database"

	// KindUser is a workspace member or bot.
	KindUser Kind = "user"

	// KindComment is a comment attached to a page or block.
	KindComment Kind = "comment"

	// KindList is the envelope of a paginated listing.
	KindList Kind = "list"
)

// String returns the kind as it appears on the wire.
func (k Kind) String() string {
	return string(k)
}

// Kinds returns the record kinds in a stable order for reporting.
func Kinds() []Kind {
	return []Kind{KindPage, KindDatabase, KindBlock, KindComment, KindUser}
}

// Object is implemented by every record the crawler can emit.
type Object interface {
	// ID returns the Notion identifier of the object.
	ID() string

	// Kind returns the object's kind.
	Kind() Kind
}

// ParentType describes what kind of object a parent reference points to.
type ParentType string

const (
	// ParentPage means the parent is a page.
	ParentPage ParentType = "page_id"

	// ParentBlock means the parent is a block.
	ParentBlock ParentType = "block_id"

	// ParentDatabase means the parent is a database.
	ParentDatabase ParentType = "database_id"

	// ParentWorkspace means the object lives at the top level of the workspace.
	ParentWorkspace ParentType = "workspace"
)

// Parent is a reference from an object to the object that contains it.
type Parent struct {
	Type       ParentType `json:"type"`
	PageID     string     `json:"page_id,omitempty"`
	BlockID    string     `json:"block_id,omitempty"`
	DatabaseID string     `json:"database_id,omitempty"`
	Workspace  bool       `json:"workspace,omitempty"`
}

// ID returns the identifier of the parent object.
// Workspace parents have no identifier and return "workspace".
func (p Parent) ID() string {
	switch p.Type {
	case ParentPage:
		return p.PageID
	case ParentBlock:
		return p.BlockID
	case ParentDatabase:
		return p.DatabaseID
	case ParentWorkspace:
		return "workspace"
	default:
		return ""
	}
}

// UserRef is the partial user embedded in created_by and last_edited_by.
type UserRef struct {
	Object string `json:"object"`
	ID     string `json:"id"`
}

// Common holds the fields shared by blocks, pages and databases.
type Common struct {
	// ID is the object identifier (a UUID, with or without dashes).
	ID string `json:"id"`

	// Parent points at the containing object.
	Parent Parent `json:"parent"`

	CreatedTime    time.Time `json:"created_time"`
	CreatedBy      UserRef   `json:"created_by"`
	LastEditedTime time.Time `json:"last_edited_time"`
	LastEditedBy   UserRef   `json:"last_edited_by"`

	// Archived and InTrash mirror the API flags; archived objects are still
	// returned by the read endpoints.
	Archived bool `json:"archived"`
	InTrash  bool `json:"in_trash"`
}
