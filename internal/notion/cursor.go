package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nao1215/notionsync/internal/model"
)

// Listing identifies a paginated endpoint.
type Listing int

const (
	// ListingBlockChildren lists the child blocks of a block or page.
	ListingBlockChildren Listing = iota + 1

	// ListingDatabaseQuery lists the rows (pages) and nested databases of a database.
	ListingDatabaseQuery

	// ListingComments lists the comments of a page or block.
	ListingComments
)

// String returns a short name for logs.
func (l Listing) String() string {
	switch l {
	case ListingBlockChildren:
		return "block-children"
	case ListingDatabaseQuery:
		return "database-query"
	case ListingComments:
		return "comments"
	default:
		return fmt.Sprintf("listing(%d)", int(l))
	}
}

// accepts reports whether an item of the given kind may appear in the listing.
func (l Listing) accepts(kind model.Kind) bool {
	switch l {
	case ListingBlockChildren:
		return kind == model.KindBlock
	case ListingDatabaseQuery:
		return kind == model.KindPage || kind == model.KindDatabase
	case ListingComments:
		return kind == model.KindComment
	default:
		return false
	}
}

// Cursor is the state of one paginated listing: where to send the request
// and where the next page starts.
//
// StartIndex is the number of items already returned by earlier pages of the
// same listing. Cursors are values; advancing one produces a new Cursor.
type Cursor struct {
	// Listing is the endpoint kind.
	Listing Listing

	// ParentID is the block, page or database being listed.
	ParentID string

	// URL is the endpoint relative to the API root, without start_cursor.
	URL string

	// Method is GET, or POST for database queries.
	Method string

	// StartCursor is the continuation token. Empty for the first page.
	StartCursor string

	// StartIndex is the position of the first item of this page.
	StartIndex int
}

// NewCursor returns the cursor of the first page of a listing.
func NewCursor(listing Listing, parentID string) Cursor {
	c := Cursor{
		Listing:  listing,
		ParentID: parentID,
		Method:   http.MethodGet,
	}
	switch listing {
	case ListingBlockChildren:
		c.URL = "blocks/" + url.PathEscape(parentID) + "/children"
	case ListingDatabaseQuery:
		c.URL = "databases/" + url.PathEscape(parentID) + "/query"
		c.Method = http.MethodPost
	case ListingComments:
		c.URL = "comments?" + url.Values{"block_id": {parentID}}.Encode()
	}
	return c
}

// String describes the cursor for logs and errors.
func (c Cursor) String() string {
	if c.StartCursor == "" {
		return fmt.Sprintf("%s of %s", c.Listing, c.ParentID)
	}
	return fmt.Sprintf("%s of %s from %d", c.Listing, c.ParentID, c.StartIndex)
}

// ListPage is one page of a listing.
type ListPage struct {
	// Items are the decoded objects in server order.
	Items []model.Object

	// StartIndex is the position of Items[0] within the whole listing.
	StartIndex int

	// Next is the cursor of the following page, nil on the last page.
	Next *Cursor
}

// FetchPage requests the page described by cur.
//
// Blocks are stamped with ChildIndex = StartIndex + their index in the page.
// Items of a kind the listing cannot contain, a missing has_more, or
// has_more without a next_cursor fail with ErrInvalidResponse.
func (c *Client) FetchPage(ctx context.Context, cur Cursor) (*ListPage, error) {
	if cur.ParentID != "" {
		if err := validateID(cur.ParentID); err != nil {
			return nil, err
		}
	}
	if cur.URL == "" {
		return nil, fmt.Errorf("%w: cursor without URL", ErrInvalidRequest)
	}

	u, err := c.resolve(cur.URL)
	if err != nil {
		return nil, err
	}

	var body any
	switch cur.Method {
	case http.MethodGet:
		q := u.Query()
		q.Del("start_cursor")
		if cur.StartCursor != "" {
			q.Set("start_cursor", cur.StartCursor)
		}
		if c.pageSize > 0 {
			q.Set("page_size", fmt.Sprint(c.pageSize))
		}
		u.RawQuery = q.Encode()
	case http.MethodPost:
		payload := map[string]any{}
		if cur.StartCursor != "" {
			payload["start_cursor"] = cur.StartCursor
		}
		if c.pageSize > 0 {
			payload["page_size"] = c.pageSize
		}
		body = payload
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, cur.Method)
	}

	data, err := c.do(ctx, cur.Method, u, body)
	if err != nil {
		return nil, err
	}

	list, err := model.DecodeList(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidResponse, cur, err)
	}
	items, err := list.Items()
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidResponse, cur, err)
	}
	for i, item := range items {
		if !cur.Listing.accepts(item.Kind()) {
			return nil, fmt.Errorf("%w: %s returned a %s", ErrInvalidResponse, cur, item.Kind())
		}
		if b, ok := item.(*model.Block); ok {
			b.ChildIndex = cur.StartIndex + i
		}
	}

	token, more, err := list.Next()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, cur, err)
	}

	page := &ListPage{
		Items:      items,
		StartIndex: cur.StartIndex,
	}
	if more {
		next := cur
		next.StartCursor = token
		next.StartIndex = cur.StartIndex + len(items)
		page.Next = &next
	}
	return page, nil
}
