package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/notionsync/internal/model"
)

// CommonRow holds the columns shared by blocks, pages and databases.
type CommonRow struct {
	ID             string `db:"id"`
	ParentType     string `db:"parent_type"`
	ParentID       string `db:"parent_id"`
	CreatedTime    string `db:"created_time"`
	CreatedBy      string `db:"created_by"`
	LastEditedTime string `db:"last_edited_time"`
	LastEditedBy   string `db:"last_edited_by"`
	Archived       bool   `db:"archived"`
	InTrash        bool   `db:"in_trash"`
}

var commonColumns = []string{
	"id", "parent_type", "parent_id",
	"created_time", "created_by", "last_edited_time", "last_edited_by",
	"archived", "in_trash",
}

func newCommonRow(c model.Common) CommonRow {
	return CommonRow{
		ID:             c.ID,
		ParentType:     string(c.Parent.Type),
		ParentID:       c.Parent.ID(),
		CreatedTime:    formatTime(c.CreatedTime),
		CreatedBy:      c.CreatedBy.ID,
		LastEditedTime: formatTime(c.LastEditedTime),
		LastEditedBy:   c.LastEditedBy.ID,
		Archived:       c.Archived,
		InTrash:        c.InTrash,
	}
}

// BlockRow is a stored block.
type BlockRow struct {
	CommonRow
	ChildIndex  int            `db:"child_index"`
	HasChildren bool           `db:"has_children"`
	BlockType   string         `db:"block_type"`
	TypeData    sql.NullString `db:"type_data"`
	RunID       string         `db:"run_id"`
}

// PageRow is a stored page.
type PageRow struct {
	CommonRow
	Properties sql.NullString `db:"properties"`
	URL        string         `db:"url"`
	PublicURL  sql.NullString `db:"public_url"`
	Icon       sql.NullString `db:"icon"`
	Cover      sql.NullString `db:"cover"`
	RunID      string         `db:"run_id"`
}

// DatabaseRow is a stored database.
type DatabaseRow struct {
	PageRow
	IsInline    bool           `db:"is_inline"`
	Title       sql.NullString `db:"title"`
	Description sql.NullString `db:"description"`
}

// CommentRow is a stored comment.
type CommentRow struct {
	ID             string         `db:"id"`
	ParentType     string         `db:"parent_type"`
	ParentID       string         `db:"parent_id"`
	CreatedTime    string         `db:"created_time"`
	CreatedBy      string         `db:"created_by"`
	LastEditedTime string         `db:"last_edited_time"`
	DiscussionID   string         `db:"discussion_id"`
	RichText       sql.NullString `db:"rich_text"`
	RunID          string         `db:"run_id"`
}

// UserRow is a stored user.
type UserRow struct {
	ID        string         `db:"id"`
	Type      string         `db:"type"`
	Name      sql.NullString `db:"name"`
	AvatarURL sql.NullString `db:"avatar_url"`
	RunID     string         `db:"run_id"`
}

var (
	blockColumns = append(append([]string{}, commonColumns...),
		"child_index", "has_children", "block_type", "type_data", "run_id")
	pageColumns = append(append([]string{}, commonColumns...),
		"properties", "url", "public_url", "icon", "cover", "run_id")
	databaseColumns = append(append([]string{}, pageColumns...),
		"is_inline", "title", "description")
	commentColumns = []string{
		"id", "parent_type", "parent_id", "created_time", "created_by",
		"last_edited_time", "discussion_id", "rich_text", "run_id",
	}
	userColumns = []string{"id", "type", "name", "avatar_url", "run_id"}

	upsertBlock    = upsertSQL("blocks", "id", blockColumns)
	upsertPage     = upsertSQL("pages", "id", pageColumns)
	upsertDatabase = upsertSQL("databases", "id", databaseColumns)
	upsertComment  = upsertSQL("comments", "id", commentColumns)
	upsertUser     = upsertSQL("users", "id", userColumns)
)

// Save upserts a record into the table of its kind. runID marks the sync run
// that wrote the row last.
func (s *Store) Save(ctx context.Context, runID string, obj model.Object) error {
	var (
		query string
		row   any
	)

	switch o := obj.(type) {
	case *model.Block:
		query = upsertBlock
		row = BlockRow{
			CommonRow:   newCommonRow(o.Common),
			ChildIndex:  o.ChildIndex,
			HasChildren: o.HasChildren,
			BlockType:   string(o.Type),
			TypeData:    nullJSON(o.Data),
			RunID:       runID,
		}
	case *model.Page:
		query = upsertPage
		page, err := newPageRow(o.Common, o.Properties, o.URL, o.PublicURL, o.Icon, o.Cover, runID)
		if err != nil {
			return err
		}
		row = page
	case *model.Database:
		query = upsertDatabase
		page, err := newPageRow(o.Common, o.Properties, o.URL, o.PublicURL, o.Icon, o.Cover, runID)
		if err != nil {
			return err
		}
		row = DatabaseRow{
			PageRow:     page,
			IsInline:    o.IsInline,
			Title:       nullJSON(o.Title),
			Description: nullJSON(o.Description),
		}
	case *model.Comment:
		query = upsertComment
		row = CommentRow{
			ID:             o.CommentID,
			ParentType:     string(o.Parent.Type),
			ParentID:       o.Parent.ID(),
			CreatedTime:    formatTime(o.CreatedTime),
			CreatedBy:      o.CreatedBy.ID,
			LastEditedTime: formatTime(o.LastEditedTime),
			DiscussionID:   o.DiscussionID,
			RichText:       nullJSON(o.RichText),
			RunID:          runID,
		}
	case *model.User:
		query = upsertUser
		row = UserRow{
			ID:        o.UserID,
			Type:      o.Type,
			Name:      nullString(o.Name),
			AvatarURL: nullString(o.AvatarURL),
			RunID:     runID,
		}
	default:
		return fmt.Errorf("cannot store %T", obj)
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", obj.Kind(), obj.ID(), err)
	}
	return nil
}

func newPageRow(c model.Common, props map[string]json.RawMessage, url string, publicURL *string, icon, cover json.RawMessage, runID string) (PageRow, error) {
	row := PageRow{
		CommonRow: newCommonRow(c),
		URL:       url,
		PublicURL: nullString(publicURL),
		Icon:      nullJSON(icon),
		Cover:     nullJSON(cover),
		RunID:     runID,
	}
	if props != nil {
		data, err := json.Marshal(props)
		if err != nil {
			return PageRow{}, fmt.Errorf("failed to serialize properties of %s: %w", c.ID, err)
		}
		row.Properties = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

// Block returns the stored block with the given id.
func (s *Store) Block(ctx context.Context, id string) (*BlockRow, error) {
	var row BlockRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM blocks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", id, err)
	}
	return &row, nil
}

// ChildBlocks returns the blocks under parentID in sibling order.
func (s *Store) ChildBlocks(ctx context.Context, parentID string) ([]BlockRow, error) {
	var rows []BlockRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM blocks WHERE parent_id = ? ORDER BY child_index", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parentID, err)
	}
	return rows, nil
}

// Page returns the stored page with the given id.
func (s *Store) Page(ctx context.Context, id string) (*PageRow, error) {
	var row PageRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM pages WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", id, err)
	}
	return &row, nil
}

// Comments returns the comments attached to parentID.
func (s *Store) Comments(ctx context.Context, parentID string) ([]CommentRow, error) {
	var rows []CommentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM comments WHERE parent_id = ? ORDER BY created_time, id", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of %s: %w", parentID, err)
	}
	return rows, nil
}
