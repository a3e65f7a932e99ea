package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Comment is a comment attached to a page or block.
// Comments are leaves: the crawler never derives follow-up work from them.
type Comment struct {
	// Object is always "comment".
	Object string `json:"object"`

	CommentID      string    `json:"id"`
	Parent         Parent    `json:"parent"`
	CreatedTime    time.Time `json:"created_time"`
	CreatedBy      UserRef   `json:"created_by"`
	LastEditedTime time.Time `json:"last_edited_time"`

	// DiscussionID groups comments of one thread.
	DiscussionID string `json:"discussion_id"`

	// RichText is the comment body as an array of rich text objects.
	RichText json.RawMessage `json:"rich_text"`
}

// ID returns the comment identifier.
func (c *Comment) ID() string {
	return c.CommentID
}

// Kind returns KindComment.
func (c *Comment) Kind() Kind {
	return KindComment
}

// UnmarshalJSON decodes a comment and checks the object tag.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := checkObject(v.Object, KindComment); err != nil {
		return err
	}
	if v.CommentID == "" {
		return fmt.Errorf("%w: comment id", ErrMissingField)
	}
	*c = Comment(v)
	return nil
}
