package crawler

import (
	"fmt"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// Task is one unit of crawl work. The set of tasks is closed: FetchSingle
// and FetchListing are the only implementations.
type Task interface {
	fmt.Stringer
	isTask()
}

// FetchSingle retrieves one object by kind and id.
type FetchSingle struct {
	Kind model.Kind
	ID   string
}

func (FetchSingle) isTask() {}

func (t FetchSingle) String() string {
	return fmt.Sprintf("%s %s", t.Kind, t.ID)
}

// FetchListing retrieves the page of a listing described by Cursor.
type FetchListing struct {
	Cursor notion.Cursor
}

func (FetchListing) isTask() {}

func (t FetchListing) String() string {
	return t.Cursor.String()
}

// listing is a shorthand for the first page of a listing.
func listing(l notion.Listing, parentID string) Task {
	return FetchListing{Cursor: notion.NewCursor(l, parentID)}
}

// Result is one item of the crawl output: either an object or an error.
type Result struct {
	Object model.Object
	Err    error
}

// TaskError reports a task that failed for good.
type TaskError struct {
	Task Task
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
