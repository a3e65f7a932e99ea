package crawler

import (
	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// step pairs a record with the tasks derived from it.
// record is nil for the trailing next-page step of a listing.
type step struct {
	record    model.Object
	followUps []Task
}

// discoverSingle applies the discovery rules to a directly fetched object.
func discoverSingle(obj model.Object) []step {
	return []step{{record: obj, followUps: followUps(obj, true)}}
}

// discoverPage applies the discovery rules to one page of a listing.
// Items keep server order; the next page, if any, comes last.
func discoverPage(page *notion.ListPage) []step {
	steps := make([]step, 0, len(page.Items)+1)
	for _, item := range page.Items {
		steps = append(steps, step{record: item, followUps: followUps(item, false)})
	}
	if page.Next != nil {
		steps = append(steps, step{followUps: []Task{FetchListing{Cursor: *page.Next}}})
	}
	return steps
}

// followUps returns the tasks an object leads to. direct is true when the
// object was fetched by id rather than found in a listing; only directly
// fetched pages have their comments listed.
func followUps(obj model.Object, direct bool) []Task {
	switch o := obj.(type) {
	case *model.Page:
		tasks := []Task{listing(notion.ListingBlockChildren, o.ID())}
		if direct {
			tasks = append(tasks, listing(notion.ListingComments, o.ID()))
		}
		return tasks
	case *model.Database:
		return []Task{listing(notion.ListingDatabaseQuery, o.ID())}
	case *model.Block:
		switch {
		case o.Type == model.BlockTypeChildPage:
			return []Task{FetchSingle{Kind: model.KindPage, ID: o.ID()}}
		case o.Type == model.BlockTypeChildDatabase:
			return []Task{FetchSingle{Kind: model.KindDatabase, ID: o.ID()}}
		case o.HasChildren:
			return []Task{listing(notion.ListingBlockChildren, o.ID())}
		}
	}
	return nil
}
