// Package notion is a small read-only client for the Notion REST API.
//
// It models exactly the endpoints notionsync needs to walk a workspace:
//   - GET blocks/{id}, pages/{id}, databases/{id}, users/{id}
//   - GET blocks/{id}/children (paginated)
//   - POST databases/{id}/query (paginated)
//   - GET comments?block_id={id} (paginated)
//
// # Errors
//
// Every failure is classified into one of:
//   - ErrInvalidRequest: the request could not be built (bad token, id, URL)
//   - ErrInvalidResponse: non-2xx status or an undecodable body
//   - *ThrottledError: HTTP 429 with a usable Retry-After header
//   - ErrRequestFailed: transport failure (connection, timeout)
//
// A 429 without a whole-second Retry-After value is an invalid response,
// since the caller has nothing to wait on.
//
// The client does not retry and does not rate limit; both are the caller's
// job (see the crawler package).
//
// # Pagination
//
// Listings are described by a Cursor. FetchPage returns the items of the
// cursor's current page and the cursor of the next page, if any:
//
//	cur := notion.NewCursor(notion.ListingBlockChildren, pageID)
//	for {
//	    page, err := client.FetchPage(ctx, cur)
//	    if err != nil {
//	        return err
//	    }
//	    handle(page.Items)
//	    if page.Next == nil {
//	        break
//	    }
//	    cur = *page.Next
//	}
package notion
