// Package crawler walks a Notion workspace from one root block and streams
// every object it discovers.
//
// # Architecture
//
// Work is expressed as Tasks: FetchSingle retrieves one block, page or
// database, FetchListing retrieves one page of a paginated listing. Running a
// task yields records and follow-up tasks according to a fixed set of
// discovery rules (see discover.go):
//
//   - a page yields its block children and its comments
//   - a database yields its query results
//   - a child_page block yields the page, a child_database block the database
//   - any other block with children yields its block children
//   - a listing page yields its items, their follow-ups, and the next page
//
// There is no worker pool. Every task owns a small bounded queue for its
// follow-ups and a goroutine that drains it, running the queued tasks one
// after another; each of those owns a queue of its own. The shape of the
// goroutine tree therefore mirrors the content tree. A full queue blocks the
// task that discovers work, which bounds memory on very wide pages.
//
// All goroutines of one crawl belong to a single errgroup.Group. When the
// group is done the output channel is closed.
//
// # Rate limiting and retries
//
// Every request, including retries, first takes a token from the shared
// ratelimit.Limiter. A 429 response makes the task sleep for Retry-After and
// try again with the same cursor. Retries are not capped; each one is logged
// at WARN level with its attempt number.
//
// # Errors
//
// A failing task produces one Result whose Err is a *TaskError and derives no
// follow-ups. Other branches continue.
//
// # Usage
//
//	f := crawler.New(client, crawler.WithLimiter(ratelimit.Default()))
//	for res := range f.Fetch(ctx, rootID) {
//	    if res.Err != nil {
//	        log.Println(res.Err)
//	        continue
//	    }
//	    store(res.Object)
//	}
//
// The consumer must either drain the channel or cancel ctx.
package crawler
