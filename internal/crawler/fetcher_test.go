package crawler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// collect drains a crawl.
func collect(t *testing.T, ch <-chan Result) ([]model.Object, []error) {
	t.Helper()

	var (
		objects []model.Object
		errs    []error
	)
	timeout := time.After(10 * time.Second)
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return objects, errs
			}
			if res.Err != nil {
				errs = append(errs, res.Err)
				continue
			}
			objects = append(objects, res.Object)
		case <-timeout:
			t.Fatal("crawl did not finish")
		}
	}
}

func countKind(objects []model.Object, kind model.Kind) int {
	n := 0
	for _, o := range objects {
		if o.Kind() == kind {
			n++
		}
	}
	return n
}

// childIndexes returns the positions of the blocks whose parent is parentID.
func childIndexes(objects []model.Object, parentID string) []int {
	var idx []int
	for _, o := range objects {
		if b, ok := o.(*model.Block); ok && b.Parent.ID() == parentID {
			idx = append(idx, b.ChildIndex)
		}
	}
	sort.Ints(idx)
	return idx
}

func assertPositions(t *testing.T, got []int, n int) {
	t.Helper()

	if len(got) != n {
		t.Fatalf("got %d positions, expected %d: %v", len(got), n, got)
	}
	for i, p := range got {
		if p != i {
			t.Fatalf("positions are not 0..%d: %v", n-1, got)
		}
	}
}

// TestFetchPageWithThreeBlocks crawls a root that is a page with three
// top-level blocks and no comments. The crawl starts by fetching the root as
// a block, and that child_page block is emitted too, so four blocks arrive:
// the root plus its three children.
func TestFetchPageWithThreeBlocks(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addPage("P1")
	api.addChildren("P1", 3, false)

	objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := countKind(objects, model.KindPage); got != 1 {
		t.Errorf("got %d pages, expected 1", got)
	}
	if got := countKind(objects, model.KindComment); got != 0 {
		t.Errorf("got %d comments, expected 0", got)
	}
	if got := countKind(objects, model.KindBlock); got != 4 {
		t.Errorf("got %d blocks, expected 4", got)
	}
	assertPositions(t, childIndexes(objects, "P1"), 3)
}

// TestFetchSplitListing checks positions across page boundaries.
func TestFetchSplitListing(t *testing.T) {
	t.Parallel()

	t.Run("25 items as 20 and 5", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.pageSize = 20
		api.addPage("P1")
		api.addChildren("P1", 25, false)

		objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		assertPositions(t, childIndexes(objects, "P1"), 25)
		if got := api.hitCount("blocks/P1/children"); got != 2 {
			t.Errorf("got %d listing requests, expected 2", got)
		}
	})

	for _, pageSize := range []int{1, 3, 7, 24, 25, 100} {
		t.Run("page size "+strconv.Itoa(pageSize), func(t *testing.T) {
			t.Parallel()

			api := newFakeAPI()
			api.pageSize = pageSize
			api.addPage("P1")
			api.addChildren("P1", 25, false)

			objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			assertPositions(t, childIndexes(objects, "P1"), 25)
		})
	}
}

// TestFetchThrottled checks that a 429 with Retry-After is waited out.
func TestFetchThrottled(t *testing.T) {
	t.Parallel()

	t.Run("single block retried after cool-down", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.objects["blocks/B1"] = blockJSON("B1", "x", "paragraph", false)
		api.throttle["blocks/B1"] = 1
		api.retryAfter = "2"

		start := time.Now()
		objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "B1"))
		elapsed := time.Since(start)

		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if len(objects) != 1 || objects[0].ID() != "B1" {
			t.Fatalf("got %v, expected the block once", objects)
		}
		// retry unit is 10ms in tests
		if elapsed < 20*time.Millisecond {
			t.Errorf("retried after %v, expected at least 20ms", elapsed)
		}
		if got := api.hitCount("blocks/B1"); got != 2 {
			t.Errorf("got %d requests, expected 2", got)
		}
	})

	t.Run("listing page retried with the same cursor", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.pageSize = 4
		api.addPage("P1")
		api.addChildren("P1", 10, false)
		api.throttle["blocks/P1/children"] = 3

		objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		assertPositions(t, childIndexes(objects, "P1"), 10)
	})

	t.Run("429 without Retry-After fails the task", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.objects["blocks/B1"] = blockJSON("B1", "x", "paragraph", false)
		api.throttle["blocks/B1"] = 1
		api.retryAfter = ""

		objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "B1"))
		if len(objects) != 0 {
			t.Errorf("got %d objects, expected none", len(objects))
		}
		if len(errs) != 1 || !errors.Is(errs[0], notion.ErrInvalidResponse) {
			t.Fatalf("expected one invalid response error, got %v", errs)
		}
	})
}

// TestFetchFailureIsolation checks that a failing task affects only its subtree.
func TestFetchFailureIsolation(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addPage("P1")
	ids := api.addChildren("P1", 3, true)
	for _, id := range ids {
		api.addChildren(id, 2, false)
	}
	api.fail["blocks/"+ids[1]+"/children"] = http.StatusInternalServerError

	objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))

	if len(errs) != 1 {
		t.Fatalf("got %d errors, expected 1: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], notion.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", errs[0])
	}
	var te *TaskError
	if !errors.As(errs[0], &te) {
		t.Fatalf("expected *TaskError, got %T", errs[0])
	}
	fl, ok := te.Task.(FetchListing)
	if !ok || fl.Cursor.ParentID != ids[1] {
		t.Errorf("got failing task %v", te.Task)
	}

	assertPositions(t, childIndexes(objects, ids[0]), 2)
	assertPositions(t, childIndexes(objects, ids[2]), 2)
	if got := childIndexes(objects, ids[1]); len(got) != 0 {
		t.Errorf("failed listing yielded %v", got)
	}
	if got := api.hitCount("blocks/" + ids[1] + "/children"); got != 1 {
		t.Errorf("failed listing requested %d times, expected 1", got)
	}
}

// TestFetchTransitive checks that nested blocks, sub-pages, comments and
// inline databases are all reached.
func TestFetchTransitive(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.pageSize = 2
	api.addPage("P1")

	// P1: toggle with two nested levels, a sub-page, an inline database
	api.children["P1"] = []string{
		blockJSON("T1", "P1", "toggle", true),
		blockJSON("S1", "P1", "child_page", true),
		blockJSON("D1", "P1", "child_database", false),
	}
	api.children["T1"] = []string{blockJSON("T2", "T1", "toggle", true)}
	api.children["T2"] = []string{blockJSON("L1", "T2", "paragraph", false)}
	api.objects["pages/S1"] = pageJSON("S1")
	api.addChildren("S1", 3, false)
	api.comments["P1"] = []string{commentJSON("C1", "P1"), commentJSON("C2", "P1"), commentJSON("C3", "P1")}
	api.comments["S1"] = []string{commentJSON("C4", "S1")}

	api.objects["databases/D1"] = databaseJSON("D1")
	api.rows["D1"] = []string{pageJSON("R1"), pageJSON("R2"), databaseJSON("D2")}
	api.addChildren("R1", 1, false)
	api.rows["D2"] = []string{pageJSON("R3")}

	objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	seen := make(map[string]bool)
	for _, o := range objects {
		seen[string(o.Kind())+":"+o.ID()] = true
	}
	for _, want := range []string{
		"page:P1", "block:T1", "block:T2", "block:L1",
		"block:S1", "page:S1", "block:S1-b0", "block:S1-b2",
		"comment:C1", "comment:C3", "comment:C4",
		"block:D1", "database:D1", "page:R1", "page:R2", "database:D2", "page:R3",
		"block:R1-b0",
	} {
		if !seen[want] {
			t.Errorf("missing %s", want)
		}
	}

	// database rows are listed for their blocks only
	if got := api.hitCount("comments"); got != 3 {
		t.Errorf("got %d comment requests, expected 3 (P1 twice paginated, S1 once)", got)
	}
}

// TestFetchChildPageBlock checks that a child_page block leads to a page
// fetch rather than a direct children listing.
func TestFetchChildPageBlock(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.objects["blocks/B1"] = blockJSON("B1", "x", "paragraph", true)
	api.children["B1"] = []string{blockJSON("S1", "B1", "child_page", true)}
	api.objects["pages/S1"] = pageJSON("S1")
	api.addChildren("S1", 2, false)

	objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "B1"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := api.hitCount("pages/S1"); got != 1 {
		t.Errorf("got %d page requests, expected 1", got)
	}
	// the page's children are listed once, through the page
	if got := api.hitCount("blocks/S1/children"); got != 1 {
		t.Errorf("got %d children requests, expected 1", got)
	}
	assertPositions(t, childIndexes(objects, "S1"), 2)
}

// TestFetchDuplicates checks that an object reachable twice is emitted twice.
func TestFetchDuplicates(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addPage("P1")
	api.children["P1"] = []string{
		blockJSON("S1", "P1", "child_page", true),
		blockJSON("S1", "P1", "child_page", true),
	}
	api.objects["pages/S1"] = pageJSON("S1")

	objects, errs := collect(t, newTestFetcher(t, api).Fetch(context.Background(), "P1"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	n := 0
	for _, o := range objects {
		if o.Kind() == model.KindPage && o.ID() == "S1" {
			n++
		}
	}
	if n != 2 {
		t.Errorf("got page S1 %d times, expected 2", n)
	}
}

// TestFetchRootNotFound checks that a missing root ends the crawl with one error.
func TestFetchRootNotFound(t *testing.T) {
	t.Parallel()

	objects, errs := collect(t, newTestFetcher(t, newFakeAPI()).Fetch(context.Background(), "nope"))
	if len(objects) != 0 || len(errs) != 1 {
		t.Fatalf("got %d objects and %v", len(objects), errs)
	}
	var re *notion.ResponseError
	if !errors.As(errs[0], &re) || re.StatusCode != http.StatusNotFound {
		t.Errorf("expected a 404 response error, got %v", errs[0])
	}
}

// TestFetchCancel checks that cancellation closes the output promptly.
func TestFetchCancel(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addPage("P1")
	api.addChildren("P1", 1, false)
	// keeps the crawl in a long retry sleep
	api.throttle["blocks/P1/children"] = 1
	api.retryAfter = "3600"

	ctx, cancel := context.WithCancel(context.Background())
	ch := newTestFetcher(t, api, WithRetryUnit(time.Second)).Fetch(ctx, "P1")

	// block and page arrive before the listing is throttled
	for range 2 {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("no result before cancel")
		}
	}
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			if res.Err != nil {
				t.Errorf("no error expected after cancel, got %v", res.Err)
			}
		case <-deadline:
			t.Fatal("output not closed after cancel")
		}
	}
}

// TestFetchSmallQueues checks that tiny queues only slow the crawl down.
func TestFetchSmallQueues(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.pageSize = 5
	api.addPage("P1")
	ids := api.addChildren("P1", 30, true)
	for _, id := range ids {
		api.addChildren(id, 3, false)
	}

	f := newTestFetcher(t, api, WithQueueSize(1), WithOutputSize(0))
	objects, errs := collect(t, f.Fetch(context.Background(), "P1"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	assertPositions(t, childIndexes(objects, "P1"), 30)
	for _, id := range ids {
		assertPositions(t, childIndexes(objects, id), 3)
	}
}

// countingLimiter never blocks and counts the tokens taken.
type countingLimiter struct {
	waits atomic.Int64
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.waits.Add(1)
	return nil
}

func (l *countingLimiter) Limit() rate.Limit {
	return rate.Inf
}

// TestFetchWaitsBeforeEveryRequest checks that one shared limiter is
// consulted before each request, throttled retries included, across
// sibling branches running at the same time.
func TestFetchWaitsBeforeEveryRequest(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.pageSize = 2
	api.addPage("P1")
	ids := api.addChildren("P1", 5, true)
	for _, id := range ids {
		api.addChildren(id, 3, false)
	}
	api.comments["P1"] = []string{commentJSON("C1", "P1"), commentJSON("C2", "P1"), commentJSON("C3", "P1")}
	api.throttle["blocks/"+ids[1]+"/children"] = 2
	api.throttle["pages/P1"] = 1
	api.retryAfter = "0"

	lim := &countingLimiter{}
	objects, errs := collect(t, newTestFetcher(t, api, WithLimiter(lim)).Fetch(context.Background(), "P1"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	assertPositions(t, childIndexes(objects, "P1"), 5)
	for _, id := range ids {
		assertPositions(t, childIndexes(objects, id), 3)
	}

	hits := api.totalHits()
	if got := lim.waits.Load(); got != int64(hits) {
		t.Errorf("got %d limiter waits, expected %d (one per request)", got, hits)
	}
	// 2 throttled + 2 pages of 3 children
	if got := api.hitCount("blocks/" + ids[1] + "/children"); got != 4 {
		t.Errorf("got %d requests for the throttled listing, expected 4", got)
	}
	if got := api.hitCount("pages/P1"); got != 2 {
		t.Errorf("got %d page requests, expected 2", got)
	}
}
