package crawler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/notionsync/internal/notion"
	"github.com/nao1215/notionsync/internal/ratelimit"
)

// fakeAPI serves a small in-memory workspace with the same URL layout and
// pagination contract as the real API. Continuation tokens are offsets.
type fakeAPI struct {
	mu sync.Mutex

	objects  map[string]string   // "blocks/x", "pages/x", "databases/x" -> JSON
	children map[string][]string // block or page id -> child block JSON
	comments map[string][]string // page id -> comment JSON
	rows     map[string][]string // database id -> page/database JSON
	pageSize int

	// throttle holds the number of 429 responses still to send per path.
	throttle   map[string]int
	retryAfter string

	// fail maps a path to a status code returned instead of the content.
	fail map[string]int

	hits map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		objects:    make(map[string]string),
		children:   make(map[string][]string),
		comments:   make(map[string][]string),
		rows:       make(map[string][]string),
		pageSize:   100,
		throttle:   make(map[string]int),
		retryAfter: "1",
		fail:       make(map[string]int),
		hits:       make(map[string]int),
	}
}

func (f *fakeAPI) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// totalHits is the number of requests received on any path.
func (f *fakeAPI) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.hits {
		n += h
	}
	return n
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/")

	f.mu.Lock()
	f.hits[path]++
	if n := f.throttle[path]; n > 0 {
		f.throttle[path] = n - 1
		retryAfter := f.retryAfter
		f.mu.Unlock()
		if retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	if status, ok := f.fail[path]; ok {
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"object":"error","code":"internal_server_error","message":"boom"}`))
		return
	}
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(path, "blocks/") && strings.HasSuffix(path, "/children"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "blocks/"), "/children")
		f.list(w, f.children[id], r.URL.Query().Get("start_cursor"))
	case path == "comments":
		f.list(w, f.comments[r.URL.Query().Get("block_id")], r.URL.Query().Get("start_cursor"))
	case strings.HasPrefix(path, "databases/") && strings.HasSuffix(path, "/query"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "databases/"), "/query")
		var body struct {
			StartCursor string `json:"start_cursor"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		f.list(w, f.rows[id], body.StartCursor)
	default:
		obj, ok := f.objects[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"object":"error","code":"object_not_found","message":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(obj))
	}
}

func (f *fakeAPI) list(w http.ResponseWriter, items []string, cursor string) {
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := min(start+f.pageSize, len(items))
	if start > end {
		start = end
	}

	next := "null"
	hasMore := end < len(items)
	if hasMore {
		next = strconv.Quote(strconv.Itoa(end))
	}
	fmt.Fprintf(w, `{"object":"list","results":[%s],"has_more":%t,"next_cursor":%s}`,
		strings.Join(items[start:end], ","), hasMore, next)
}

// Workspace builders.

func blockJSON(id, parent, typ string, hasChildren bool) string {
	return fmt.Sprintf(`{"object":"block","id":%q,"parent":{"type":"block_id","block_id":%q},"type":%q,%q:{},"has_children":%t}`,
		id, parent, typ, typ, hasChildren)
}

func pageJSON(id string) string {
	return fmt.Sprintf(`{"object":"page","id":%q,"parent":{"type":"workspace","workspace":true},"properties":{}}`, id)
}

func databaseJSON(id string) string {
	return fmt.Sprintf(`{"object":"database","id":%q,"parent":{"type":"workspace","workspace":true},"properties":{},"title":[]}`, id)
}

func commentJSON(id, parent string) string {
	return fmt.Sprintf(`{"object":"comment","id":%q,"parent":{"type":"page_id","page_id":%q},"rich_text":[]}`, id, parent)
}

// addPage registers a page reachable as block id (child_page) and as page id.
func (f *fakeAPI) addPage(id string) {
	f.objects["blocks/"+id] = blockJSON(id, "root", "child_page", true)
	f.objects["pages/"+id] = pageJSON(id)
}

// addDatabase registers a database reachable as block id (child_database).
func (f *fakeAPI) addDatabase(id string) {
	f.objects["blocks/"+id] = blockJSON(id, "root", "child_database", false)
	f.objects["databases/"+id] = databaseJSON(id)
}

func (f *fakeAPI) addChildren(parent string, n int, hasChildren bool) []string {
	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("%s-b%d", parent, i)
		f.children[parent] = append(f.children[parent], blockJSON(ids[i], parent, "paragraph", hasChildren))
	}
	return ids
}

// newTestFetcher starts the fake server and returns a Fetcher talking to it.
func newTestFetcher(t *testing.T, api *fakeAPI, opts ...Option) *Fetcher {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	client, err := notion.NewClient("secret_test", notion.WithBaseURL(server.URL+"/v1/"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	opts = append([]Option{WithLimiter(ratelimit.Unlimited()), WithRetryUnit(10 * time.Millisecond)}, opts...)
	return New(client, opts...)
}
