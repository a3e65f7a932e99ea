package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
	"github.com/nao1215/notionsync/internal/ratelimit"
)

// DefaultQueueSize is the capacity of every follow-up queue and of the
// output channel.
const DefaultQueueSize = 10

// API is the part of the Notion client the crawler uses.
// *notion.Client implements it.
type API interface {
	Retrieve(ctx context.Context, kind model.Kind, id string) (model.Object, error)
	FetchPage(ctx context.Context, cur notion.Cursor) (*notion.ListPage, error)
}

// Fetcher runs crawls. A Fetcher holds no per-crawl state and may run
// several crawls at once; they then share its limiter.
type Fetcher struct {
	api     API
	limiter ratelimit.Limiter
	logger  *slog.Logger

	queueSize  int
	outputSize int

	// retryUnit is the length of one Retry-After unit.
	retryUnit time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLimiter sets the limiter every request waits on.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithQueueSize sets the capacity of the per-task follow-up queues.
func WithQueueSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.queueSize = n
		}
	}
}

// WithOutputSize sets the capacity of the output channel.
func WithOutputSize(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.outputSize = n
		}
	}
}

// WithRetryUnit sets what one second of Retry-After means. Tests shorten it.
func WithRetryUnit(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.retryUnit = d
		}
	}
}

// New creates a Fetcher. Without WithLimiter it uses ratelimit.Default().
func New(api API, opts ...Option) *Fetcher {
	f := &Fetcher{
		api:        api,
		logger:     slog.Default(),
		queueSize:  DefaultQueueSize,
		outputSize: DefaultQueueSize,
		retryUnit:  time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.limiter == nil {
		f.limiter = ratelimit.Default()
	}
	return f
}

// Fetch crawls everything reachable from the block rootID. Pages and
// databases are addressable as blocks, so rootID may be either.
//
// The returned channel is closed once every task has finished, or soon after
// ctx is canceled. Objects reachable through several parents are emitted
// once per parent.
func (f *Fetcher) Fetch(ctx context.Context, rootID string) <-chan Result {
	return f.Run(ctx, FetchSingle{Kind: model.KindBlock, ID: rootID})
}

// Run crawls from an arbitrary root task.
func (f *Fetcher) Run(ctx context.Context, root Task) <-chan Result {
	out := make(chan Result, f.outputSize)

	var g errgroup.Group
	g.Go(func() error {
		f.run(ctx, &g, root, out)
		return nil
	})
	go func() {
		_ = g.Wait() //nolint:errcheck // goroutines never return errors; failures go to out
		close(out)
	}()

	return out
}

// run executes task and hands its follow-ups to a fresh queue. The queue is
// drained by its own goroutine, which runs the queued tasks in order.
func (f *Fetcher) run(ctx context.Context, g *errgroup.Group, task Task, out chan<- Result) {
	queue := make(chan Task, f.queueSize)
	g.Go(func() error {
		for next := range queue {
			f.run(ctx, g, next, out)
		}
		return nil
	})
	defer close(queue)

	f.process(ctx, task, queue, out)
}

// process executes task and publishes what it found. Follow-ups of a record
// are queued before the record itself is emitted.
func (f *Fetcher) process(ctx context.Context, task Task, queue chan<- Task, out chan<- Result) {
	f.logger.Debug("task started", "task", task.String())

	steps, err := f.execute(ctx, task)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		f.logger.Debug("task failed", "task", task.String(), "error", err)
		f.emit(ctx, out, Result{Err: &TaskError{Task: task, Err: err}})
		return
	}

	for _, s := range steps {
		for _, next := range s.followUps {
			select {
			case queue <- next:
			case <-ctx.Done():
				return
			}
		}
		if s.record != nil && !f.emit(ctx, out, Result{Object: s.record}) {
			return
		}
	}
}

// emit sends r unless ctx is done. It reports whether r was sent.
func (f *Fetcher) emit(ctx context.Context, out chan<- Result, r Result) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
