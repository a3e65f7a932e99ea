package crawler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// execute runs one task to a final outcome.
func (f *Fetcher) execute(ctx context.Context, task Task) ([]step, error) {
	var steps []step
	err := f.retry(ctx, task, func() error {
		var err error
		steps, err = f.fetch(ctx, task)
		return err
	})
	return steps, err
}

// Retrieve fetches one object outside a crawl, with the same pacing and
// throttle handling as crawl tasks.
func (f *Fetcher) Retrieve(ctx context.Context, kind model.Kind, id string) (model.Object, error) {
	var obj model.Object
	err := f.retry(ctx, FetchSingle{Kind: kind, ID: id}, func() error {
		var err error
		obj, err = f.api.Retrieve(ctx, kind, id)
		return err
	})
	return obj, err
}

// retry calls attempt after taking a limiter token, and again after the
// server's cool-down for as long as it is throttled. The number of attempts
// is not limited.
func (f *Fetcher) retry(ctx context.Context, task Task, attempt func() error) error {
	for n := 1; ; n++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		err := attempt()

		var throttled *notion.ThrottledError
		if !errors.As(err, &throttled) {
			return err
		}

		wait := retryDelay(throttled.RetryAfter, f.retryUnit)
		f.logger.Warn("request throttled, retrying",
			"task", task.String(),
			"attempt", n,
			"retry_after", wait,
		)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// retryDelay converts a Retry-After hint to a duration, saturating instead
// of overflowing.
func retryDelay(units uint64, unit time.Duration) time.Duration {
	if unit <= 0 {
		return 0
	}
	if units > uint64(math.MaxInt64/int64(unit)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(units) * unit
}

// fetch issues the request of a single attempt.
func (f *Fetcher) fetch(ctx context.Context, task Task) ([]step, error) {
	switch t := task.(type) {
	case FetchSingle:
		obj, err := f.api.Retrieve(ctx, t.Kind, t.ID)
		if err != nil {
			return nil, err
		}
		return discoverSingle(obj), nil
	case FetchListing:
		page, err := f.api.FetchPage(ctx, t.Cursor)
		if err != nil {
			return nil, err
		}
		return discoverPage(page), nil
	default:
		return nil, fmt.Errorf("%w: unknown task %T", notion.ErrInvalidRequest, task)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
