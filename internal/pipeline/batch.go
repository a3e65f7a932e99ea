package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/notionsync/internal/model"
)

// Factory builds the pipeline and the crawl source of one root.
// It is called once per root so that per-run step state is never shared.
type Factory func(rootID string) (*Pipeline, Source)

// RunStore records finished runs. *database.Store implements it.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.SyncReport) error
}

// BatchProcessor syncs several roots concurrently.
type BatchProcessor struct {
	factory Factory

	// concurrency is the maximum number of roots synced at once.
	concurrency int

	runs   RunStore
	newID  func() string
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRunStore saves every finished run's report.
func WithRunStore(runs RunStore) BatchOption {
	return func(b *BatchProcessor) {
		b.runs = runs
	}
}

// WithRunIDFunc replaces the run id generator (random UUIDs by default).
func WithRunIDFunc(fn func() string) BatchOption {
	return func(b *BatchProcessor) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 4,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch syncs every root and returns their reports in input order.
// A failed run does not stop the others; its error is in its report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, roots []string) ([]*model.SyncReport, error) {
	reports := make([]*model.SyncReport, len(roots))
	err := bp.ProcessBatchWithCallback(ctx, roots, func(report *model.SyncReport, index int) {
		reports[index] = report
	})
	return reports, err
}

// ProcessBatchWithCallback syncs every root and calls callback as each run
// finishes. The callback runs on the goroutine of that run.
//
// The returned error is ctx's error if the batch was canceled.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	roots []string,
	callback func(report *model.SyncReport, index int),
) error {
	bp.logger.Info("starting batch",
		"roots", len(roots),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			report := bp.run(ctx, root)
			callback(report, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // runs never return errors

	bp.logger.Info("batch complete",
		"roots", len(roots),
		"elapsed", time.Since(start),
	)
	return ctx.Err()
}

// run syncs one root.
func (bp *BatchProcessor) run(ctx context.Context, root string) *model.SyncReport {
	report := model.NewSyncReport(bp.newID(), root)

	if ctx.Err() != nil {
		report.Canceled = true
		report.Finish()
		return report
	}

	p, source := bp.factory(root)
	if err := p.Execute(ctx, source, report); err != nil && ctx.Err() == nil {
		bp.logger.Warn("sync failed", "root", root, "error", err)
		report.AddError(err)
	}
	report.Finish()

	if bp.runs != nil {
		// saved even when canceled
		saveCtx := context.WithoutCancel(ctx)
		if err := bp.runs.SaveRun(saveCtx, report); err != nil {
			bp.logger.Error("failed to save run", "run", report.RunID, "error", err)
			report.AddError(err)
		}
	}
	return report
}
