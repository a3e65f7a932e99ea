package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/notionsync/internal/crawler"
	"github.com/nao1215/notionsync/internal/model"
)

// Step is applied to every record of a run, in pipeline order.
type Step interface {
	// Do handles one record. A returned error is fatal for the run unless
	// the pipeline continues on error.
	Do(ctx context.Context, obj model.Object, report *model.SyncReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Source starts a crawl bound to ctx and returns its result stream.
// crawler.Fetcher.Fetch has this shape once the root is fixed.
type Source func(ctx context.Context) <-chan crawler.Result

// Pipeline runs steps over a record stream.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps the run going after a step fails.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError makes step failures non-fatal. They are recorded in
// the report like failed crawl tasks.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Process applies every step to one record.
func (p *Pipeline) Process(ctx context.Context, obj model.Object, report *model.SyncReport) error {
	for _, step := range p.steps {
		if err := step.Do(ctx, obj, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"kind", obj.Kind(),
				"id", obj.ID(),
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			report.AddError(err)
		}
	}
	return nil
}

// Execute starts the crawl from source and feeds every record through the
// steps until the stream ends.
//
// On a fatal step error the crawl is canceled and drained before Execute
// returns. When ctx is canceled the report is marked Canceled and ctx's
// error is returned.
func (p *Pipeline) Execute(ctx context.Context, source Source, report *model.SyncReport) error {
	crawlCtx, cancel := context.WithCancel(ctx)
	results := source(crawlCtx)
	defer func() {
		cancel()
		for range results {
		}
	}()

	p.logger.Info("sync started", "run", report.RunID, "root", report.RootID)

	for res := range results {
		if res.Err != nil {
			p.logger.Warn("task failed", "run", report.RunID, "error", res.Err)
			report.AddError(res.Err)
			continue
		}
		if err := p.Process(ctx, res.Object, report); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		report.Canceled = true
		p.logger.Warn("sync canceled", "run", report.RunID, "reason", err)
		return err
	}

	p.logger.Info("sync finished",
		"run", report.RunID,
		"records", report.Total(),
		"duplicates", report.Duplicates,
		"errors", len(report.Errors),
	)
	return nil
}
