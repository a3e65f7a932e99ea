package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/notionsync/internal/model"
)

// CountStep counts every record by kind.
type CountStep struct{}

// NewCountStep creates a CountStep.
func NewCountStep() *CountStep {
	return &CountStep{}
}

// Name returns the step name.
func (s *CountStep) Name() string {
	return "count"
}

// Do counts obj.
func (s *CountStep) Do(_ context.Context, obj model.Object, report *model.SyncReport) error {
	report.AddRecord(obj.Kind())
	return nil
}

// recordKey identifies a record across kinds; a block and the page it
// stands for share an id.
type recordKey struct {
	kind model.Kind
	id   string
}

// DedupStep counts and logs records already seen in this run. It never drops
// them: the store overwrites by id.
//
// A DedupStep holds per-run state. Use a new one for every run.
type DedupStep struct {
	seen   map[recordKey]struct{}
	logger *slog.Logger
}

// NewDedupStep creates a DedupStep.
func NewDedupStep(logger *slog.Logger) *DedupStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupStep{
		seen:   make(map[recordKey]struct{}),
		logger: logger,
	}
}

// Name returns the step name.
func (s *DedupStep) Name() string {
	return "dedup"
}

// Do records obj and reports repeats.
func (s *DedupStep) Do(_ context.Context, obj model.Object, report *model.SyncReport) error {
	key := recordKey{kind: obj.Kind(), id: obj.ID()}
	if _, ok := s.seen[key]; ok {
		report.Duplicates++
		s.logger.Info("repeated record", "kind", key.kind, "id", key.id)
		return nil
	}
	s.seen[key] = struct{}{}
	return nil
}

// Saver persists records. *database.Store implements it.
type Saver interface {
	Save(ctx context.Context, runID string, obj model.Object) error
}

// StoreStep writes every record to a Saver.
type StoreStep struct {
	store Saver
}

// NewStoreStep creates a StoreStep.
func NewStoreStep(store Saver) *StoreStep {
	return &StoreStep{store: store}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves obj under the report's run id.
func (s *StoreStep) Do(ctx context.Context, obj model.Object, report *model.SyncReport) error {
	return s.store.Save(ctx, report.RunID, obj)
}

// Adder is the part of a progress bar ProgressStep drives.
// *progressbar.ProgressBar implements it.
type Adder interface {
	Add(n int) error
}

// ProgressStep advances a progress indicator once per record.
type ProgressStep struct {
	bar Adder
}

// NewProgressStep creates a ProgressStep.
func NewProgressStep(bar Adder) *ProgressStep {
	return &ProgressStep{bar: bar}
}

// Name returns the step name.
func (s *ProgressStep) Name() string {
	return "progress"
}

// Do advances the bar. Rendering errors are ignored.
func (s *ProgressStep) Do(context.Context, model.Object, *model.SyncReport) error {
	_ = s.bar.Add(1) //nolint:errcheck // display only
	return nil
}

// Retriever fetches single objects. *crawler.Fetcher implements it, taking
// a limiter token per request and waiting out throttled responses.
type Retriever interface {
	Retrieve(ctx context.Context, kind model.Kind, id string) (model.Object, error)
}

// UserStep resolves the users referenced by created_by and last_edited_by
// and stores them. Each user is fetched at most once per run.
//
// A UserStep holds per-run state. Use a new one for every run.
type UserStep struct {
	api    Retriever
	store  Saver
	logger *slog.Logger
	seen   map[string]struct{}
}

// NewUserStep creates a UserStep.
func NewUserStep(api Retriever, store Saver, logger *slog.Logger) *UserStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStep{
		api:    api,
		store:  store,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Name returns the step name.
func (s *UserStep) Name() string {
	return "users"
}

// Do fetches the users obj refers to that were not seen yet. A user that
// cannot be fetched is recorded in the report; bots and deleted users are
// often not readable by the integration.
func (s *UserStep) Do(ctx context.Context, obj model.Object, report *model.SyncReport) error {
	for _, id := range referencedUsers(obj) {
		if _, ok := s.seen[id]; ok {
			continue
		}

		user, err := s.api.Retrieve(ctx, model.KindUser, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.seen[id] = struct{}{}
			s.logger.Warn("failed to fetch user", "id", id, "error", err)
			report.AddError(err)
			continue
		}
		s.seen[id] = struct{}{}

		if err := s.store.Save(ctx, report.RunID, user); err != nil {
			return err
		}
		report.AddRecord(model.KindUser)
	}
	return nil
}

func referencedUsers(obj model.Object) []string {
	var refs []model.UserRef
	switch o := obj.(type) {
	case *model.Block:
		refs = []model.UserRef{o.CreatedBy, o.LastEditedBy}
	case *model.Page:
		refs = []model.UserRef{o.CreatedBy, o.LastEditedBy}
	case *model.Database:
		refs = []model.UserRef{o.CreatedBy, o.LastEditedBy}
	case *model.Comment:
		refs = []model.UserRef{o.CreatedBy}
	}

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
