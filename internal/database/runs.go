package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/notionsync/internal/model"
)

// RunRow is a stored sync run.
type RunRow struct {
	RunID      string         `db:"run_id"`
	RootID     string         `db:"root_id"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
	Total      int            `db:"total"`
	Duplicates int            `db:"duplicates"`
	Errors     int            `db:"errors"`
	Canceled   bool           `db:"canceled"`
	Counts     sql.NullString `db:"counts"`
}

// Started returns StartedAt as a time.
func (r RunRow) Started() time.Time {
	return parseTime(r.StartedAt)
}

// Finished returns FinishedAt as a time. ok is false for a run that never
// finished.
func (r RunRow) Finished() (t time.Time, ok bool) {
	if !r.FinishedAt.Valid {
		return time.Time{}, false
	}
	return parseTime(r.FinishedAt.String), true
}

// KindCounts decodes the per-kind record counts.
func (r RunRow) KindCounts() (map[model.Kind]int, error) {
	counts := make(map[model.Kind]int)
	if !r.Counts.Valid {
		return counts, nil
	}
	if err := json.Unmarshal([]byte(r.Counts.String), &counts); err != nil {
		return nil, fmt.Errorf("failed to decode counts of run %s: %w", r.RunID, err)
	}
	return counts, nil
}

var upsertRun = upsertSQL("sync_runs", "run_id", []string{
	"run_id", "root_id", "started_at", "finished_at",
	"total", "duplicates", "errors", "canceled", "counts",
})

// SaveRun records the outcome of a sync run.
func (s *Store) SaveRun(ctx context.Context, report *model.SyncReport) error {
	counts, err := json.Marshal(report.Counts)
	if err != nil {
		return fmt.Errorf("failed to serialize counts: %w", err)
	}

	row := RunRow{
		RunID:      report.RunID,
		RootID:     report.RootID,
		StartedAt:  formatTime(report.StartedAt),
		Total:      report.Total(),
		Duplicates: report.Duplicates,
		Errors:     len(report.Errors),
		Canceled:   report.Canceled,
		Counts:     sql.NullString{String: string(counts), Valid: true},
	}
	if !report.FinishedAt.IsZero() {
		row.FinishedAt = sql.NullString{String: formatTime(report.FinishedAt), Valid: true}
	}

	if _, err := s.db.NamedExecContext(ctx, upsertRun, row); err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}
	return nil
}

// Runs returns the most recent sync runs, newest first.
// limit <= 0 returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRow, error) {
	query := "SELECT * FROM sync_runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []RunRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return rows, nil
}
