package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/notionsync/internal/config"
	"github.com/nao1215/notionsync/internal/database"
	"github.com/nao1215/notionsync/internal/model"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past sync runs",
		Long: `History lists the sync runs recorded in the database, newest first.

Examples:
  # Show the last 20 runs
  notionsync history

  # Show every run of a specific database as JSON
  notionsync history --db ./wiki.db --limit 0 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("db", "d", "", "SQLite database path (default: "+config.DefaultDatabasePath()+")")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of runs to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output runs in JSON format")

	return cmd
}

// historyEntry is one run in JSON output.
type historyEntry struct {
	RunID      string             `json:"run_id"`
	RootID     string             `json:"root_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	Total      int                `json:"total"`
	Duplicates int                `json:"duplicates"`
	Errors     int                `json:"errors"`
	Canceled   bool               `json:"canceled"`
	Counts     map[model.Kind]int `json:"counts"`
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	// history never creates a database
	store, err := database.Open(dbPath, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	entries, err := loadHistory(cmd.Context(), store, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return writeHistory(cmd.OutOrStdout(), entries)
}

// loadHistory reads the runs and decodes their counts.
func loadHistory(ctx context.Context, store *database.Store, limit int) ([]historyEntry, error) {
	rows, err := store.Runs(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]historyEntry, 0, len(rows))
	for _, row := range rows {
		counts, err := row.KindCounts()
		if err != nil {
			return nil, err
		}
		entry := historyEntry{
			RunID:      row.RunID,
			RootID:     row.RootID,
			StartedAt:  row.Started(),
			Total:      row.Total,
			Duplicates: row.Duplicates,
			Errors:     row.Errors,
			Canceled:   row.Canceled,
			Counts:     counts,
		}
		if finished, ok := row.Finished(); ok {
			entry.FinishedAt = &finished
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// writeHistory prints the runs as a table.
func writeHistory(w io.Writer, entries []historyEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No sync runs found in the database.\n\nUse 'notionsync sync <page>' to sync a page.")
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sync history (%d runs):\n\n", len(entries))
	fmt.Fprintf(&sb, "  %-8s  %-36s  %-19s  %-9s  %-8s  %s\n", "Run", "Root", "Started", "Duration", "Status", "Records")
	sb.WriteString("  " + strings.Repeat("-", 110) + "\n")

	for _, e := range entries {
		fmt.Fprintf(&sb, "  %-8s  %-36s  %-19s  %-9s  %-8s  %s\n",
			shortID(e.RunID),
			e.RootID,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(e),
			runStatus(e),
			formatCounts(e.Counts),
		)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(e historyEntry) string {
	if e.FinishedAt == nil {
		return "-"
	}
	return e.FinishedAt.Sub(e.StartedAt).Round(time.Second).String()
}

func runStatus(e historyEntry) string {
	switch {
	case e.Canceled:
		return "canceled"
	case e.Errors > 0:
		return fmt.Sprintf("%d errors", e.Errors)
	default:
		return "ok"
	}
}

// formatCounts renders counts as "P:1 B:4 C:2", skipping zeros.
func formatCounts(counts map[model.Kind]int) string {
	var parts []string
	for _, kind := range model.Kinds() {
		if n := counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", strings.ToUpper(string(kind)[:1]), n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
