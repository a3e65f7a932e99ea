package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/notionsync/internal/database"
	"github.com/nao1215/notionsync/internal/model"
)

// seedRuns creates a database holding two runs and returns its path.
func seedRuns(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notion.db")
	store, err := database.Open(path, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	done := model.NewSyncReport("11111111-run", testRoot)
	done.StartedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	done.AddRecord(model.KindPage)
	done.AddRecord(model.KindBlock)
	done.AddRecord(model.KindBlock)
	done.FinishedAt = done.StartedAt.Add(3 * time.Second)

	failed := model.NewSyncReport("22222222-run", testRoot)
	failed.StartedAt = time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	failed.AddError(errors.New("boom"))

	for _, r := range []*model.SyncReport{done, failed} {
		if err := store.SaveRun(context.Background(), r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return path
}

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()

		output, err := runHistory(t, "--db", seedRuns(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "Sync history (2 runs)") {
			t.Errorf("unexpected header in %q", output)
		}
		newer := strings.Index(output, "22222222")
		older := strings.Index(output, "11111111")
		if newer < 0 || older < 0 || newer > older {
			t.Errorf("expected newest run first, got %q", output)
		}
		if !strings.Contains(output, "P:1 B:2") {
			t.Errorf("expected kind counts, got %q", output)
		}
		if !strings.Contains(output, "1 errors") {
			t.Errorf("expected error status, got %q", output)
		}
		if !strings.Contains(output, "3s") {
			t.Errorf("expected duration, got %q", output)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		output, err := runHistory(t, "--db", seedRuns(t), "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(output, "11111111") {
			t.Errorf("expected only the newest run, got %q", output)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		output, err := runHistory(t, "--db", seedRuns(t), "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var entries []historyEntry
		if err := json.Unmarshal([]byte(output), &entries); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, expected 2", len(entries))
		}
		if entries[1].FinishedAt == nil || entries[0].FinishedAt != nil {
			t.Errorf("unexpected finish times %+v", entries)
		}
		if entries[1].Counts[model.KindBlock] != 2 {
			t.Errorf("got counts %v", entries[1].Counts)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "empty.db")
		store, err := database.Open(path, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		store.Close()

		output, err := runHistory(t, "--db", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "No sync runs found") {
			t.Errorf("got %q", output)
		}
	})

	t.Run("missing database is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := runHistory(t, "--db", filepath.Join(t.TempDir(), "missing.db")); err == nil {
			t.Error("expected error for missing database")
		}
	})
}

func TestFormatCounts(t *testing.T) {
	t.Parallel()

	if got := formatCounts(nil); got != "none" {
		t.Errorf("got %q, expected %q", got, "none")
	}
	got := formatCounts(map[model.Kind]int{model.KindComment: 2, model.KindPage: 1})
	if got != "P:1 C:2" {
		t.Errorf("got %q, expected %q", got, "P:1 C:2")
	}
}
