package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/notionsync/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store is the SQLite mirror of a workspace. It is safe for concurrent use;
// writes are serialized on a single connection.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the file and its directory when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database file at dbPath and creates the schema.
func Open(dbPath string, opts Options) (*Store, error) {
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}

	db, err := sqlx.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

const schema = `
CREATE TABLE IF NOT EXISTS blocks (
	id TEXT PRIMARY KEY,
	parent_type TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	created_time TEXT,
	created_by TEXT,
	last_edited_time TEXT,
	last_edited_by TEXT,
	archived INTEGER NOT NULL DEFAULT 0,
	in_trash INTEGER NOT NULL DEFAULT 0,
	child_index INTEGER NOT NULL,
	has_children INTEGER NOT NULL DEFAULT 0,
	block_type TEXT NOT NULL,
	type_data TEXT,
	run_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_blocks_parent ON blocks(parent_id, child_index);

CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	parent_type TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	created_time TEXT,
	created_by TEXT,
	last_edited_time TEXT,
	last_edited_by TEXT,
	archived INTEGER NOT NULL DEFAULT 0,
	in_trash INTEGER NOT NULL DEFAULT 0,
	properties TEXT,
	url TEXT,
	public_url TEXT,
	icon TEXT,
	cover TEXT,
	run_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_pages_parent ON pages(parent_id);

CREATE TABLE IF NOT EXISTS databases (
	id TEXT PRIMARY KEY,
	parent_type TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	created_time TEXT,
	created_by TEXT,
	last_edited_time TEXT,
	last_edited_by TEXT,
	archived INTEGER NOT NULL DEFAULT 0,
	in_trash INTEGER NOT NULL DEFAULT 0,
	properties TEXT,
	url TEXT,
	public_url TEXT,
	icon TEXT,
	cover TEXT,
	is_inline INTEGER NOT NULL DEFAULT 0,
	title TEXT,
	description TEXT,
	run_id TEXT
);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	parent_type TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	created_time TEXT,
	created_by TEXT,
	last_edited_time TEXT,
	discussion_id TEXT,
	rich_text TEXT,
	run_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	type TEXT,
	name TEXT,
	avatar_url TEXT,
	run_id TEXT
);

CREATE TABLE IF NOT EXISTS sync_runs (
	run_id TEXT PRIMARY KEY,
	root_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	total INTEGER NOT NULL DEFAULT 0,
	duplicates INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	canceled INTEGER NOT NULL DEFAULT 0,
	counts TEXT
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
`

// upsertSQL builds a named INSERT that overwrites every column but the key
// on conflict.
func upsertSQL(table, key string, columns []string) string {
	names := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	for i, c := range columns {
		names[i] = ":" + c
		if c != key {
			updates = append(updates, c+" = excluded."+c)
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(names, ", "),
		key,
		strings.Join(updates, ", "),
	)
}

// tableFor maps a record kind to its table.
func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindBlock:
		return "blocks", nil
	case model.KindPage:
		return "pages", nil
	case model.KindDatabase:
		return "databases", nil
	case model.KindComment:
		return "comments", nil
	case model.KindUser:
		return "users", nil
	default:
		return "", fmt.Errorf("no table for %q records", kind)
	}
}

// Count returns the number of stored records of a kind.
func (s *Store) Count(ctx context.Context, kind model.Kind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// timeLayout has a fixed-width fraction so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullJSON stores empty raw JSON as NULL.
func nullJSON(raw []byte) sql.NullString {
	if len(raw) == 0 || string(raw) == "null" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
