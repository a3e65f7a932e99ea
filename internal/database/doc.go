// Package database provides the SQLite store notionsync mirrors a workspace
// into.
//
// The store keeps one table per record kind:
//   - blocks: content blocks with their position among siblings
//   - pages: pages and database rows with raw property values
//   - databases: database schemas
//   - comments: page and block comments
//   - users: users referenced by the workspace
//
// plus sync_runs, one row per completed sync.
//
// Every write is an upsert keyed by the object id, so the same object arriving
// twice in a run, or again in a later run, simply overwrites its row. There is
// no change tracking: each run re-fetches and overwrites.
//
// SQLite is accessed through modernc.org/sqlite (pure Go, no cgo) and
// github.com/jmoiron/sqlx for named parameters and struct scanning.
package database
