// Package model defines the records that notionsync discovers while walking a
// Notion workspace.
//
// The package contains the following main types:
//   - Object: the interface every emitted record implements (ID and Kind)
//   - Block, Page, Database, Comment, User: the concrete node kinds
//   - List: one page of a paginated listing as returned by the API
//   - SyncReport: the summary of a single sync run
//
// Only the fields the crawler and the store need are decoded into typed
// fields. Kind-specific payloads (block contents, page properties, rich text)
// are kept as raw JSON so that they can be persisted without loss.
package model
