// Package main provides the entry point for the notionsync CLI.
//
// notionsync copies a Notion workspace subtree (pages, databases, blocks and
// comments) into a local SQLite database through the public API.
//
// Usage:
//
//	notionsync sync <page-id-or-link>...
//	notionsync history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
