package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for notionsync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notionsync",
		Short: "Copy a Notion workspace subtree into SQLite",
		Long: `notionsync walks a Notion page through the public API and stores every
reachable block, page, database and comment in a local SQLite database.

Requests are rate limited on the client side and throttled requests are
retried after the delay the API asks for.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Also write logs to this file (rotated by size)")

	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
