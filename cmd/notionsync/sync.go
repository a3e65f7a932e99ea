package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/notionsync/internal/config"
	"github.com/nao1215/notionsync/internal/crawler"
	"github.com/nao1215/notionsync/internal/database"
	"github.com/nao1215/notionsync/internal/log"
	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
	"github.com/nao1215/notionsync/internal/pipeline"
	"github.com/nao1215/notionsync/internal/ratelimit"
	"github.com/nao1215/notionsync/internal/report"
)

// errIncompleteSync is returned when at least one root failed or was canceled.
// The report has already been written when it is returned.
var errIncompleteSync = errors.New("sync incomplete")

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [page-id-or-link...]",
		Short: "Copy Notion pages and everything below them into SQLite",
		Long: `Sync fetches each root page and every block, child page, database row and
comment reachable from it, and upserts them into the local database.

The integration token is read from --token, NOTION_TOKEN, or the config file.
Roots are read from the arguments, NOTION_ROOT_PAGE, or the config file.

Examples:
  # Sync one page by link
  NOTION_TOKEN=ntn_... notionsync sync https://www.notion.so/Team-Wiki-0123456789abcdef0123456789abcdef

  # Sync two roots, two at a time, into a chosen file
  notionsync sync --db ./wiki.db --concurrency 2 <id> <id>

  # Slow down and write a Markdown report
  notionsync sync --rate 1 --burst 1 --markdown -o report.md <id>

  # Go through a SOCKS5 proxy
  notionsync sync --proxy socks5://127.0.0.1:1080 <id>`,
		Args: cobra.ArbitraryArgs,
		RunE: runSyncCmd,
	}

	cmd.Flags().String("token", "", "Integration token (default: NOTION_TOKEN)")
	cmd.Flags().StringP("db", "d", "", "SQLite database path (default: "+config.DefaultDatabasePath()+")")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .notionsync in current or home directory)")

	cmd.Flags().Float64P("rate", "r", ratelimit.DefaultPerSecond, "Requests per second")
	cmd.Flags().IntP("burst", "b", ratelimit.DefaultBurst, "Requests that may be sent back to back")
	cmd.Flags().Int("per-minute", 0, "Cap on requests in any one minute (0: no cap)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout of a single API request")
	cmd.Flags().String("proxy", "", "Proxy URL (http, https, socks5, socks5h)")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency, "Number of roots synced at the same time")
	cmd.Flags().BoolP("users", "u", false, "Also fetch users referenced by synced records")

	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-progress", false, "Do not show the progress spinner")

	return cmd
}

// runSyncCmd executes the sync command.
func runSyncCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args, os.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	roots, err := cfg.RootIDs()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := log.New(cmd.ErrOrStderr(), log.Options{Verbose: cfg.Verbose, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress io.Writer
	if !cfg.NoProgress {
		progress = cmd.ErrOrStderr()
	}

	reports, err := runSync(ctx, cfg, roots, logger, progress)
	if err != nil {
		return err
	}

	if err := outputReport(cfg, reports, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return checkReports(reports)
}

// buildConfig layers flags over the config file and environment.
// Only flags given on the command line override.
func buildConfig(cmd *cobra.Command, args []string, getenv func(string) string) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath, getenv)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if len(args) > 0 {
		cfg.Roots = args
	}

	if flags.Changed("token") {
		if cfg.Token, err = flags.GetString("token"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db") {
		if cfg.Database, err = flags.GetString("db"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RateLimit.PerSecond, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("burst") {
		if cfg.RateLimit.Burst, err = flags.GetInt("burst"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("per-minute") {
		if cfg.RateLimit.PerMinute, err = flags.GetInt("per-minute"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("users") {
		if cfg.Users, err = flags.GetBool("users"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoProgress, err = flags.GetBool("no-progress"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFile = getLogFileFlag(cmd)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFileFlag retrieves the log-file flag from the command or its parent.
func getLogFileFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("log-file")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("log-file")
		if err != nil {
			return ""
		}
	}
	return path
}

// runSync syncs every root into the configured database.
// progress receives the spinner; nil disables it. clientOpts are applied
// after the options derived from cfg.
func runSync(
	ctx context.Context,
	cfg *config.Config,
	roots []string,
	logger *slog.Logger,
	progress io.Writer,
	clientOpts ...notion.Option,
) ([]*model.SyncReport, error) {
	if cfg.Proxy != "" {
		if err := notion.CheckProxy(ctx, cfg.Proxy); err != nil {
			return nil, fmt.Errorf("proxy check failed: %w", err)
		}
		logger.Info("proxy connection verified", "proxy", cfg.Proxy)
	}

	opts := []notion.Option{
		notion.WithAPIVersion(cfg.APIVersion),
		notion.WithTimeout(cfg.Timeout),
		notion.WithUserAgent(userAgent()),
		notion.WithLogger(logger),
	}
	if cfg.Proxy != "" {
		opts = append(opts, notion.WithProxy(cfg.Proxy))
	}
	client, err := notion.NewClient(cfg.Token, append(opts, clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	limiter, err := cfg.Limiter()
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}

	store, err := database.Open(cfg.Database, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	logger.Info("database opened", "path", store.Path())

	fetcher := crawler.New(client,
		crawler.WithLimiter(limiter),
		crawler.WithLogger(logger),
	)

	bar := newProgressBar(progress)
	factory := func(rootID string) (*pipeline.Pipeline, pipeline.Source) {
		rootLogger := logger.With("root", rootID)

		p := pipeline.New(pipeline.WithLogger(rootLogger))
		p.AddSteps(
			pipeline.NewCountStep(),
			pipeline.NewDedupStep(rootLogger),
			pipeline.NewStoreStep(store),
		)
		if cfg.Users {
			p.AddStep(pipeline.NewUserStep(fetcher, store, rootLogger))
		}
		p.AddStep(pipeline.NewProgressStep(bar))

		return p, func(ctx context.Context) <-chan crawler.Result {
			return fetcher.Fetch(ctx, rootID)
		}
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
		pipeline.WithRunStore(store),
	)

	start := time.Now()
	reports, err := bp.ProcessBatch(ctx, roots)
	_ = bar.Finish() //nolint:errcheck // display only

	logger.Info("sync finished", "roots", len(roots), "elapsed", time.Since(start).Round(time.Millisecond))
	if err != nil {
		logger.Warn("sync interrupted", "error", err)
	}
	return reports, nil
}

// spinner is the part of a progress bar runSync needs.
type spinner interface {
	pipeline.Adder
	Finish() error
}

// newProgressBar returns a record counter on w, or a silent one for nil.
func newProgressBar(w io.Writer) spinner {
	if w == nil {
		return nopSpinner{}
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("syncing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

type nopSpinner struct{}

func (nopSpinner) Add(int) error { return nil }
func (nopSpinner) Finish() error { return nil }

// checkReports turns failed or canceled runs into an error for the exit code.
func checkReports(reports []*model.SyncReport) error {
	failed := 0
	for _, r := range reports {
		if r.HasErrors() || r.Canceled {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d root(s) had errors or were canceled", errIncompleteSync, failed, len(reports))
	}
	return nil
}

// outputReport writes the reports in the requested format.
func outputReport(cfg *config.Config, reports []*model.SyncReport, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.WriteAll(reports)
	return err
}
