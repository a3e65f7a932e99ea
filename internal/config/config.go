package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/notionsync/internal/notion"
	"github.com/nao1215/notionsync/internal/ratelimit"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "notionsync"

	// DefaultDatabaseFile is the SQLite file name inside the data directory.
	DefaultDatabaseFile = "notion.db"

	// DefaultConcurrency is the number of roots synced at the same time.
	DefaultConcurrency = 4

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = notion.DefaultTimeout
)

// Environment variables read by ApplyEnv.
const (
	EnvToken    = "NOTION_TOKEN"
	EnvRootPage = "NOTION_ROOT_PAGE"
)

// RateLimit is the client-side request pacing.
type RateLimit struct {
	// PerSecond is the sustained request rate.
	PerSecond float64 `yaml:"per_second,omitempty"`

	// Burst is the number of requests that may be sent back to back.
	Burst int `yaml:"burst,omitempty"`

	// PerMinute caps the requests of any one minute on top of PerSecond.
	// Zero means no cap.
	PerMinute int `yaml:"per_minute,omitempty"`
}

// Config holds all options of a sync.
// It is filled from defaults, then the config file, then the environment,
// then command line flags, each layer overriding the previous one.
type Config struct {
	// Token is the integration secret sent as a bearer token.
	Token string

	// Database is the path of the SQLite file records are stored in.
	Database string

	// Roots are the page ids or links to sync.
	Roots []string

	// RateLimit paces the requests of all roots together.
	RateLimit RateLimit

	// Timeout bounds a single API request.
	Timeout time.Duration

	// Proxy is an optional http, https, socks5 or socks5h proxy URL.
	Proxy string

	// APIVersion is sent as the Notion-Version header.
	APIVersion string

	// Concurrency is the number of roots synced at the same time.
	Concurrency int

	// Users enables fetching the users referenced by synced records.
	Users bool

	// ConfigFilePath is the config file given with --config.
	ConfigFilePath string

	// JSONReport selects JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// ReportFile is the report destination. Stdout when empty.
	ReportFile string

	// Verbose enables debug logging.
	Verbose bool

	// LogFile is an optional rotating log file written in addition to stderr.
	LogFile string

	// NoProgress disables the progress spinner.
	NoProgress bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Database: DefaultDatabasePath(),
		RateLimit: RateLimit{
			PerSecond: ratelimit.DefaultPerSecond,
			Burst:     ratelimit.DefaultBurst,
		},
		Timeout:     DefaultTimeout,
		APIVersion:  notion.DefaultAPIVersion,
		Concurrency: DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for notionsync.
// On Linux: ~/.local/share/notionsync
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for notionsync.
// On Linux: ~/.config/notionsync
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultDatabasePath returns the SQLite path used when none is configured.
func DefaultDatabasePath() string {
	return filepath.Join(XDGDataDir(), DefaultDatabaseFile)
}

// ApplyFile overrides the fields set in f.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.Token != "" {
		c.Token = f.Token
	}
	if f.Database != "" {
		c.Database = f.Database
	}
	if len(f.Roots) > 0 {
		c.Roots = append([]string(nil), f.Roots...)
	}
	if f.RateLimit.PerSecond != 0 {
		c.RateLimit.PerSecond = f.RateLimit.PerSecond
	}
	if f.RateLimit.Burst != 0 {
		c.RateLimit.Burst = f.RateLimit.Burst
	}
	if f.RateLimit.PerMinute != 0 {
		c.RateLimit.PerMinute = f.RateLimit.PerMinute
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.Proxy != "" {
		c.Proxy = f.Proxy
	}
	if f.APIVersion != "" {
		c.APIVersion = f.APIVersion
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	if f.Users {
		c.Users = true
	}
}

// ApplyEnv overrides the token and root from the environment.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if token := getenv(EnvToken); token != "" {
		c.Token = token
	}
	if root := getenv(EnvRootPage); root != "" {
		c.Roots = []string{root}
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrNoToken
	}
	if len(c.Roots) == 0 {
		return ErrNoRoot
	}
	if c.RateLimit.PerSecond <= 0 {
		return ErrInvalidRateLimit
	}
	if c.RateLimit.Burst < 1 {
		return ErrInvalidBurst
	}
	if c.RateLimit.PerMinute < 0 {
		return ErrInvalidPerMinute
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// Limiter builds the limiter shared by every request of a sync.
func (c *Config) Limiter() (ratelimit.Limiter, error) {
	limiter, err := ratelimit.New(c.RateLimit.PerSecond, c.RateLimit.Burst)
	if err != nil {
		return nil, err
	}
	if c.RateLimit.PerMinute <= 0 {
		return limiter, nil
	}
	perMinute := ratelimit.FromLimit(ratelimit.Per(c.RateLimit.PerMinute, time.Minute), c.RateLimit.Burst)
	return ratelimit.Multi(limiter, perMinute), nil
}

// RootIDs parses every root into a canonical block id.
// Repeated roots are dropped, keeping the first occurrence.
func (c *Config) RootIDs() ([]string, error) {
	ids := make([]string, 0, len(c.Roots))
	seen := make(map[string]struct{}, len(c.Roots))
	for _, root := range c.Roots {
		id, err := notion.ParseID(root)
		if err != nil {
			return nil, fmt.Errorf("invalid root %q: %w", root, err)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
