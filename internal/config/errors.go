package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoToken is returned when no integration token was given by flag,
	// environment, or config file.
	ErrNoToken = errors.New("no integration token: set --token, NOTION_TOKEN, or token in the config file")

	// ErrNoRoot is returned when there is nothing to sync.
	ErrNoRoot = errors.New("no root specified: provide a page id or link, or set NOTION_ROOT_PAGE")

	// ErrInvalidRateLimit is returned when the request rate is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be positive")

	// ErrInvalidBurst is returned when the burst size is less than one.
	ErrInvalidBurst = errors.New("invalid burst: must be at least 1")

	// ErrInvalidPerMinute is returned when the per-minute cap is negative.
	ErrInvalidPerMinute = errors.New("invalid per-minute cap: must not be negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when fewer than one root may sync at a time.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
