package log

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Options configures New.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// File is an optional log file written in addition to the writer passed
	// to New. It is rotated by size.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays control rotation of File.
	// Zero selects the package default.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ErrEmptyWriter is returned by New when neither a writer nor a file is given.
var ErrEmptyWriter = errors.New("log: no output configured")

// New creates a secure logger writing to w and, when opts.File is set, to a
// rotating log file. The returned closer releases the file and must be
// called once logging is done.
func New(w io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	out := w

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
			return nil, nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAgeDays, DefaultMaxAgeDays),
			LocalTime:  true,
			Compress:   true,
		}
		closer = lj
		if out == nil {
			out = lj
		} else {
			out = io.MultiWriter(out, lj)
		}
	}
	if out == nil {
		return nil, nil, ErrEmptyWriter
	}

	if opts.JSON {
		return NewSecureJSONLogger(out, opts.Verbose), closer, nil
	}
	return NewSecureLogger(out, opts.Verbose), closer, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
