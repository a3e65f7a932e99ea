package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/notionsync/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a single run report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.SyncReport) (int, error)

	// WriteAll outputs the reports of a batch of runs as one document.
	WriteAll(reports []*model.SyncReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(report *model.SyncReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the reports to all configured Writers.
func (m *MultiWriter) WriteAll(reports []*model.SyncReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeFormat = "2006-01-02 15:04:05 MST"

// kindLabel turns a record kind into a table label, e.g. "page" -> "Page".
func kindLabel(kind model.Kind) string {
	return cases.Title(language.English).String(string(kind))
}

// status summarizes how a run ended.
func status(report *model.SyncReport) string {
	switch {
	case report.Canceled:
		return "Canceled (partial results)"
	case report.HasErrors():
		return "Completed with errors"
	default:
		return "Complete"
	}
}
