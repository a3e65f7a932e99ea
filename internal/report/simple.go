package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/notionsync/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// Sections are separated with ASCII rules so the output stays readable when
// piped to a file.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether kinds with no records are listed.
	showEmpty bool

	// verbose lists every task error instead of only the count.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list kinds with zero records.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables the per-error listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one run report.
func (w *SimpleWriter) Write(report *model.SyncReport) (int, error) {
	return w.WriteAll([]*model.SyncReport{report})
}

// WriteAll outputs the reports of a batch, one section per run.
func (w *SimpleWriter) WriteAll(reports []*model.SyncReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	for _, report := range reports {
		w.writeRun(&sb, report)
	}
	w.writeFooter(&sb, reports)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        NOTIONSYNC REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeRun writes the summary of a single run.
func (w *SimpleWriter) writeRun(sb *strings.Builder, report *model.SyncReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "ROOT %s\n", report.RootID)
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:     %s\n", report.RunID)
	fmt.Fprintf(sb, "Started:    %s\n", report.StartedAt.Format(timeFormat))
	fmt.Fprintf(sb, "Duration:   %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:     %s\n", status(report))
	sb.WriteString("\n")

	for _, kind := range model.Kinds() {
		n := report.Counts[kind]
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-10s %d\n", kindLabel(kind)+":", n)
	}
	fmt.Fprintf(sb, "  %-10s %d\n", "Total:", report.Total())
	fmt.Fprintf(sb, "  %-10s %d\n", "Repeated:", report.Duplicates)
	fmt.Fprintf(sb, "  %-10s %d\n", "Errors:", len(report.Errors))
	sb.WriteString("\n")

	if w.verbose && report.HasErrors() {
		for _, msg := range report.Errors {
			fmt.Fprintf(sb, "  [!] %s\n", msg)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, reports []*model.SyncReport) {
	total := 0
	for _, r := range reports {
		total += r.Total()
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%d root(s), %d record(s)\n", len(reports), total)
	sb.WriteString("Report generated by notionsync\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
