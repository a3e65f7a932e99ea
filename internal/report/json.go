package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/notionsync/internal/model"
)

// JSONWriter outputs reports in JSON format for scripts and other tools.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is shorthand for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single report as a JSON object.
func (w *JSONWriter) Write(report *model.SyncReport) (int, error) {
	return w.writeJSON(report)
}

// WriteAll outputs the reports wrapped in a Batch document.
func (w *JSONWriter) WriteAll(reports []*model.SyncReport) (int, error) {
	return w.writeJSON(NewBatch(reports))
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// Batch is the JSON document for a multi-root sync.
type Batch struct {
	// Runs holds one report per root, in the order the roots were given.
	Runs []*model.SyncReport `json:"runs"`

	// Total is the number of records received across all runs.
	Total int `json:"total"`

	// Failed is the number of runs that ended with errors or were canceled.
	Failed int `json:"failed"`
}

// NewBatch summarizes the given reports.
func NewBatch(reports []*model.SyncReport) *Batch {
	b := &Batch{Runs: reports}
	if b.Runs == nil {
		b.Runs = []*model.SyncReport{}
	}
	for _, r := range reports {
		b.Total += r.Total()
		if r.HasErrors() || r.Canceled {
			b.Failed++
		}
	}
	return b
}
