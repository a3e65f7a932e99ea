package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/notionsync/internal/model"
)

// maxErrorLen caps the length of an error line in the details block.
const maxErrorLen = 200

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single report.
func (w *MarkdownWriter) Write(report *model.SyncReport) (int, error) {
	return w.WriteAll([]*model.SyncReport{report})
}

// WriteAll outputs the reports of a batch as one document.
func (w *MarkdownWriter) WriteAll(reports []*model.SyncReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Notion Sync Report")
	md.PlainText("")

	if len(reports) > 1 {
		w.writeOverview(md, reports)
	}
	for _, report := range reports {
		w.writeRun(md, report)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeOverview writes one row per root.
func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, reports []*model.SyncReport) {
	md.H2("Overview")
	md.PlainText("")

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			"`" + r.RootID + "`",
			strconv.Itoa(r.Total()),
			strconv.Itoa(len(r.Errors)),
			statusText(r),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Root", "Records", "Errors", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeRun writes the section of a single run.
func (w *MarkdownWriter) writeRun(md *markdown.Markdown, report *model.SyncReport) {
	md.H2("Root " + report.RootID)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format(timeFormat)},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	rows := make([][]string, 0, len(model.Kinds())+2)
	for _, kind := range model.Kinds() {
		rows = append(rows, []string{kindLabel(kind), strconv.Itoa(report.Counts[kind])})
	}
	rows = append(rows,
		[]string{"Repeated", strconv.Itoa(report.Duplicates)},
		[]string{"**Total**", "**" + strconv.Itoa(report.Total()) + "**"},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Records"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Total() > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
	w.writeErrors(md, report)
}

// writePieChart writes a mermaid pie chart of the records per kind.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.SyncReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Records by Kind"),
		piechart.WithShowData(true),
	)

	for _, kind := range model.Kinds() {
		if n := report.Counts[kind]; n > 0 {
			chart.LabelAndIntValue(kindLabel(kind), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.SyncReport) {
	switch {
	case report.Canceled:
		md.Cautionf("The run was canceled after %d record(s). The local copy is incomplete.", report.Total())
	case report.HasErrors():
		md.Warningf("%d fetch(es) failed. Their subtrees are missing from the local copy.", len(report.Errors))
	case report.Total() == 0:
		md.Note("No records were received.")
	default:
		md.Tip("All reachable objects were synced.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.SyncReport) {
	if !report.HasErrors() {
		return
	}

	lines := make([]string, len(report.Errors))
	for i, msg := range report.Errors {
		lines[i] = "- " + truncateString(msg, maxErrorLen)
	}

	md.Details("Errors ("+strconv.Itoa(len(lines))+")", strings.Join(lines, "\n"))
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [notionsync](https://github.com/nao1215/notionsync)*")
}

// statusText decorates status for Markdown output.
func statusText(report *model.SyncReport) string {
	switch {
	case report.Canceled:
		return "⚠️ " + status(report)
	case report.HasErrors():
		return "❌ " + status(report)
	default:
		return "✅ " + status(report)
	}
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
