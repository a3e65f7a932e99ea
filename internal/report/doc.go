// Package report renders sync reports.
//
// Three formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for scripts
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid chart of the
//     record counts
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
