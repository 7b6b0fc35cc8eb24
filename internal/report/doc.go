// Package report renders a run report for people and for tools.
//
// SimpleWriter prints a plain text summary for the terminal, JSONWriter
// emits the report as JSON and MarkdownWriter produces a Markdown document
// with an outcome pie chart, suitable for pasting into a wiki talk page or
// an issue. All writers implement Writer and can be combined with
// MultiWriter.
package report
