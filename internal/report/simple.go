package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/packagebot/internal/model"
)

// SimpleWriter prints a plain text summary.
type SimpleWriter struct {
	output  io.Writer
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every page instead of only the problem pages.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter returns a SimpleWriter writing to output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeHarvest(&sb, report)
	w.writePages(&sb, report)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("packagebot run report\n")
	sb.WriteString(strings.Repeat("=", 21) + "\n")
	fmt.Fprintf(sb, "Tree:      %s\n", report.Tree)
	fmt.Fprintf(sb, "Endpoint:  %s\n", report.Endpoint)
	if report.User != "" {
		fmt.Fprintf(sb, "User:      %s\n", report.User)
	}
	fmt.Fprintf(sb, "Workers:   %d (%s)\n", report.Workers, report.Strategy)
	fmt.Fprintf(sb, "Started:   %s\n", report.StartedAt.Format(time.DateTime))
	fmt.Fprintf(sb, "Duration:  %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:    %s\n\n", status(report))
}

func (w *SimpleWriter) writeHarvest(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("Harvest\n-------\n")
	fmt.Fprintf(sb, "Discovered: %d  Categories: %d  Packages: %d\n",
		report.Discovered, report.Categories, report.Packages)

	if n := len(report.ScanWarnings); n > 0 {
		fmt.Fprintf(sb, "Unreadable directories: %d\n", n)
		for _, warning := range report.ScanWarnings {
			fmt.Fprintf(sb, "  - %s\n", warning)
		}
	}
	if n := len(report.ParseFailures); n > 0 {
		fmt.Fprintf(sb, "Unparsable metadata: %d\n", n)
		for _, f := range report.ParseFailures {
			fmt.Fprintf(sb, "  - %s: %s\n", f.Path, f.Error)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("Pages\n-----\n")
	if len(report.Pages) == 0 {
		sb.WriteString("No pages were offered to the wiki.\n")
		return
	}
	for _, o := range model.Outcomes() {
		if n := report.CountOutcome(o); n > 0 || w.verbose {
			fmt.Fprintf(sb, "%-10s %d\n", o, n)
		}
	}

	pages := problemPages(report)
	if w.verbose {
		pages = report.Pages
	}
	if len(pages) == 0 {
		return
	}
	sb.WriteString("\n")
	for _, p := range pages {
		fmt.Fprintf(sb, "  [%s] %s", p.Outcome, p.Title)
		if p.Error != "" {
			fmt.Fprintf(sb, ": %s", p.Error)
		}
		sb.WriteString("\n")
	}
}
