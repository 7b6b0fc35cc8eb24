package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/packagebot/internal/model"
)

// MarkdownWriter produces a Markdown document with tables, an outcome pie
// chart and GitHub alerts.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter returns a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	cw := &countingWriter{w: w.output}
	md := markdown.NewMarkdown(cw)

	writeOverview(md, report)
	writeHarvest(md, report)
	writePages(md, report)

	err := md.Build()
	return cw.n, err
}

func writeOverview(md *markdown.Markdown, report *model.RunReport) {
	md.H1("packagebot Run Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Tree", "`" + report.Tree + "`"},
			{"Wiki", report.Endpoint},
			{"User", report.User},
			{"Workers", strconv.Itoa(report.Workers) + " (" + report.Strategy + ")"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Status", status(report)},
		},
	})
	md.PlainText("")

	switch {
	case report.Cancelled:
		md.Warningf("The run was interrupted. Records that were not published are marked skipped.")
	case report.ErrorMessage != "":
		md.Cautionf("The run stopped early: %s", report.ErrorMessage)
	case report.CountOutcome(model.OutcomeFailed) > 0:
		md.Importantf("%d pages could not be published.", report.CountOutcome(model.OutcomeFailed))
	default:
		md.Tip("Every harvested record was published or already present.")
	}
	md.PlainText("")
}

func writeHarvest(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Harvest")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Metadata files", strconv.Itoa(report.Discovered)},
			{"Categories", strconv.Itoa(report.Categories)},
			{"Packages", strconv.Itoa(report.Packages)},
			{"Unreadable directories", strconv.Itoa(len(report.ScanWarnings))},
			{"Unparsable metadata", strconv.Itoa(len(report.ParseFailures))},
		},
	})
	md.PlainText("")

	if len(report.ParseFailures) > 0 {
		rows := make([][]string, 0, len(report.ParseFailures))
		for _, f := range report.ParseFailures {
			rows = append(rows, []string{"`" + f.Path + "`", f.Error})
		}
		md.H3("Unparsable Metadata")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"Path", "Error"}, Rows: rows})
		md.PlainText("")
	}
	if len(report.ScanWarnings) > 0 {
		md.H3("Unreadable Directories")
		md.PlainText("")
		md.BulletList(report.ScanWarnings...)
		md.PlainText("")
	}
}

func writePages(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Pages")
	md.PlainText("")
	if len(report.Pages) == 0 {
		md.PlainText("No pages were offered to the wiki.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(model.Outcomes()))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)
	for _, o := range model.Outcomes() {
		n := report.CountOutcome(o)
		rows = append(rows, []string{o.String(), strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(o.String(), uint64(n))
		}
	}
	md.Table(markdown.TableSet{Header: []string{"Outcome", "Pages"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	problems := problemPages(report)
	if len(problems) == 0 {
		return
	}
	md.H3("Pages Needing Attention")
	md.PlainText("")
	prow := make([][]string, 0, len(problems))
	for _, p := range problems {
		prow = append(prow, []string{p.Title, p.Kind.String(), p.Outcome.String(), p.Error})
	}
	md.Table(markdown.TableSet{Header: []string{"Title", "Kind", "Outcome", "Error"}, Rows: prow})
	md.PlainText("")
}
