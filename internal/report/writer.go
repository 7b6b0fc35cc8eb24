package report

import (
	"io"

	"github.com/nao1215/packagebot/internal/model"
)

// Writer writes a run report in one output format.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.RunReport) (int, error)
}

// MultiWriter writes the same report to several Writers and stops at the
// first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a Writer that writes to all writers in order.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
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

// status is the one-line verdict shared by every format.
func status(report *model.RunReport) string {
	switch {
	case report.Cancelled:
		return "cancelled"
	case report.ErrorMessage != "":
		return "error: " + report.ErrorMessage
	case report.CountOutcome(model.OutcomeFailed) > 0:
		return "completed with failures"
	default:
		return "complete"
	}
}

// problemPages returns the pages worth listing individually.
func problemPages(report *model.RunReport) []model.PageResult {
	var out []model.PageResult
	for _, p := range report.Pages {
		if p.Outcome == model.OutcomeFailed || p.Outcome == model.OutcomeConflict || p.Outcome == model.OutcomeDuplicate {
			out = append(out, p)
		}
	}
	return out
}

// countingWriter tracks bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
