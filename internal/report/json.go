package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/packagebot/internal/model"
)

// JSONWriter emits the run report as a single JSON document.
type JSONWriter struct {
	output io.Writer
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces per level.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter returns a JSONWriter writing to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport adds derived fields to the serialized report.
type jsonReport struct {
	*model.RunReport
	Status   string         `json:"status"`
	Seconds  float64        `json:"duration_seconds"`
	Outcomes map[string]int `json:"outcomes"`
}

// Write implements Writer.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	out := jsonReport{
		RunReport: report,
		Status:    status(report),
		Seconds:   report.Duration().Seconds(),
		Outcomes:  make(map[string]int, len(model.Outcomes())),
	}
	for _, o := range model.Outcomes() {
		out.Outcomes[o.String()] = report.CountOutcome(o)
	}

	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	err := enc.Encode(out)
	return cw.n, err
}
