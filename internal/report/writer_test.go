package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/packagebot/internal/model"
)

func newTestReport() *model.RunReport {
	r := model.NewRunReport("/usr/portage", "http://docs.funtoo.org")
	r.StartedAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(1500 * time.Millisecond)
	r.User = "Packagebot"
	r.Workers = 2
	r.Strategy = "queue"
	r.Discovered = 4
	r.Categories = 1
	r.Packages = 2
	r.ParseFailures = []model.ParseFailure{{Path: "/app-misc/broken/metadata.xml", Error: "XML syntax error"}}
	r.AddPage(model.PageResult{Title: "Category:app-misc", Kind: model.KindCategory, Outcome: model.OutcomeCreated})
	r.AddPage(model.PageResult{Title: "app-misc/foo", Kind: model.KindPackage, Outcome: model.OutcomeExisting})
	r.AddPage(model.PageResult{Title: "app-misc/bar", Kind: model.KindPackage, Outcome: model.OutcomeFailed, Error: "network error"})
	return r
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*model.RunReport)
		want   string
	}{
		{name: "complete", modify: func(r *model.RunReport) { r.Pages = r.Pages[:2] }, want: "complete"},
		{name: "failures", modify: func(*model.RunReport) {}, want: "completed with failures"},
		{name: "cancelled", modify: func(r *model.RunReport) { r.Cancelled = true }, want: "cancelled"},
		{
			name:   "error",
			modify: func(r *model.RunReport) { r.SetError(errors.New("login failed")) },
			want:   "error: login failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestReport()
			tt.modify(r)
			if got := status(r); got != tt.want {
				t.Errorf("got %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("summary lists problem pages only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(newTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"Tree:      /usr/portage",
			"Workers:   2 (queue)",
			"Duration:  1.5s",
			"Status:    completed with failures",
			"Discovered: 4  Categories: 1  Packages: 2",
			"/app-misc/broken/metadata.xml: XML syntax error",
			"created    1",
			"[failed] app-misc/bar: network error",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "[existing]") {
			t.Errorf("existing pages are listed only in verbose mode:\n%s", out)
		}
		if strings.Contains(out, "skipped") {
			t.Errorf("zero counts are hidden without verbose:\n%s", out)
		}
	})

	t.Run("verbose lists every page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"[existing] app-misc/foo", "[created] Category:app-misc", "skipped    0"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("no pages", func(t *testing.T) {
		t.Parallel()

		r := newTestReport()
		r.Pages = nil
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No pages were offered to the wiki.") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(newTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
	}
	if !strings.Contains(buf.String(), "\n  \"tree\"") {
		t.Errorf("expected indented output:\n%s", buf.String())
	}

	var decoded struct {
		Tree     string             `json:"tree"`
		Status   string             `json:"status"`
		Seconds  float64            `json:"duration_seconds"`
		Outcomes map[string]int     `json:"outcomes"`
		Pages    []model.PageResult `json:"pages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Tree != "/usr/portage" || decoded.Status != "completed with failures" {
		t.Errorf("unexpected header: %+v", decoded)
	}
	if decoded.Seconds != 1.5 {
		t.Errorf("got duration %v, expected 1.5", decoded.Seconds)
	}
	if decoded.Outcomes["created"] != 1 || decoded.Outcomes["failed"] != 1 || decoded.Outcomes["skipped"] != 0 {
		t.Errorf("unexpected outcomes: %v", decoded.Outcomes)
	}
	if len(decoded.Pages) != 3 || decoded.Pages[2].Outcome != model.OutcomeFailed {
		t.Errorf("unexpected pages: %+v", decoded.Pages)
	}
}

func TestJSONWriterCompact(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf).Write(newTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact output must be a single line:\n%s", buf.String())
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("full report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(newTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"# packagebot Run Report",
			"## Harvest",
			"## Pages",
			"```mermaid",
			"Page Outcomes",
			"Pages Needing Attention",
			"app-misc/bar",
			"/app-misc/broken/metadata.xml",
			"[!IMPORTANT]",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("clean run", func(t *testing.T) {
		t.Parallel()

		r := newTestReport()
		r.Pages = r.Pages[:2]
		r.ParseFailures = nil
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "[!TIP]") {
			t.Errorf("expected tip alert:\n%s", out)
		}
		if strings.Contains(out, "Pages Needing Attention") || strings.Contains(out, "Unparsable Metadata") {
			t.Errorf("clean run must not list problems:\n%s", out)
		}
	})

	t.Run("cancelled run", func(t *testing.T) {
		t.Parallel()

		r := newTestReport()
		r.Cancelled = true
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected warning alert:\n%s", buf.String())
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.RunReport) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		n, err := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b)).Write(newTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("returned %d bytes, wrote %d", n, a.Len()+b.Len())
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		_, err := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after)).Write(newTestReport())
		if err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("writers after a failure must not run")
		}
	})
}
