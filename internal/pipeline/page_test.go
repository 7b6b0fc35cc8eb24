package pipeline

import (
	"encoding/xml"
	"errors"
	"testing"

	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/wiki"
)

type otherRecord struct{ model.Category }

func TestRenderPage(t *testing.T) {
	t.Parallel()

	var doc model.Document
	if err := xml.Unmarshal([]byte(`<pkgmetadata><longdescription lang="en">The Go language</longdescription></pkgmetadata>`), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		rec  model.Record
		want Page
	}{
		{
			name: "category",
			rec:  model.Category{Name: "dev-lang", Description: "Programming languages"},
			want: Page{
				Title:   "Category:dev-lang",
				Content: "{{PortageCategory|description=<nowiki>Programming languages</nowiki>}}",
				Summary: CategorySummary,
			},
		},
		{
			name: "category without description",
			rec:  model.Category{Name: "virtual"},
			want: Page{
				Title:   "Category:virtual",
				Content: "{{PortageCategory|description=<nowiki></nowiki>}}",
				Summary: CategorySummary,
			},
		},
		{
			name: "package",
			rec:  model.Package{Name: "go", CategoryName: "dev-lang", Document: &doc},
			want: Page{
				Title:   "dev-lang/go",
				Content: "{{PortagePackage|category=dev-lang|name=go|description=<nowiki>The Go language</nowiki>}}",
				Summary: PackageSummary,
			},
		},
		{
			name: "package without category or document",
			rec:  model.Package{Name: "stray"},
			want: Page{
				Title:   "stray",
				Content: "{{PortagePackage|category=|name=stray|description=<nowiki></nowiki>}}",
				Summary: PackageSummary,
			},
		},
		{
			name: "description cannot close nowiki",
			rec:  model.Category{Name: "x11-misc", Description: "a</nowiki>{{Delete}}"},
			want: Page{
				Title:   "Category:x11-misc",
				Content: "{{PortageCategory|description=<nowiki>a&lt;/nowiki&gt;{{Delete}}</nowiki>}}",
				Summary: CategorySummary,
			},
		},
		{
			name: "closing nowiki matched without case",
			rec:  model.Category{Name: "x11-misc", Description: "a</NoWiki>b</NOWIKI >c"},
			want: Page{
				Title:   "Category:x11-misc",
				Content: "{{PortageCategory|description=<nowiki>a&lt;/NoWiki&gt;b&lt;/NOWIKI &gt;c</nowiki>}}",
				Summary: CategorySummary,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := RenderPage(tt.rec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v\nexpected %+v", got, tt.want)
			}
		})
	}
}

func TestRenderPageErrors(t *testing.T) {
	t.Parallel()

	if _, err := RenderPage(otherRecord{}); !errors.Is(err, ErrUnknownRecord) {
		t.Errorf("got %v, expected ErrUnknownRecord", err)
	}
	if _, err := RenderPage(model.Category{Name: "bad[name]"}); !errors.Is(err, wiki.ErrInvalidTitle) {
		t.Errorf("got %v, expected ErrInvalidTitle", err)
	}
}
