package metadata

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/nao1215/packagebot/internal/model"
)

const categoryXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE catmetadata SYSTEM "http://www.gentoo.org/dtd/metadata.dtd">
<catmetadata>
	<longdescription lang="en">
		The dev-lang category contains various programming languages
		and related tools.
	</longdescription>
	<longdescription lang="ja">dev-langカテゴリ</longdescription>
</catmetadata>`

const packageXML = `<?xml version="1.0" encoding="UTF-8"?>
<pkgmetadata>
	<maintainer type="person">
		<email>dev@example.org</email>
		<name>Some Developer</name>
	</maintainer>
	<longdescription lang="en">The Go programming language</longdescription>
	<use>
		<flag name="cgo">Build with cgo support</flag>
	</use>
	<upstream>
		<remote-id type="github">golang/go</remote-id>
	</upstream>
</pkgmetadata>`

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	fs := memfs.New()
	for path, content := range files {
		if err := util.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return NewLoader(fs)
}

func TestLoadCategory(t *testing.T) {
	t.Parallel()

	l := newLoader(t, map[string]string{"/dev-lang/metadata.xml": categoryXML})
	rec, err := l.Load(model.Discovery{
		Kind: model.KindCategory, CategoryName: "dev-lang", Name: "dev-lang", Path: "/dev-lang/metadata.xml",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cat, ok := rec.(model.Category)
	if !ok {
		t.Fatalf("got %T, expected model.Category", rec)
	}
	if cat.Name != "dev-lang" {
		t.Errorf("got name %q, expected dev-lang", cat.Name)
	}
	want := "The dev-lang category contains various programming languages and related tools."
	if cat.Description != want {
		t.Errorf("got description %q, expected %q", cat.Description, want)
	}
}

func TestLoadPackage(t *testing.T) {
	t.Parallel()

	l := newLoader(t, map[string]string{"/dev-lang/go/metadata.xml": packageXML})
	rec, err := l.Load(model.Discovery{
		Kind: model.KindPackage, CategoryName: "dev-lang", Name: "go", Path: "/dev-lang/go/metadata.xml",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pkg, ok := rec.(model.Package)
	if !ok {
		t.Fatalf("got %T, expected model.Package", rec)
	}
	if pkg.Name != "go" || pkg.CategoryName != "dev-lang" {
		t.Errorf("got %+v", pkg)
	}
	doc := pkg.Document
	if doc == nil {
		t.Fatal("expected parsed document")
	}
	if len(doc.Maintainers) != 1 || doc.Maintainers[0].Email != "dev@example.org" {
		t.Errorf("got maintainers %+v", doc.Maintainers)
	}
	if len(doc.UseFlags) != 1 || doc.UseFlags[0].Name != "cgo" {
		t.Errorf("got use flags %+v", doc.UseFlags)
	}
	if doc.Upstream == nil || len(doc.Upstream.RemoteIDs) != 1 || doc.Upstream.RemoteIDs[0].ID != "golang/go" {
		t.Errorf("got upstream %+v", doc.Upstream)
	}
	if got := doc.Description(DescriptionLang); got != "The Go programming language" {
		t.Errorf("got description %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	l := newLoader(t, map[string]string{
		"/broken/metadata.xml": "<catmetadata><longdescription>",
		"/junk/metadata.xml":   `<catmetadata><longdescription lang="en">ok</longdescription></catmetadata><oops`,
		"/extra/metadata.xml":  "<catmetadata></catmetadata>trailing text",
		"/ok/metadata.xml":     categoryXML,
	})

	tests := []struct {
		name string
		d    model.Discovery
		want error
	}{
		{
			name: "malformed xml",
			d:    model.Discovery{Kind: model.KindCategory, Name: "broken", Path: "/broken/metadata.xml"},
		},
		{
			name: "element after root",
			d:    model.Discovery{Kind: model.KindCategory, Name: "junk", Path: "/junk/metadata.xml"},
		},
		{
			name: "text after root",
			d:    model.Discovery{Kind: model.KindCategory, Name: "extra", Path: "/extra/metadata.xml"},
			want: ErrTrailingContent,
		},
		{
			name: "missing file",
			d:    model.Discovery{Kind: model.KindPackage, Name: "gone", Path: "/gone/metadata.xml"},
		},
		{
			name: "unknown kind",
			d:    model.Discovery{Name: "ok", Path: "/ok/metadata.xml"},
			want: ErrUnknownKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := l.Load(tt.d)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("got %v, expected *ParseError", err)
			}
			if parseErr.Path != tt.d.Path {
				t.Errorf("got path %q, expected %q", parseErr.Path, tt.d.Path)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestLoadDeclaredEncoding(t *testing.T) {
	t.Parallel()

	l := newLoader(t, map[string]string{
		"/latin1/metadata.xml": "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
			"<catmetadata><longdescription lang=\"en\">Caf\xe9 tools</longdescription></catmetadata>",
	})

	rec, err := l.Load(model.Discovery{Kind: model.KindCategory, Name: "latin1", Path: "/latin1/metadata.xml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cat, ok := rec.(model.Category)
	if !ok {
		t.Fatalf("got %T, expected model.Category", rec)
	}
	if cat.Description != "Café tools" {
		t.Errorf("got description %q, expected %q", cat.Description, "Café tools")
	}
}

func TestLoadAllowsTrailingMisc(t *testing.T) {
	t.Parallel()

	l := newLoader(t, map[string]string{
		"/misc/metadata.xml": "<catmetadata><longdescription lang=\"en\">ok</longdescription></catmetadata>\n" +
			"<!-- generated -->\n<?stylesheet href=\"x\"?>\n",
	})

	rec, err := l.Load(model.Discovery{Kind: model.KindCategory, Name: "misc", Path: "/misc/metadata.xml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.(model.Category).Description; got != "ok" {
		t.Errorf("got description %q, expected ok", got)
	}
}
