package pipeline

import (
	"fmt"
	"regexp"

	"github.com/nao1215/packagebot/internal/metadata"
	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/wiki"
)

// Edit summaries attached to created pages.
const (
	CategorySummary = "Packagebot created the category template content"
	PackageSummary  = "Packagebot created the package template content"
)

// CategoryNamespace prefixes category page titles.
const CategoryNamespace = "Category:"

// Page is the wiki page rendered from one record.
type Page struct {
	Title   string
	Content string
	Summary string
}

// RenderPage renders the page for rec.
//
// Categories become Category:<name> holding a PortageCategory template.
// Packages become <category>/<name>, or just <name> when the category is
// unknown, holding a PortagePackage template.
func RenderPage(rec model.Record) (Page, error) {
	var page Page
	switch r := rec.(type) {
	case model.Category:
		page = Page{
			Title:   CategoryNamespace + r.Name,
			Content: fmt.Sprintf("{{PortageCategory|description=<nowiki>%s</nowiki>}}", escapeNowiki(r.Description)),
			Summary: CategorySummary,
		}
	case model.Package:
		page = Page{
			Title: r.Key(),
			Content: fmt.Sprintf("{{PortagePackage|category=%s|name=%s|description=<nowiki>%s</nowiki>}}",
				r.CategoryName, r.Name, escapeNowiki(r.Document.Description(metadata.DescriptionLang))),
			Summary: PackageSummary,
		}
	default:
		return Page{}, fmt.Errorf("%w: %T", ErrUnknownRecord, rec)
	}

	page.Title = wiki.NormalizeTitle(page.Title)
	if err := wiki.ValidateTitle(page.Title); err != nil {
		return Page{}, err
	}
	return page, nil
}

// nowikiClose matches every spelling MediaWiki accepts as a closing nowiki tag.
var nowikiClose = regexp.MustCompile(`(?i)</\s*nowiki\s*>`)

// escapeNowiki keeps description text from closing the nowiki block early.
func escapeNowiki(s string) string {
	return nowikiClose.ReplaceAllStringFunc(s, func(tag string) string {
		return "&lt;" + tag[1:len(tag)-1] + "&gt;"
	})
}
