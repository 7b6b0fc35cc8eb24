package model

import (
	"encoding/xml"
	"strings"
)

// Document is the parsed content of a metadata.xml file.
// Both <catmetadata> and <pkgmetadata> roots decode into it; fields absent
// from a category document are simply left empty.
type Document struct {
	XMLName          xml.Name
	LongDescriptions []LongDescription `xml:"longdescription"`
	Maintainers      []Maintainer      `xml:"maintainer"`
	UseFlags         []UseFlag         `xml:"use>flag"`
	Upstream         *Upstream         `xml:"upstream"`
}

// LongDescription is a <longdescription> element in one language.
type LongDescription struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

// Maintainer is a <maintainer> element.
type Maintainer struct {
	Type        string `xml:"type,attr"`
	Email       string `xml:"email"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
}

// UseFlag is a <flag> element inside <use>.
type UseFlag struct {
	Name        string `xml:"name,attr"`
	Description string `xml:",chardata"`
}

// Upstream is the <upstream> element.
type Upstream struct {
	RemoteIDs []RemoteID `xml:"remote-id"`
}

// RemoteID identifies the package on an upstream hosting service.
type RemoteID struct {
	Type string `xml:"type,attr"`
	ID   string `xml:",chardata"`
}

// Description returns the long description for lang.
// When several descriptions share a language the last one wins. Whitespace
// runs are collapsed to single spaces. An empty string means no match.
func (d *Document) Description(lang string) string {
	if d == nil {
		return ""
	}
	description := ""
	for _, ld := range d.LongDescriptions {
		if ld.Lang == lang {
			description = strings.Join(strings.Fields(ld.Text), " ")
		}
	}
	return description
}

// Record is the parsed form of a Discovery. The set of implementations is
// closed: Category and Package are the only variants, and callers switch on
// them exhaustively.
type Record interface {
	// Kind reports which variant the record is.
	Kind() Kind

	// Key identifies the record within a run, e.g. "dev-lang" or
	// "dev-lang/go".
	Key() string

	isRecord()
}

// Category is a top-level grouping unit described by its own metadata file.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Kind implements Record.
func (Category) Kind() Kind { return KindCategory }

// Key implements Record.
func (c Category) Key() string { return c.Name }

func (Category) isRecord() {}

// Package is a leaf unit nested under a category.
type Package struct {
	Name         string    `json:"name"`
	CategoryName string    `json:"category,omitempty"`
	Document     *Document `json:"-"`
}

// Kind implements Record.
func (Package) Kind() Kind { return KindPackage }

// Key implements Record.
func (p Package) Key() string {
	if p.CategoryName == "" {
		return p.Name
	}
	return p.CategoryName + "/" + p.Name
}

func (Package) isRecord() {}

// ParseFailure records a metadata file that could not be turned into a Record.
type ParseFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}
