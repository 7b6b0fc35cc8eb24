package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/packagebot/internal/model"
)

// DescriptionLang is the language whose long description is used for pages.
const DescriptionLang = "en"

// maxFileSize bounds how much of a single metadata file is read.
const maxFileSize = 1 << 20

var (
	// ErrUnknownKind is returned for a discovery with an unset kind.
	ErrUnknownKind = errors.New("unknown discovery kind")
	// ErrTrailingContent is returned when markup follows the root element.
	ErrTrailingContent = errors.New("junk after document element")
)

// ParseError reports a metadata file that could not be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying read or decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Loader reads metadata files from a filesystem.
// It holds no mutable state and is safe for concurrent use.
type Loader struct {
	fs billy.Filesystem
}

// NewLoader creates a Loader reading from fs.
func NewLoader(fs billy.Filesystem) *Loader {
	return &Loader{fs: fs}
}

// Parse decodes the metadata file at path.
func (l *Loader) Parse(path string) (*model.Document, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	dec := xml.NewDecoder(io.LimitReader(f, maxFileSize))
	dec.CharsetReader = charset.NewReaderLabel

	var doc model.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := expectEOF(dec); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &doc, nil
}

// expectEOF consumes the rest of the document. Only whitespace, comments
// and processing instructions may follow the root element.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return ErrTrailingContent
			}
		default:
			return ErrTrailingContent
		}
	}
}

// Load parses the file behind d and builds the matching record variant.
func (l *Loader) Load(d model.Discovery) (model.Record, error) {
	doc, err := l.Parse(d.Path)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case model.KindCategory:
		return model.Category{
			Name:        d.Name,
			Description: doc.Description(DescriptionLang),
		}, nil
	case model.KindPackage:
		return model.Package{
			Name:         d.Name,
			CategoryName: d.CategoryName,
			Document:     doc,
		}, nil
	default:
		return nil, &ParseError{Path: d.Path, Err: ErrUnknownKind}
	}
}
