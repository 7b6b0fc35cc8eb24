package model

import (
	"fmt"
)

// Kind classifies a metadata file by where it sits in the tree.
type Kind int

const (
	// KindCategory is a metadata file in a directory directly below the root.
	KindCategory Kind = iota + 1

	// KindPackage is a metadata file anywhere deeper than a category.
	KindPackage
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindPackage:
		return "package"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name so reports stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindCategory && k != KindPackage {
		return nil, fmt.Errorf("unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "category":
		*k = KindCategory
	case "package":
		*k = KindPackage
	default:
		return fmt.Errorf("unknown kind %q", string(text))
	}
	return nil
}

// MetadataFileName is the only file name the scanner recognizes.
const MetadataFileName = "metadata.xml"

// Discovery is produced once per metadata.xml file found by the scanner.
// It is a value type and is never modified after creation.
type Discovery struct {
	// Kind is the classification derived from the directory depth.
	Kind Kind `json:"kind"`

	// CategoryName is the category the unit belongs to. For a category it is
	// the category's own name. It may be empty for packages found before any
	// category metadata was seen.
	CategoryName string `json:"category,omitempty"`

	// Name is the base name of the directory holding the metadata file.
	Name string `json:"name"`

	// Path is the metadata file path inside the scanned filesystem.
	Path string `json:"path"`
}

// String returns "category" for categories and "category/name" for packages.
func (d Discovery) String() string {
	if d.Kind == KindCategory || d.CategoryName == "" {
		return d.Name
	}
	return d.CategoryName + "/" + d.Name
}
