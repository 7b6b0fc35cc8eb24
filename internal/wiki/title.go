package wiki

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxTitleBytes is MediaWiki's limit on the UTF-8 length of a title.
const maxTitleBytes = 255

// illegalTitleChars can never appear in a MediaWiki page title.
const illegalTitleChars = "#<>[]|{}"

// NormalizeTitle returns title in the form MediaWiki stores it, apart from
// first-letter capitalization, which depends on wiki configuration.
// Underscores become spaces, whitespace runs collapse, and the result is
// Unicode NFC.
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.Join(strings.Fields(title), " ")
	return norm.NFC.String(title)
}

// ValidateTitle reports whether MediaWiki can store title.
func ValidateTitle(title string) error {
	switch {
	case title == "":
		return fmt.Errorf("%w: empty", ErrInvalidTitle)
	case len(title) > maxTitleBytes:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidTitle, maxTitleBytes)
	case strings.ContainsAny(title, illegalTitleChars):
		return fmt.Errorf("%w: %q contains one of %s", ErrInvalidTitle, title, illegalTitleChars)
	}
	return nil
}
