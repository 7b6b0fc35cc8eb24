package scanner

import "fmt"

// ScanError reports a directory that could not be read.
// The scanner skips the directory and keeps walking.
type ScanError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *ScanError) Unwrap() error {
	return e.Err
}
