package scanner

import (
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/nao1215/packagebot/internal/model"
)

// Scanner walks a filesystem looking for metadata files.
// A Scanner holds no walk state between calls, so one value may be used for
// any number of scans. Each sequence returned by Scan is single use.
type Scanner struct {
	// fs is the filesystem the tree lives in.
	fs billy.Filesystem

	// logger receives a warning for each directory that cannot be read.
	logger *slog.Logger

	// onWarning is called with every ScanError, in walk order.
	onWarning func(*ScanError)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for scan warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithWarningHandler registers a callback for unreadable directories.
func WithWarningHandler(fn func(*ScanError)) Option {
	return func(s *Scanner) {
		s.onWarning = fn
	}
}

// New creates a Scanner over fs.
func New(fs billy.Filesystem, opts ...Option) *Scanner {
	s := &Scanner{
		fs:     fs,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the metadata files under root, one Discovery per file.
// A directory's own metadata file is yielded before any of its
// subdirectories are entered, and siblings are visited in name order.
// Symbolic links to directories are not followed. Breaking out of the
// range loop stops the walk.
func (s *Scanner) Scan(root string) iter.Seq[model.Discovery] {
	root = filepath.Clean(root)
	return func(yield func(model.Discovery) bool) {
		w := &walk{scanner: s, root: root, yield: yield}
		w.dir(root)
	}
}

// walk is the state of a single traversal.
type walk struct {
	scanner *Scanner
	root    string
	yield   func(model.Discovery) bool

	// category is the last category name seen anywhere in the walk. It is
	// deliberately not scoped to the current path.
	category string
}

// dir visits one directory and returns false once the consumer stopped.
func (w *walk) dir(path string) bool {
	entries, err := w.scanner.fs.ReadDir(path)
	if err != nil {
		w.warn(&ScanError{Path: path, Err: err})
		return true
	}
	slices.SortFunc(entries, func(a, b os.FileInfo) int {
		return strings.Compare(a.Name(), b.Name())
	})

	var subdirs []string
	hasMetadata := false
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			subdirs = append(subdirs, entry.Name())
		case entry.Name() == model.MetadataFileName && entry.Mode()&os.ModeSymlink == 0:
			hasMetadata = true
		}
	}

	if hasMetadata {
		if !w.yield(w.classify(path)) {
			return false
		}
	}

	for _, name := range subdirs {
		if !w.dir(w.scanner.fs.Join(path, name)) {
			return false
		}
	}
	return true
}

// classify builds the Discovery for a directory known to hold a metadata file.
func (w *walk) classify(path string) model.Discovery {
	name := filepath.Base(path)
	metadataPath := w.scanner.fs.Join(path, model.MetadataFileName)

	if path != w.root && filepath.Dir(path) == w.root {
		w.category = name
		return model.Discovery{
			Kind:         model.KindCategory,
			CategoryName: name,
			Name:         name,
			Path:         metadataPath,
		}
	}
	return model.Discovery{
		Kind:         model.KindPackage,
		CategoryName: w.category,
		Name:         name,
		Path:         metadataPath,
	}
}

func (w *walk) warn(err *ScanError) {
	w.scanner.logger.Warn("skipping unreadable directory", "path", err.Path, "error", err.Err)
	if w.scanner.onWarning != nil {
		w.scanner.onWarning(err)
	}
}
