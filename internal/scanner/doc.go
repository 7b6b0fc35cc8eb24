// Package scanner locates metadata.xml files in a package tree and classifies
// each one as a category or a package.
//
// The walk is depth first and top down over a go-billy filesystem, so the
// same code runs against the real tree (osfs) and against in-memory trees in
// tests (memfs). Results are produced lazily as an iter.Seq.
//
// Classification is purely positional. A directory whose parent is the scan
// root is a category. Every other directory holding a metadata.xml is a
// package and inherits the most recently seen category name. Directories
// nested more than two levels deep are therefore reported as packages of the
// last category visited, even when they are not real packages.
package scanner
