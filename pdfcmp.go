// Package pdfcmp compares two PDF documents by their object graph.
//
// Both files are loaded into an in-memory object model and walked in step:
// dictionaries key by key, arrays item by item, streams by decoded content.
// Volatile entries (modification dates, parent back-links, encryption salt)
// are ignored, and references to pages compare by page position instead of
// object number, so two files written by different producers can still be
// equivalent. Every difference carries the path at which it was found.
//
// # Quick Start
//
//	res, err := pdfcmp.CompareFiles("expected.pdf", "actual.pdf", pdfcmp.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	if !res.OK() {
//		fmt.Print(res.Text())
//	}
//
// # Packages
//
//   - core/object: document graph model
//   - core/parse: loader (xref tables, xref streams, object streams, recovery)
//   - core/write: serializer
//   - core/compare: structural comparison and reports
//   - core/visual: rendering fallback through Ghostscript and ImageMagick
//   - types: errors and warnings
package pdfcmp

import (
	"github.com/benedoc-inc/pdfcmp/core/compare"
	"github.com/benedoc-inc/pdfcmp/core/parse"
)

// Re-export common types for convenience.

// Options configures a comparison.
type Options = compare.Options

// Result holds the differences of one comparison.
type Result = compare.Result

// Difference is one recorded difference and its path.
type Difference = compare.Difference

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return compare.DefaultOptions()
}

// Version returns the library version.
func Version() string {
	return "0.4.0"
}

// CompareFiles loads both files and compares them. opts.Logger, when set,
// also receives loader diagnostics.
func CompareFiles(leftPath, rightPath string, opts Options) (*Result, error) {
	left, err := parse.Open(leftPath, parse.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	right, err := parse.Open(rightPath, parse.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	return compare.CompareDocuments(left, right, opts)
}
