package pdfcompare

import (
	"github.com/tsawler/pdfcompare/diff"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/report"
)

// Result is the outcome of one comparison.
type Result struct {
	Name1 string `json:"name1"`
	Name2 string `json:"name2"`

	// Doc1 and Doc2 are the local extractions. Segment and region offsets
	// refer to Doc2.Text.
	Doc1 *extract.Document `json:"-"`
	Doc2 *extract.Document `json:"-"`

	Rows     []diff.LineRow     `json:"rows"`
	Segments []diff.Segment     `json:"segments"`
	Regions  []highlight.Region `json:"regions"`
	Summary  report.Summary     `json:"summary"`

	// Annotated is the second document with the regions drawn on it. It is
	// a copy of the input when there is nothing to highlight, and empty when
	// annotation was skipped.
	Annotated []byte `json:"-"`

	Warnings []Warning `json:"warnings"`
}

// Identical reports whether the line diff found no changes.
func (r *Result) Identical() bool {
	return r.Summary.Changes() == 0
}

// Report builds the side-by-side report of the line diff.
func (r *Result) Report() *report.Report {
	rep := report.Build(r.Rows)
	rep.File1, rep.File2 = r.Name1, r.Name2
	return rep
}
