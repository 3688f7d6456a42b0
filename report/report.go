// Package report renders a line diff as a side-by-side review document.
//
// A Report is built once from the diff engine's line rows and can then be
// written as HTML, colored terminal text, JSON or YAML:
//
//	rep := report.Build(diff.Lines(doc1.Text, doc2.Text))
//	rep.File1, rep.File2 = "old.pdf", "new.pdf"
//	err := report.WriteHTML(w, rep, report.Options{Standalone: true})
package report

import (
	"github.com/tsawler/pdfcompare/diff"
)

// Row is a line row with word spans. Left and Right are set only for
// modified rows; they rebuild Text1 and Text2 respectively.
type Row struct {
	diff.LineRow `yaml:",inline"`

	Left  []diff.Span `json:"left,omitempty" yaml:"left,omitempty"`
	Right []diff.Span `json:"right,omitempty" yaml:"right,omitempty"`
}

// Summary counts rows by kind.
type Summary struct {
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Added     int `json:"added" yaml:"added"`
	Removed   int `json:"removed" yaml:"removed"`
	Modified  int `json:"modified" yaml:"modified"`
}

// Changes returns the number of rows that are not unchanged.
func (s Summary) Changes() int {
	return s.Added + s.Removed + s.Modified
}

// Summarize counts rows by kind.
func Summarize(rows []diff.LineRow) Summary {
	var s Summary
	for _, r := range rows {
		s.add(r.Kind)
	}
	return s
}

func (s *Summary) add(k diff.Kind) {
	switch k {
	case diff.Added:
		s.Added++
	case diff.Removed:
		s.Removed++
	case diff.Modified:
		s.Modified++
	default:
		s.Unchanged++
	}
}

// Report is a renderable line diff.
type Report struct {
	File1   string  `json:"file1,omitempty" yaml:"file1,omitempty"`
	File2   string  `json:"file2,omitempty" yaml:"file2,omitempty"`
	Rows    []Row   `json:"rows" yaml:"rows"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// Build creates a report from line rows, adding word spans to modified rows.
func Build(rows []diff.LineRow) *Report {
	rep := &Report{Rows: make([]Row, 0, len(rows))}
	for _, lr := range rows {
		row := Row{LineRow: lr}
		if lr.Kind == diff.Modified {
			row.Left, row.Right = diff.Inline(lr.Text1, lr.Text2)
		}
		rep.Rows = append(rep.Rows, row)
		rep.Summary.add(lr.Kind)
	}
	return rep
}

// Options controls the HTML and text renderers.
type Options struct {
	// ChangesOnly hides unchanged rows except for Context rows around each
	// change. Hidden stretches are shown as a single gap row.
	ChangesOnly bool
	Context     int

	// Standalone wraps the HTML table in a complete document with styles.
	Standalone bool
	Title      string

	// Width is the text column width in characters. Zero means 60.
	Width int

	// NoColor disables terminal colors in text output.
	NoColor bool
}

const defaultWidth = 60

// item is a visible row, or a gap of hidden unchanged rows when row is nil.
type item struct {
	row     *Row
	skipped int
}

func visible(rows []Row, opts Options) []item {
	items := make([]item, 0, len(rows))
	if !opts.ChangesOnly {
		for i := range rows {
			items = append(items, item{row: &rows[i]})
		}
		return items
	}

	ctx := max(opts.Context, 0)
	keep := make([]bool, len(rows))
	for i, r := range rows {
		if !r.Kind.Changed() {
			continue
		}
		for j := max(0, i-ctx); j <= min(len(rows)-1, i+ctx); j++ {
			keep[j] = true
		}
	}

	skipped := 0
	for i := range rows {
		if !keep[i] {
			skipped++
			continue
		}
		if skipped > 0 {
			items = append(items, item{skipped: skipped})
			skipped = 0
		}
		items = append(items, item{row: &rows[i]})
	}
	if skipped > 0 {
		items = append(items, item{skipped: skipped})
	}
	return items
}

// lineSpans returns the spans of one side of a row.
func lineSpans(r *Row, left bool) []diff.Span {
	switch {
	case r.Kind == diff.Modified && left && r.Left != nil:
		return r.Left
	case r.Kind == diff.Modified && !left && r.Right != nil:
		return r.Right
	case left && r.LineNumber1 < 0, !left && r.LineNumber2 < 0:
		return nil
	case left && r.Kind == diff.Removed:
		return []diff.Span{{Text: r.Text1, Kind: diff.Removed}}
	case !left && r.Kind == diff.Added:
		return []diff.Span{{Text: r.Text2, Kind: diff.Added}}
	case left:
		return []diff.Span{{Text: r.Text1, Kind: diff.Unchanged}}
	default:
		return []diff.Span{{Text: r.Text2, Kind: diff.Unchanged}}
	}
}
