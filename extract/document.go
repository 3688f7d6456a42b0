// Package extract turns PDF bytes into an assembled document text and a
// parallel list of positioned text runs.
//
// The assembled text is the only coordinate system the diff engine sees, so
// the extractor guarantees that concatenating the runs in offset order, with
// the separators described below, reproduces the text exactly:
//
//   - one separator character after every run: a space between runs on the
//     same line, a newline after the last run of a line;
//   - two newlines after every page, including pages without runs.
//
// Offsets are counted in Unicode code points.
//
// Basic usage:
//
//	ext := extract.NewLocal(extract.DefaultConfig())
//	doc, err := ext.ExtractDocument(ctx, data)
//	if err != nil {
//	    var exErr *extract.ExtractionError
//	    if errors.As(err, &exErr) { ... }
//	}
//	for _, run := range doc.Runs {
//	    fmt.Println(run.Text, run.Page, run.X, run.Y)
//	}
package extract

import (
	"strings"
	"unicode/utf8"
)

// Source identifies which strategy produced a Document.
type Source string

// Document sources.
const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// PageMethod records how the text of a page was obtained.
type PageMethod string

// Page methods. The string values match the statistics vocabulary used by
// the remote extraction service.
const (
	MethodDirectText PageMethod = "direct_text"
	MethodOCROnly    PageMethod = "ocr_only"
	MethodHybrid     PageMethod = "hybrid"
	MethodEmpty      PageMethod = "empty"
)

// PageSeparator is appended after every page of the assembled text.
const PageSeparator = "\n\n"

// Page is one page of a document, in page space (origin bottom-left, y up).
type Page struct {
	Index     int        `json:"index" yaml:"index"`
	Width     float64    `json:"width" yaml:"width"`
	Height    float64    `json:"height" yaml:"height"`
	Method    PageMethod `json:"method" yaml:"method"`
	HasImages bool       `json:"has_images" yaml:"has_images"`

	// Start and End delimit the page's text in the assembled text, the page
	// separator included.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Supplement holds text recognized inside images of a hybrid page. It is
	// not part of the offset space and has no runs.
	Supplement string `json:"supplement,omitempty" yaml:"supplement,omitempty"`

	// OCRFailed is set when the recognizer failed and the page kept only
	// its text layer.
	OCRFailed bool `json:"ocr_failed,omitempty" yaml:"ocr_failed,omitempty"`
}

// TextRun is a positioned piece of text belonging to exactly one page.
// Start and End are half-open offsets into the assembled text.
type TextRun struct {
	Start  int     `json:"start" yaml:"start"`
	End    int     `json:"end" yaml:"end"`
	Page   int     `json:"page" yaml:"page"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Text   string  `json:"text" yaml:"text"`
}

// Len returns the run length in offset units.
func (r TextRun) Len() int {
	return r.End - r.Start
}

// Stats counts pages by extraction method.
type Stats struct {
	TotalPages    int `json:"total_pages" yaml:"total_pages"`
	TextExtracted int `json:"text_extracted" yaml:"text_extracted"`
	OCRUsed       int `json:"ocr_used" yaml:"ocr_used"`
	Hybrid        int `json:"hybrid" yaml:"hybrid"`
	Empty         int `json:"empty" yaml:"empty"`
}

// Add counts one page with the given method.
func (s *Stats) Add(m PageMethod) {
	s.TotalPages++
	switch m {
	case MethodDirectText:
		s.TextExtracted++
	case MethodOCROnly:
		s.OCRUsed++
	case MethodHybrid:
		s.Hybrid++
	default:
		s.Empty++
	}
}

// Document is the output of an extraction strategy. It is immutable once
// returned.
type Document struct {
	Text   string    `json:"text" yaml:"text"`
	Runs   []TextRun `json:"runs,omitempty" yaml:"runs,omitempty"`
	Pages  []Page    `json:"pages" yaml:"pages"`
	Stats  Stats     `json:"stats" yaml:"stats"`
	Source Source    `json:"source" yaml:"source"`
}

// HasLayout reports whether the document carries positioned runs that can
// be used for highlighting.
func (d *Document) HasLayout() bool {
	return d != nil && d.Source == SourceLocal
}

// Len returns the length of the assembled text in offset units.
func (d *Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

// Slice returns the assembled text in [start, end), clamped to the text.
func (d *Document) Slice(start, end int) string {
	return sliceRunes(d.Text, start, end)
}

// RunsOnPage returns the runs of one page in reading order.
func (d *Document) RunsOnPage(page int) []TextRun {
	var out []TextRun
	for _, r := range d.Runs {
		if r.Page == page {
			out = append(out, r)
		}
	}
	return out
}

// ReportText returns the assembled text with each page's image supplement
// inserted before its page separator. It equals Text when no page has a
// supplement. ReportText is meant for human review only; its offsets do not
// match the runs.
func (d *Document) ReportText() string {
	hasSupplement := false
	for _, p := range d.Pages {
		if p.Supplement != "" {
			hasSupplement = true
			break
		}
	}
	if !hasSupplement {
		return d.Text
	}

	runes := []rune(d.Text)
	var b strings.Builder
	for _, p := range d.Pages {
		if p.Start < 0 || p.End > len(runes) || p.Start > p.End {
			continue
		}
		body := string(runes[p.Start:p.End])
		if p.Supplement != "" {
			body = strings.TrimSuffix(body, PageSeparator)
			body += SupplementMarker + "\n" + p.Supplement + "\n" + PageSeparator
		}
		b.WriteString(body)
	}
	return b.String()
}

// SupplementMarker introduces image text in ReportText.
const SupplementMarker = "[IMAGE CONTENT]"

func sliceRunes(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return ""
	}

	i := 0
	from, to := -1, len(s)
	for pos := range s {
		if i == start {
			from = pos
		}
		if i == end {
			to = pos
			break
		}
		i++
	}
	if from < 0 {
		return ""
	}
	return s[from:to]
}
