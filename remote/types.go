package remote

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/pdfcompare/extract"
)

// Stats counts pages by extraction method. The service and the local
// extractor share the vocabulary.
type Stats = extract.Stats

// PageData is one page as reported by the service.
type PageData struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	Method     string `json:"method"`
	HasImages  bool   `json:"has_images"`
}

// DocumentResult is the extraction of one file.
type DocumentResult struct {
	Filename string     `json:"filename"`
	Text     string     `json:"text"`
	Pages    []PageData `json:"pages"`
	Stats    Stats      `json:"stats"`
}

// ExtractResponse is the body of POST /api/extract.
type ExtractResponse struct {
	Success bool `json:"success"`
	DocumentResult
}

// CompareResponse is the body of POST /api/compare.
type CompareResponse struct {
	Success  bool           `json:"success"`
	File1    DocumentResult `json:"file1"`
	File2    DocumentResult `json:"file2"`
	HTMLDiff string         `json:"html_diff,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Document converts the result to an extract.Document without runs.
//
// The service text carries its own page banners, so the assembled text is
// rebuilt from the page texts with the local layout: one line per text line,
// single spaces between words and a page separator after every page. Texts
// of both strategies then diff line for line.
func (r *DocumentResult) Document() *extract.Document {
	pages := r.Pages
	if len(pages) == 0 && strings.TrimSpace(r.Text) != "" {
		pages = []PageData{{PageNumber: 1, Text: r.Text, Method: string(extract.MethodDirectText)}}
	}
	pages = append([]PageData(nil), pages...)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})

	doc := &extract.Document{Source: extract.SourceRemote, Stats: r.Stats}
	var b strings.Builder
	pos := 0
	for i, p := range pages {
		body := pageBody(p.Text) + extract.PageSeparator
		b.WriteString(body)

		index := p.PageNumber - 1
		if index < 0 {
			index = i
		}
		method := extract.PageMethod(p.Method)
		if method == "" {
			method = extract.MethodEmpty
			if strings.TrimSpace(p.Text) != "" {
				method = extract.MethodDirectText
			}
		}

		n := utf8.RuneCountInString(body)
		doc.Pages = append(doc.Pages, extract.Page{
			Index:     index,
			Method:    method,
			HasImages: p.HasImages,
			Start:     pos,
			End:       pos + n,
		})
		pos += n
	}
	doc.Text = b.String()

	if doc.Stats.TotalPages == 0 {
		for _, p := range doc.Pages {
			doc.Stats.Add(p.Method)
		}
	}
	return doc
}

func pageBody(text string) string {
	var lines []string
	for _, line := range strings.Split(norm.NFC.String(text), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// NewDocumentResult describes a local extraction in the service format.
// Page texts carry the image supplement after extract.SupplementMarker, and
// Text is the report text.
func NewDocumentResult(filename string, doc *extract.Document) DocumentResult {
	res := DocumentResult{
		Filename: filename,
		Text:     doc.ReportText(),
		Pages:    make([]PageData, 0, len(doc.Pages)),
		Stats:    doc.Stats,
	}
	for _, p := range doc.Pages {
		text := strings.TrimRight(doc.Slice(p.Start, p.End), "\n")
		if p.Supplement != "" {
			if text != "" {
				text += "\n"
			}
			text += extract.SupplementMarker + "\n" + p.Supplement
		}
		res.Pages = append(res.Pages, PageData{
			PageNumber: p.Index + 1,
			Text:       text,
			Method:     string(p.Method),
			HasImages:  p.HasImages,
		})
	}
	return res
}
