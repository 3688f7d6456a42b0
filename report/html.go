package report

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/pdfcompare/diff"
)

const stylesheet = `
table.pdfcompare-diff { border-collapse: collapse; font-family: monospace; font-size: 13px; width: 100%; }
table.pdfcompare-diff th { background: #f0f0f0; text-align: left; padding: 4px 8px; }
table.pdfcompare-diff td { vertical-align: top; padding: 1px 8px; white-space: pre-wrap; }
table.pdfcompare-diff td.ln { color: #888; text-align: right; user-select: none; width: 3em; }
tr.added td.new { background: #e6ffed; }
tr.removed td.old { background: #ffeef0; }
tr.modified td.text { background: #fffbdd; }
tr.gap td { color: #888; text-align: center; background: #fafafa; }
ins { background: #acf2bd; text-decoration: none; }
del { background: #fdb8c0; }
mark { background: #f9e076; }
`

// WriteHTML renders the report as a four-column table: line number and text
// for each document. Removed words are wrapped in <del>, added lines in <ins>
// and the new words of modified lines in <mark>.
func WriteHTML(w io.Writer, rep *Report, opts Options) error {
	table := htmlTable(rep, opts)
	if !opts.Standalone {
		return html.Render(w, table)
	}

	title := opts.Title
	if title == "" {
		title = "PDF comparison"
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, attr("lang", "en"))
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	head.AppendChild(withText(element(atom.Title), title))
	head.AppendChild(withText(element(atom.Style), stylesheet))

	body := element(atom.Body)
	body.AppendChild(withText(element(atom.H1), title))
	s := rep.Summary
	body.AppendChild(withText(element(atom.P, attr("class", "summary")),
		fmt.Sprintf("%d added, %d removed, %d modified, %d unchanged", s.Added, s.Removed, s.Modified, s.Unchanged)))
	body.AppendChild(table)

	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)
	return html.Render(w, doc)
}

func htmlTable(rep *Report, opts Options) *html.Node {
	table := element(atom.Table, attr("class", "pdfcompare-diff"))

	thead := element(atom.Thead)
	hr := element(atom.Tr)
	hr.AppendChild(element(atom.Th, attr("class", "ln")))
	hr.AppendChild(withText(element(atom.Th), headerName(rep.File1, "Document 1")))
	hr.AppendChild(element(atom.Th, attr("class", "ln")))
	hr.AppendChild(withText(element(atom.Th), headerName(rep.File2, "Document 2")))
	thead.AppendChild(hr)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, it := range visible(rep.Rows, opts) {
		if it.row == nil {
			tr := element(atom.Tr, attr("class", "gap"))
			tr.AppendChild(withText(element(atom.Td, attr("colspan", "4")),
				fmt.Sprintf("%d unchanged lines", it.skipped)))
			tbody.AppendChild(tr)
			continue
		}

		r := it.row
		tr := element(atom.Tr, attr("class", r.Kind.String()))
		tr.AppendChild(withText(element(atom.Td, attr("class", "ln")), lineNumber(r.LineNumber1)))
		tr.AppendChild(spanCell(lineSpans(r, true), "text old", r.Kind))
		tr.AppendChild(withText(element(atom.Td, attr("class", "ln")), lineNumber(r.LineNumber2)))
		tr.AppendChild(spanCell(lineSpans(r, false), "text new", r.Kind))
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table
}

func spanCell(spans []diff.Span, class string, row diff.Kind) *html.Node {
	td := element(atom.Td, attr("class", class))
	for _, sp := range spans {
		var wrap *html.Node
		switch {
		case sp.Kind == diff.Removed:
			wrap = element(atom.Del)
		case sp.Kind == diff.Added && row == diff.Modified:
			wrap = element(atom.Mark)
		case sp.Kind == diff.Added:
			wrap = element(atom.Ins)
		}
		if wrap == nil {
			td.AppendChild(textNode(sp.Text))
			continue
		}
		td.AppendChild(withText(wrap, sp.Text))
	}
	return td
}

func headerName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func lineNumber(n int) string {
	if n < 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(n *html.Node, s string) *html.Node {
	if s != "" {
		n.AppendChild(textNode(s))
	}
	return n
}
