// Package pdftest builds small, well-formed PDF files for tests. Every page
// uses the standard Helvetica font and each text item is drawn with its own
// absolute Td, so the positions in tests are the positions in the file.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Letter page size in points.
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// Text is one string drawn at a baseline position.
type Text struct {
	X, Y float64
	Size float64
	Text string
}

// Page describes one page of a test document.
type Page struct {
	// Width and Height default to US Letter.
	Width, Height float64

	// OriginX and OriginY set the MediaBox lower-left corner.
	OriginX, OriginY float64

	Texts []Text

	// Image places a 1x1 grey image XObject on the page.
	Image bool

	// Raw is appended verbatim to the page content stream.
	Raw string
}

// Lines returns a Letter page with one text item per line, 12pt, starting at
// (72, 720) and moving down 16pt per line.
func Lines(lines ...string) Page {
	p := Page{}
	for i, line := range lines {
		p.Texts = append(p.Texts, Text{X: 72, Y: 720 - float64(i)*16, Size: 12, Text: line})
	}
	return p
}

// Build assembles a PDF with a correct cross-reference table.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1 catalog, 2 page tree, 3 font, 4 image, then page/content pairs.
	firstPage := 5
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	obj("<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length 1 >>\nstream\n\x80\nendstream")

	for i, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 {
			w = LetterWidth
		}
		if h == 0 {
			h = LetterHeight
		}

		resources := "<< /Font << /F1 3 0 R >> >>"
		if p.Image {
			resources = "<< /Font << /F1 3 0 R >> /XObject << /Im1 4 0 R >> >>"
		}

		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [%s %s %s %s] /Resources %s /Contents %d 0 R >>",
			num(p.OriginX), num(p.OriginY), num(p.OriginX+w), num(p.OriginY+h), resources, firstPage+2*i+1))

		content := p.content()
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// File writes the document to a temporary file and returns its path.
func File(t testing.TB, pages ...Page) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, Build(pages...), 0644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

func (p Page) content() string {
	var b strings.Builder
	if p.Image {
		fmt.Fprintf(&b, "q 100 0 0 100 %s %s cm /Im1 Do Q\n", num(p.OriginX+50), num(p.OriginY+50))
	}
	for _, t := range p.Texts {
		size := t.Size
		if size == 0 {
			size = 12
		}
		fmt.Fprintf(&b, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(size), num(t.X), num(t.Y), escape(t.Text))
	}
	b.WriteString(p.Raw)
	return b.String()
}

func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
