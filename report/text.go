package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/tsawler/pdfcompare/diff"
)

type palette struct {
	removed  *color.Color
	added    *color.Color
	modified *color.Color
	faint    *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		removed:  color.New(color.FgRed),
		added:    color.New(color.FgGreen),
		modified: color.New(color.FgYellow),
		faint:    color.New(color.Faint),
	}
	if noColor {
		for _, c := range []*color.Color{p.removed, p.added, p.modified, p.faint} {
			c.DisableColor()
		}
	}
	return p
}

// markers by row kind, indexed by diff.Kind.
var markers = [...]byte{' ', '+', '-', '~'}

// WriteText renders the report side by side for a terminal:
//
//	   1 ~ alpha beta              |    1 ~ alpha Gamma
//	   2 - gone                    |
//	     +                         |    2 + fresh
//
// Changed words are colored unless opts.NoColor is set.
func WriteText(w io.Writer, rep *Report, opts Options) error {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	pal := newPalette(opts.NoColor)
	bw := bufio.NewWriter(w)

	if rep.File1 != "" || rep.File2 != "" {
		fmt.Fprintf(bw, "%s%s | %s\n", strings.Repeat(" ", 7),
			pad(headerName(rep.File1, "Document 1"), width), headerName(rep.File2, "Document 2"))
	}

	for _, it := range visible(rep.Rows, opts) {
		if it.row == nil {
			fmt.Fprintln(bw, pal.faint.Sprintf("%s... %d unchanged lines", strings.Repeat(" ", 7), it.skipped))
			continue
		}
		r := it.row
		marker := byte('?')
		if int(r.Kind) < len(markers) {
			marker = markers[r.Kind]
		}
		left := renderCell(lineSpans(r, true), width, r.Kind, pal)
		right := renderCell(lineSpans(r, false), 0, r.Kind, pal)
		fmt.Fprintf(bw, "%4s %c %s | %4s %c %s\n",
			lineNumber(r.LineNumber1), marker, left,
			lineNumber(r.LineNumber2), marker, right)
	}

	s := rep.Summary
	fmt.Fprintf(bw, "\n%s, %s, %s, %d unchanged\n",
		pal.added.Sprintf("%d added", s.Added),
		pal.removed.Sprintf("%d removed", s.Removed),
		pal.modified.Sprintf("%d modified", s.Modified),
		s.Unchanged)
	return bw.Flush()
}

// renderCell colors the spans of one side and fits them to width runes.
// A width of zero leaves the text unpadded.
func renderCell(spans []diff.Span, width int, row diff.Kind, pal palette) string {
	var b strings.Builder
	used := 0
	truncated := false
	for _, sp := range spans {
		text := strings.ReplaceAll(sp.Text, "\t", " ")
		if width > 0 {
			room := width - used
			if room <= 0 {
				break
			}
			if utf8.RuneCountInString(text) > room {
				text = truncate(text, room-1)
				truncated = true
			}
		}
		used += utf8.RuneCountInString(text)
		b.WriteString(spanColor(sp.Kind, row, pal).Sprint(text))
		if truncated {
			b.WriteString("\u2026")
			used++
			break
		}
	}
	if width > used {
		b.WriteString(strings.Repeat(" ", width-used))
	}
	return b.String()
}

func spanColor(span, row diff.Kind, pal palette) *color.Color {
	switch {
	case span == diff.Removed:
		return pal.removed
	case span == diff.Added && row == diff.Modified:
		return pal.modified
	case span == diff.Added:
		return pal.added
	default:
		return noColor
	}
}

var noColor = func() *color.Color {
	c := color.New()
	c.DisableColor()
	return c
}()

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-n)
}
