package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// box is a positioned piece of text in page space before it is split into
// words. y is the bottom of the box.
type box struct {
	text       string
	x, y, w, h float64
	size       float64

	// edges holds the offset from x of the left edge of every rune, and of
	// the right edge of the last one. Boxes without glyph metrics leave it
	// nil and their width is shared evenly.
	edges []float64

	// line is the recognizer's line key, or -1 when the line has to be
	// found from geometry.
	line int
}

// word is one run before offsets are assigned.
type word struct {
	text       string
	x, y, w, h float64
}

func (w word) right() float64 { return w.x + w.w }
func (w word) top() float64   { return w.y + w.h }

// layout groups boxes into lines and lines into words.
type layout struct {
	mergeGap      float64
	lineTolerance float64
}

// lines returns the words of a page, line by line, in reading order.
func (l layout) lines(boxes []box) [][]word {
	var out [][]word
	for _, group := range l.groupLines(boxes) {
		words := l.words(group)
		if len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}

func (l layout) groupLines(boxes []box) [][]box {
	if len(boxes) == 0 {
		return nil
	}

	keyed := true
	for _, b := range boxes {
		if b.line < 0 {
			keyed = false
			break
		}
	}

	var groups [][]box
	if keyed {
		index := make(map[int]int)
		for _, b := range boxes {
			i, ok := index[b.line]
			if !ok {
				i = len(groups)
				index[b.line] = i
				groups = append(groups, nil)
			}
			groups[i] = append(groups[i], b)
		}
	} else {
		sorted := make([]box, len(boxes))
		copy(sorted, boxes)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].y > sorted[j].y
		})

		var current []box
		var refY, refH float64
		for _, b := range sorted {
			if len(current) > 0 && refY-b.y <= l.lineTolerance*maxf(refH, b.h) {
				current = append(current, b)
				refH = maxf(refH, b.h)
				continue
			}
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = []box{b}
			refY, refH = b.y, b.h
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
	}

	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].x < g[j].x
		})
	}
	return groups
}

// words splits the boxes of one line on whitespace and joins pieces of
// adjacent boxes that touch.
func (l layout) words(line []box) []word {
	var out []word
	var prev *box
	for i := range line {
		b := &line[i]
		runes := []rune(b.text)
		if len(runes) == 0 {
			continue
		}
		edge := b.edgeFunc(len(runes))

		glue := prev != nil &&
			!unicode.IsSpace(runes[0]) &&
			!endsWithSpace(prev.text) &&
			len(out) > 0 &&
			b.x-out[len(out)-1].right() < l.mergeGap*maxf(b.size, prev.size)

		start := -1
		flush := func(end int) {
			piece := word{
				text: string(runes[start:end]),
				x:    b.x + edge(start),
				y:    b.y,
				w:    edge(end) - edge(start),
				h:    b.h,
			}
			if start == 0 && glue {
				out[len(out)-1] = join(out[len(out)-1], piece)
			} else {
				out = append(out, piece)
			}
			start = -1
		}
		for j, r := range runes {
			if unicode.IsSpace(r) {
				if start >= 0 {
					flush(j)
				}
				continue
			}
			if start < 0 {
				start = j
			}
		}
		if start >= 0 {
			flush(len(runes))
		}
		prev = b
	}

	kept := out[:0]
	for _, w := range out {
		w.text = normalize(w.text)
		if w.text != "" {
			kept = append(kept, w)
		}
	}
	return kept
}

// edgeFunc returns the offset of rune i from the left of the box.
func (b *box) edgeFunc(n int) func(i int) float64 {
	if len(b.edges) == n+1 {
		return func(i int) float64 { return b.edges[i] }
	}
	perRune := b.w / float64(n)
	return func(i int) float64 { return perRune * float64(i) }
}

// join extends a with b, covering both boxes.
func join(a, b word) word {
	x := minf(a.x, b.x)
	y := minf(a.y, b.y)
	return word{
		text: a.text + b.text,
		x:    x,
		y:    y,
		w:    maxf(a.right(), b.right()) - x,
		h:    maxf(a.top(), b.top()) - y,
	}
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && unicode.IsSpace(r)
}

// normalize returns s as valid NFC text without control characters.
func normalize(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(s)
}

// assembler builds the assembled text and assigns run offsets.
type assembler struct {
	b    strings.Builder
	pos  int
	runs []TextRun
}

// page appends one page and returns its [start, end) offsets, the page
// separator included.
func (a *assembler) page(index int, lines [][]word) (int, int) {
	start := a.pos
	for _, line := range lines {
		for i, w := range line {
			n := utf8.RuneCountInString(w.text)
			a.runs = append(a.runs, TextRun{
				Start:  a.pos,
				End:    a.pos + n,
				Page:   index,
				X:      w.x,
				Y:      w.y,
				Width:  w.w,
				Height: w.h,
				Text:   w.text,
			})
			a.b.WriteString(w.text)
			if i == len(line)-1 {
				a.b.WriteByte('\n')
			} else {
				a.b.WriteByte(' ')
			}
			a.pos += n + 1
		}
	}
	a.b.WriteString(PageSeparator)
	a.pos += utf8.RuneCountInString(PageSeparator)
	return start, a.pos
}

func (a *assembler) text() string {
	return a.b.String()
}

// lineTexts returns each line as its words joined by single spaces.
func lineTexts(lines [][]word) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		parts := make([]string, len(line))
		for i, w := range line {
			parts[i] = w.text
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

// charCount returns the length of the page text joined by line breaks.
func charCount(lines [][]word) int {
	n := 0
	for _, t := range lineTexts(lines) {
		n += utf8.RuneCountInString(t)
	}
	if len(lines) > 1 {
		n += len(lines) - 1
	}
	return n
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
