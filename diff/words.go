package diff

import (
	"strings"
	"unicode/utf8"
)

// Words aligns the two full texts word by word. Whitespace runs are tokens
// of their own, so the run texts of one side concatenate back to that text.
func Words(text1, text2 string) []WordRun {
	ops := align(splitWords(text1), splitWords(text2))
	runs := make([]WordRun, 0, len(ops))
	for _, o := range ops {
		runs = append(runs, WordRun{Kind: o.kind, Text: strings.Join(o.tokens, "")})
	}
	return runs
}

// Segments returns the added and modified ranges of text2 in rune offsets.
//
// The word alignment is walked once. Unchanged runs advance the offset,
// removed runs neither advance it nor produce a segment, and each added
// run becomes a segment. An added run is Modified when the run immediately
// before or after it is removed.
func Segments(text1, text2 string) []Segment {
	return segmentsOf(Words(text1, text2))
}

func segmentsOf(runs []WordRun) []Segment {
	var segments []Segment
	pos2 := 0
	for i, run := range runs {
		n := utf8.RuneCountInString(run.Text)
		switch run.Kind {
		case Removed:
			continue
		case Added:
			kind := Added
			if (i > 0 && runs[i-1].Kind == Removed) || (i+1 < len(runs) && runs[i+1].Kind == Removed) {
				kind = Modified
			}
			segments = append(segments, Segment{
				Start: pos2,
				End:   pos2 + n,
				Kind:  kind,
				Text:  run.Text,
			})
		}
		pos2 += n
	}
	return segments
}

// Inline aligns one pair of lines word by word. The left spans rebuild
// line1 and mark removed words; the right spans rebuild line2 and mark
// added words.
func Inline(line1, line2 string) (left, right []Span) {
	for _, run := range Words(line1, line2) {
		switch run.Kind {
		case Removed:
			left = append(left, Span{Text: run.Text, Kind: Removed})
		case Added:
			right = append(right, Span{Text: run.Text, Kind: Added})
		default:
			left = append(left, Span{Text: run.Text, Kind: Unchanged})
			right = append(right, Span{Text: run.Text, Kind: Unchanged})
		}
	}
	return left, right
}
