package annotate

import (
	"fmt"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// EncodingError reports a character of the legend or caption that the
// standard Helvetica font cannot show in WinAnsiEncoding. It is recovered by
// drawing Substitute instead.
type EncodingError struct {
	Rune       rune
	Substitute rune
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("character %U cannot be encoded in WinAnsiEncoding, drawn as %q", e.Rune, e.Substitute)
}

// Substitutes for characters outside WinAnsiEncoding.
const (
	DecorativeSubstitute  = '-'
	PlaceholderSubstitute = '?'
)

// decorative reports whether r is a bullet or dingbat that is drawn as a
// hyphen when it cannot be encoded.
func decorative(r rune) bool {
	switch r {
	case 0xF0A7, 0xF0B7, 0xF0D8, 0xF0FC, // Symbol and Wingdings bullets
		0x2023, 0x2043, 0x2219:
		return true
	}
	return (r >= 0x25A0 && r <= 0x25FF) || (r >= 0x2700 && r <= 0x27BF)
}

// encodeWinAnsi converts s to WinAnsiEncoding bytes. Each distinct
// unsupported character is reported once.
func encodeWinAnsi(s string) ([]byte, []*EncodingError) {
	out := make([]byte, 0, len(s))
	var errs []*EncodingError
	seen := make(map[rune]bool)

	for _, r := range s {
		if unicode.IsControl(r) {
			out = append(out, ' ')
			continue
		}
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}

		sub := rune(PlaceholderSubstitute)
		if decorative(r) {
			sub = DecorativeSubstitute
		}
		out = append(out, byte(sub))
		if !seen[r] {
			seen[r] = true
			errs = append(errs, &EncodingError{Rune: r, Substitute: sub})
		}
	}
	return out, errs
}
