// Package diff aligns two assembled texts at line and word granularity.
//
// Line rows feed the report; character-offset segments into the second text
// feed the highlighter. Both alignments use the Myers algorithm over tokens
// mapped to single runes, so the output is deterministic for identical
// inputs.
//
// Basic usage:
//
//	rows := diff.Lines(doc1.Text, doc2.Text)
//	segments := diff.Segments(doc1.Text, doc2.Text)
//	for _, s := range segments {
//	    fmt.Println(s.Kind, s.Start, s.End, s.Text)
//	}
package diff

import (
	"fmt"
	"strings"
)

// Kind classifies a piece of a diff.
type Kind int

// Diff kinds.
const (
	Unchanged Kind = iota
	Added
	Removed
	Modified
)

var kindNames = [...]string{"unchanged", "added", "removed", "modified"}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name for JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown diff kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	kind, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseKind parses a kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return Unchanged, fmt.Errorf("unknown diff kind %q", s)
}

// Changed reports whether the kind is anything but Unchanged.
func (k Kind) Changed() bool {
	return k != Unchanged
}

// LineRow is one row of the line alignment. Line numbers are 1-based and
// -1 when the line does not exist on that side.
type LineRow struct {
	LineNumber1 int    `json:"line_number1" yaml:"line_number1"`
	LineNumber2 int    `json:"line_number2" yaml:"line_number2"`
	Text1       string `json:"text1" yaml:"text1"`
	Text2       string `json:"text2" yaml:"text2"`
	Kind        Kind   `json:"kind" yaml:"kind"`
}

// WordRun is one block of the word alignment. Kind is Unchanged, Added
// or Removed.
type WordRun struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Text string `json:"text" yaml:"text"`
}

// Segment is a changed range of the second text. Start and End are
// half-open rune offsets.
type Segment struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Text  string `json:"text" yaml:"text"`
}

// Len returns the segment length in runes.
func (s Segment) Len() int {
	return s.End - s.Start
}

// Span is a piece of one line in an inline word diff.
type Span struct {
	Text string `json:"text" yaml:"text"`
	Kind Kind   `json:"kind" yaml:"kind"`
}
