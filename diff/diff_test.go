package diff

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestInsertedWord tests a pure insertion between two unchanged words.
func TestInsertedWord(t *testing.T) {
	segments := Segments("Hello world", "Hello there world")

	require.Len(t, segments, 1)
	assert.Equal(t, Segment{Start: 6, End: 12, Kind: Added, Text: "there "}, segments[0])

	for _, run := range Words("Hello world", "Hello there world") {
		assert.NotEqual(t, Removed, run.Kind, "no word was removed")
	}

	rows := Lines("Hello world", "Hello there world")
	require.Len(t, rows, 1)
	assert.Equal(t, Modified, rows[0].Kind)
	assert.Equal(t, 1, rows[0].LineNumber1)
	assert.Equal(t, 1, rows[0].LineNumber2)
}

// TestReplacedWord tests that an added word next to a removed one is
// reported as modified.
func TestReplacedWord(t *testing.T) {
	segments := Segments("Alpha Beta", "Alpha Gamma")

	require.Len(t, segments, 1)
	assert.Equal(t, Modified, segments[0].Kind)
	assert.Equal(t, "Gamma", segments[0].Text)
	assert.Equal(t, 6, segments[0].Start)
	assert.Equal(t, 11, segments[0].End)
}

// TestEverythingRemoved tests an empty second text.
func TestEverythingRemoved(t *testing.T) {
	text1 := "first line\nsecond line\n\n"

	assert.Empty(t, Segments(text1, ""))

	rows := Lines(text1, "")
	require.Len(t, rows, 2)
	for i, row := range rows {
		assert.Equal(t, Removed, row.Kind)
		assert.Equal(t, i+1, row.LineNumber1)
		assert.Equal(t, -1, row.LineNumber2)
		assert.Empty(t, row.Text2)
	}
}

// TestIdentity tests that identical texts produce no changes.
func TestIdentity(t *testing.T) {
	text := "The quick brown fox\njumps over\n\n\nthe lazy dog\n\n"

	assert.Empty(t, Segments(text, text))

	rows := Lines(text, text)
	for _, row := range rows {
		assert.Equal(t, Unchanged, row.Kind)
		assert.Equal(t, row.LineNumber1, row.LineNumber2)
	}
	require.NotEmpty(t, rows)
	assert.Equal(t, "the lazy dog", rows[len(rows)-1].Text1)
}

// TestOffsetConservation tests that every segment's offsets slice its own
// text out of the second text.
func TestOffsetConservation(t *testing.T) {
	tests := []struct {
		name         string
		text1, text2 string
	}{
		{"insert", "a b c", "a b x c"},
		{"replace", "one two three", "one deux three"},
		{"multibyte", "naïve café here", "naïve résumé café here now"},
		{"pages", "p1 line\n\n\np2 line\n\n", "p1 line\nnew\n\n\np2 changed line\n\n"},
		{"prefix", "", "brand new text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runes := []rune(tt.text2)
			segments := Segments(tt.text1, tt.text2)
			require.NotEmpty(t, segments)
			for _, s := range segments {
				require.LessOrEqual(t, s.End, len(runes))
				assert.Equal(t, s.Text, string(runes[s.Start:s.End]))
				assert.Equal(t, utf8.RuneCountInString(s.Text), s.Len())
			}
		})
	}
}

// TestWordsRebuildBothSides tests that the word runs of each side
// concatenate back to the input.
func TestWordsRebuildBothSides(t *testing.T) {
	text1 := "alpha  beta\tgamma\n\ndelta"
	text2 := "alpha beta gamma\nepsilon delta"

	var left, right strings.Builder
	for _, run := range Words(text1, text2) {
		if run.Kind != Added {
			left.WriteString(run.Text)
		}
		if run.Kind != Removed {
			right.WriteString(run.Text)
		}
	}
	assert.Equal(t, text1, left.String())
	assert.Equal(t, text2, right.String())
}

// TestModifiedRule tests the pairwise adjacency rule.
func TestModifiedRule(t *testing.T) {
	runs := []WordRun{
		{Kind: Unchanged, Text: "a "},
		{Kind: Removed, Text: "b"},
		{Kind: Added, Text: "c"},
		{Kind: Unchanged, Text: " "},
		{Kind: Added, Text: "d "},
		{Kind: Unchanged, Text: "e "},
		{Kind: Added, Text: "f"},
		{Kind: Removed, Text: "g"},
	}
	segments := segmentsOf(runs)
	require.Len(t, segments, 3)

	assert.Equal(t, Segment{Start: 2, End: 3, Kind: Modified, Text: "c"}, segments[0])
	assert.Equal(t, Segment{Start: 4, End: 6, Kind: Added, Text: "d "}, segments[1])
	assert.Equal(t, Segment{Start: 8, End: 9, Kind: Modified, Text: "f"}, segments[2])
}

// TestLinesPairing tests positional pairing of uneven change blocks.
func TestLinesPairing(t *testing.T) {
	text1 := "keep\nold one\nold two\nold three\nend"
	text2 := "keep\nnew one\nend\nextra"

	rows := Lines(text1, text2)
	want := []LineRow{
		{LineNumber1: 1, LineNumber2: 1, Text1: "keep", Text2: "keep", Kind: Unchanged},
		{LineNumber1: 2, LineNumber2: 2, Text1: "old one", Text2: "new one", Kind: Modified},
		{LineNumber1: 3, LineNumber2: -1, Text1: "old two", Kind: Removed},
		{LineNumber1: 4, LineNumber2: -1, Text1: "old three", Kind: Removed},
		{LineNumber1: 5, LineNumber2: 3, Text1: "end", Text2: "end", Kind: Unchanged},
		{LineNumber1: -1, LineNumber2: 4, Text2: "extra", Kind: Added},
	}
	assert.Equal(t, want, rows)
}

// TestDeterministic tests that repeated runs produce identical output.
func TestDeterministic(t *testing.T) {
	text1 := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	text2 := strings.Replace(text1, "dolor", "color", 7)

	first := Segments(text1, text2)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Segments(text1, text2))
	}
	assert.Len(t, first, 7)
}

// TestInline tests the per-line word diff used by the report.
func TestInline(t *testing.T) {
	left, right := Inline("the cat sat", "the dog sat")

	assert.Equal(t, []Span{
		{Text: "the ", Kind: Unchanged},
		{Text: "cat", Kind: Removed},
		{Text: " sat", Kind: Unchanged},
	}, left)
	assert.Equal(t, []Span{
		{Text: "the ", Kind: Unchanged},
		{Text: "dog", Kind: Added},
		{Text: " sat", Kind: Unchanged},
	}, right)
}

// TestSplitWords tests tokenization.
func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a", "  ", "bc", "\n", "d"}, splitWords("a  bc\nd"))
	assert.Equal(t, []string{" ", "x", " "}, splitWords(" x "))
	assert.Nil(t, splitWords(""))
}

// TestAlphabetSkipsSurrogates tests that token runes never fall in the
// surrogate block.
func TestAlphabetSkipsSurrogates(t *testing.T) {
	a := newAlphabet()
	tokens := make([]string, surrogateMin+10)
	for i := range tokens {
		tokens[i] = strconv.Itoa(i)
	}
	runes, ok := a.encode(tokens)
	require.True(t, ok)
	for _, r := range runes {
		assert.True(t, utf8.ValidRune(r), "rune %U is not valid", r)
	}
	assert.Equal(t, tokens, a.decode(string(runes)))
}

// TestKindMarshal tests kind names in JSON and YAML.
func TestKindMarshal(t *testing.T) {
	b, err := json.Marshal(Segment{Start: 1, End: 2, Kind: Modified, Text: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":1,"end":2,"kind":"modified","text":"x"}`, string(b))

	var s Segment
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, Modified, s.Kind)

	y, err := yaml.Marshal(LineRow{LineNumber1: 1, LineNumber2: -1, Text1: "gone", Kind: Removed})
	require.NoError(t, err)
	assert.Contains(t, string(y), "kind: removed")

	_, err = ParseKind("sideways")
	assert.Error(t, err)
	assert.Equal(t, "added", Added.String())
}
