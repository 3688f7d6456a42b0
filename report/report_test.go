package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdfcompare/diff"
)

func sampleRows() []diff.LineRow {
	return []diff.LineRow{
		{LineNumber1: 1, LineNumber2: 1, Text1: "same", Text2: "same", Kind: diff.Unchanged},
		{LineNumber1: 2, LineNumber2: 2, Text1: "alpha beta", Text2: "alpha Gamma", Kind: diff.Modified},
		{LineNumber1: 3, LineNumber2: -1, Text1: "gone", Kind: diff.Removed},
		{LineNumber1: -1, LineNumber2: 3, Text2: "<b>&", Kind: diff.Added},
	}
}

// TestBuild tests that modified rows get word spans and the summary counts kinds.
func TestBuild(t *testing.T) {
	rep := Build(sampleRows())

	require.Len(t, rep.Rows, 4)
	assert.Equal(t, Summary{Unchanged: 1, Added: 1, Removed: 1, Modified: 1}, rep.Summary)
	assert.Equal(t, 3, rep.Summary.Changes())
	assert.Equal(t, rep.Summary, Summarize(sampleRows()))

	mod := rep.Rows[1]
	assert.Equal(t, []diff.Span{
		{Text: "alpha ", Kind: diff.Unchanged},
		{Text: "beta", Kind: diff.Removed},
	}, mod.Left)
	assert.Equal(t, []diff.Span{
		{Text: "alpha ", Kind: diff.Unchanged},
		{Text: "Gamma", Kind: diff.Added},
	}, mod.Right)

	for _, i := range []int{0, 2, 3} {
		assert.Nil(t, rep.Rows[i].Left, "row %d", i)
		assert.Nil(t, rep.Rows[i].Right, "row %d", i)
	}
}

// TestWriteHTML tests the table cells and word markup.
func TestWriteHTML(t *testing.T) {
	rep := Build(sampleRows())
	rep.File1, rep.File2 = "old.pdf", "new.pdf"

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, rep, Options{}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<table class="pdfcompare-diff">`))
	for _, want := range []string{
		`<th>old.pdf</th>`,
		`<th>new.pdf</th>`,
		`<tr class="modified">`,
		`<td class="text old">alpha <del>beta</del></td>`,
		`<td class="text new">alpha <mark>Gamma</mark></td>`,
		`<td class="text old"><del>gone</del></td>`,
		`<td class="ln"></td><td class="text old"></td>`,
		`<td class="text new"><ins>&lt;b&gt;&amp;</ins></td>`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "<html")

	root, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 5, countElements(root, "tr"))
}

// TestWriteHTMLStandalone tests the full document wrapper.
func TestWriteHTMLStandalone(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, Build(sampleRows()), Options{Standalone: true, Title: "Contract v2"}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Contract v2</title>")
	assert.Contains(t, out, "1 added, 1 removed, 1 modified, 1 unchanged")
	assert.Contains(t, out, "del { background: #fdb8c0; }")

	root, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, countElements(root, "table"))
	assert.Equal(t, 1, countElements(root, "style"))
}

// TestChangesOnly tests context rows and gap rows.
func TestChangesOnly(t *testing.T) {
	var rows []Row
	for i := 0; i < 10; i++ {
		kind := diff.Unchanged
		if i == 5 {
			kind = diff.Added
		}
		rows = append(rows, Row{LineRow: diff.LineRow{LineNumber1: i + 1, LineNumber2: i + 1, Kind: kind}})
	}

	tests := []struct {
		name  string
		opts  Options
		shape []int // row index, or -n for a gap of n rows
	}{
		{"all rows", Options{}, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"no context", Options{ChangesOnly: true}, []int{-5, 5, -4}},
		{"one line of context", Options{ChangesOnly: true, Context: 1}, []int{-4, 4, 5, 6, -3}},
		{"context covers all", Options{ChangesOnly: true, Context: 20}, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shape []int
			for _, it := range visible(rows, tt.opts) {
				if it.row == nil {
					shape = append(shape, -it.skipped)
					continue
				}
				shape = append(shape, it.row.LineNumber1-1)
			}
			assert.Equal(t, tt.shape, shape)
		})
	}
}

// TestWriteText tests the plain side-by-side layout.
func TestWriteText(t *testing.T) {
	rep := Build(sampleRows())

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, rep, Options{Width: 12, NoColor: true}))
	lines := strings.Split(buf.String(), "\n")

	assert.Equal(t, "   1   same         |    1   same", lines[0])
	assert.Equal(t, "   2 ~ alpha beta   |    2 ~ alpha Gamma", lines[1])
	assert.Equal(t, "   3 - gone         |      - ", lines[2])
	assert.Equal(t, "     +              |    3 + <b>&", lines[3])
	assert.Contains(t, buf.String(), "1 added, 1 removed, 1 modified, 1 unchanged")
	assert.NotContains(t, buf.String(), "\x1b[")
}

// TestWriteTextTruncates tests that long lines are cut to the column width.
func TestWriteTextTruncates(t *testing.T) {
	rep := Build([]diff.LineRow{
		{LineNumber1: 1, LineNumber2: 1, Text1: "abcdefghijklmnop", Text2: "x", Kind: diff.Unchanged},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, rep, Options{Width: 5, NoColor: true}))
	assert.True(t, strings.HasPrefix(buf.String(), "   1   abcd\u2026 |    1   x\n"), buf.String())
}

// TestWriteJSON tests the JSON field names.
func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Build(sampleRows())))

	var got struct {
		Rows    []map[string]any `json:"rows"`
		Summary map[string]int   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Rows, 4)

	assert.Equal(t, "modified", got.Rows[1]["kind"])
	assert.Equal(t, float64(2), got.Rows[1]["line_number1"])
	assert.Contains(t, got.Rows[1], "left")
	assert.NotContains(t, got.Rows[0], "left")
	assert.Equal(t, float64(-1), got.Rows[3]["line_number1"])
	assert.Equal(t, 1, got.Summary["modified"])
}

// TestWriteYAML tests that a YAML report decodes back to the same rows.
func TestWriteYAML(t *testing.T) {
	rep := Build(sampleRows())
	rep.File1 = "a.pdf"

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, rep))
	assert.Contains(t, buf.String(), "kind: modified")
	assert.Contains(t, buf.String(), "line_number1: 2")

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *rep, got)
}

// TestFormat tests format names, extensions and detection.
func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"html", HTML},
		{"HTM", HTML},
		{"text", Text},
		{"txt", Text},
		{"json", JSON},
		{" yml ", YAML},
		{"pdf", Unknown},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.name, got, tt.want)
		}
		if (err != nil) != (tt.want == Unknown) {
			t.Errorf("ParseFormat(%q) error = %v", tt.name, err)
		}
	}

	if got := Detect("out/report.YAML"); got != YAML {
		t.Errorf("Detect() = %v, want yaml", got)
	}
	if got := Detect("report"); got != Unknown {
		t.Errorf("Detect() = %v, want unknown", got)
	}
	if got := JSON.Extension(); got != ".json" {
		t.Errorf("Extension() = %q", got)
	}
	if got := HTML.ContentType(); got != "text/html; charset=utf-8" {
		t.Errorf("ContentType() = %q", got)
	}
	if got := Format(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}

// TestWriteDispatch tests that Write selects the renderer by format.
func TestWriteDispatch(t *testing.T) {
	rep := Build(sampleRows())
	for _, f := range []Format{HTML, Text, JSON, YAML} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, rep, f, Options{NoColor: true}), f.String())
		assert.NotZero(t, buf.Len(), f.String())
	}

	var buf bytes.Buffer
	assert.Error(t, Write(&buf, rep, Unknown, Options{}))
}

func countElements(n *html.Node, tag string) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == tag {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countElements(c, tag)
	}
	return count
}
