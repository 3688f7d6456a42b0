package pdfcompare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/font"

	"github.com/tsawler/pdfcompare/annotate"
	"github.com/tsawler/pdfcompare/diff"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/internal/pdftest"
	"github.com/tsawler/pdfcompare/remote"
)

// TestIdentity tests that a document compared with itself has no changes.
func TestIdentity(t *testing.T) {
	data := pdftest.Build(
		pdftest.Lines("Hello world", "Second line"),
		pdftest.Lines("Page two"),
	)

	res, warnings, err := FromBytes(data, data).Compare(context.Background())
	require.NoError(t, err)

	assert.Empty(t, warnings)
	assert.True(t, res.Identical())
	assert.Empty(t, res.Segments)
	assert.Empty(t, res.Regions)
	assert.Equal(t, data, res.Annotated)
	for _, row := range res.Rows {
		assert.Equal(t, diff.Unchanged, row.Kind)
	}
	// Two lines, the page separator and one line.
	assert.Equal(t, 5, res.Summary.Unchanged)
}

// TestAddedWord tests the full pipeline for an inserted word.
func TestAddedWord(t *testing.T) {
	old := pdftest.Build(pdftest.Lines("Hello world"))
	changed := pdftest.Build(pdftest.Lines("Hello there world"))

	res, warnings, err := FromBytes(old, changed).Compare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []diff.Segment{{Start: 6, End: 12, Kind: diff.Added, Text: "there "}}, res.Segments)

	require.Len(t, res.Regions, 1)
	region := res.Regions[0]
	assert.Equal(t, 0, region.Page)
	assert.Equal(t, diff.Added, region.Kind)
	assert.Greater(t, region.X, 72.0)
	assert.Greater(t, region.Width, 0.0)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, diff.Modified, res.Rows[0].Kind)
	assert.False(t, res.Identical())

	assert.True(t, bytes.HasPrefix(res.Annotated, changed))
	assert.Greater(t, len(res.Annotated), len(changed))

	rep := res.Report()
	assert.Equal(t, "document1.pdf", rep.File1)
	require.Len(t, rep.Rows, 1)
	assert.NotEmpty(t, rep.Rows[0].Right)
}

// TestEverythingRemoved tests that an empty second document gets no
// regions while every line of the first is reported removed.
func TestEverythingRemoved(t *testing.T) {
	old := pdftest.Build(pdftest.Lines("Hello world", "Second line"))
	empty := pdftest.Build(pdftest.Page{})

	res, _, err := FromBytes(old, empty).Compare(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Regions)
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		assert.Equal(t, diff.Removed, row.Kind)
		assert.Equal(t, -1, row.LineNumber2)
	}
	assert.Equal(t, empty, res.Annotated)
}

// TestOffsetConservation tests that the non-removed word runs rebuild the
// second text and that every segment lies inside it.
func TestOffsetConservation(t *testing.T) {
	tests := []struct {
		name     string
		old, new []pdftest.Page
	}{
		{
			name: "edits on two pages",
			old:  []pdftest.Page{pdftest.Lines("The quick brown fox", "jumps"), pdftest.Lines("Tail")},
			new:  []pdftest.Page{pdftest.Lines("The quick red fox", "jumps high"), pdftest.Lines("Tail", "more")},
		},
		{
			name: "page inserted",
			old:  []pdftest.Page{pdftest.Lines("One")},
			new:  []pdftest.Page{pdftest.Lines("Zero"), pdftest.Lines("One")},
		},
		{
			name: "empty first document",
			old:  []pdftest.Page{{}},
			new:  []pdftest.Page{pdftest.Lines("Fresh content here")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := FromBytes(pdftest.Build(tt.old...), pdftest.Build(tt.new...)).
				SkipAnnotation().
				Compare(context.Background())
			require.NoError(t, err)
			assert.Nil(t, res.Annotated)

			var b strings.Builder
			for _, run := range diff.Words(res.Doc1.Text, res.Doc2.Text) {
				if run.Kind != diff.Removed {
					b.WriteString(run.Text)
				}
			}
			assert.Equal(t, res.Doc2.Text, b.String())

			for _, seg := range res.Segments {
				assert.GreaterOrEqual(t, seg.Start, 0)
				assert.LessOrEqual(t, seg.End, res.Doc2.Len())
				assert.Equal(t, seg.Text, res.Doc2.Slice(seg.Start, seg.End))
			}
		})
	}
}

type pageRecognizer struct {
	calls atomic.Int32
	words []extract.Word
}

func (r *pageRecognizer) RecognizePage(ctx context.Context, _ []byte, _ int) ([]extract.Word, error) {
	r.calls.Add(1)
	return r.words, nil
}

// TestOCRPage tests highlights on a page recognized with OCR.
func TestOCRPage(t *testing.T) {
	old := pdftest.Build(pdftest.Lines("This first document has a complete text layer of well over fifty characters"))
	scanned := pdftest.Build(pdftest.Page{})
	rec := &pageRecognizer{words: []extract.Word{
		{Text: "Scanned", X: 72, Top: 100, Width: 60, Height: 12, Line: 0, Confidence: 90},
	}}

	res, warnings, err := FromBytes(old, scanned).Recognizer(rec).Compare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), rec.calls.Load())
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningOCRFallback, warnings[0].Code)
	assert.Contains(t, warnings[0].Message, "document2.pdf")

	require.Len(t, res.Regions, 1)
	r := res.Regions[0]
	assert.Equal(t, diff.Modified, r.Kind)
	assert.InDelta(t, 72.0, r.X, 1e-9)
	assert.InDelta(t, 60.0, r.Width, 1e-9)
	assert.InDelta(t, 792.0-112-0.6, r.Y, 1e-9)
}

// TestExtractionErrorAborts tests that a malformed document fails the comparison.
func TestExtractionErrorAborts(t *testing.T) {
	good := pdftest.Build(pdftest.Lines("fine"))

	res, warnings, err := FromBytes([]byte("not a pdf at all"), good).Compare(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Nil(t, warnings)

	var exErr *extract.ExtractionError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, -1, exErr.Page)
	assert.Contains(t, err.Error(), "document1.pdf")
}

// TestCancelled tests that a cancelled comparison returns no result.
func TestCancelled(t *testing.T) {
	data := pdftest.Build(pdftest.Lines("Hello"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, _, err := FromBytes(data, data).Compare(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func extractServer(t *testing.T, texts map[string]string, status int) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(remote.ErrorResponse{Detail: "service unavailable"})
			return
		}
		json.NewEncoder(w).Encode(remote.ExtractResponse{
			Success: true,
			DocumentResult: remote.DocumentResult{
				Filename: hdr.Filename,
				Pages:    []remote.PageData{{PageNumber: 1, Text: texts[hdr.Filename], Method: "direct_text"}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c, err := remote.NewClient(remote.Config{BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

// TestRemoteReportText tests that the service provides the line diff texts
// while highlights still come from the local layout.
func TestRemoteReportText(t *testing.T) {
	old := pdftest.Build(pdftest.Lines("Hello world"))
	changed := pdftest.Build(pdftest.Lines("Hello there world"))
	client := extractServer(t, map[string]string{
		"old.pdf": "Remote alpha",
		"new.pdf": "Remote alpha beta",
	}, http.StatusOK)

	res, warnings, err := FromBytes(old, changed).
		Names("old.pdf", "new.pdf").
		Remote(client).
		Compare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Remote alpha", res.Rows[0].Text1)
	assert.Equal(t, "Remote alpha beta", res.Rows[0].Text2)

	assert.Equal(t, []diff.Segment{{Start: 6, End: 12, Kind: diff.Added, Text: "there "}}, res.Segments)
	assert.Len(t, res.Regions, 1)
}

// TestRemoteFallback tests that a failing service adds warnings and the
// local texts are used.
func TestRemoteFallback(t *testing.T) {
	old := pdftest.Build(pdftest.Lines("Hello world"))
	changed := pdftest.Build(pdftest.Lines("Hello there world"))
	client := extractServer(t, nil, http.StatusServiceUnavailable)

	res, warnings, err := FromBytes(old, changed).Remote(client).Compare(context.Background())
	require.NoError(t, err)

	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, WarningRemoteFallback, w.Code)
		assert.Contains(t, w.Message, "service unavailable")
	}
	assert.Equal(t, warnings, res.Warnings)
	assert.Equal(t, "Hello world", res.Rows[0].Text1)
	assert.Equal(t, "Hello there world", res.Rows[0].Text2)
}

// TestLegendWarnings tests that unencodable caption characters become warnings.
func TestLegendWarnings(t *testing.T) {
	old := pdftest.Build(pdftest.Lines("Hello world"))
	changed := pdftest.Build(pdftest.Lines("Hello there world"))

	_, warnings, err := FromBytes(old, changed).
		Legend("Compared ✓").
		Compare(context.Background())
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarningEncodingSubstitution, warnings[0].Code)
	assert.Contains(t, FormatWarnings(warnings), "U+2713")
}

// TestOpenFiles tests comparing files on disk.
func TestOpenFiles(t *testing.T) {
	path1 := pdftest.File(t, pdftest.Lines("Alpha Beta"))
	path2 := pdftest.File(t, pdftest.Lines("Alpha Gamma"))

	res, _, err := Open(path1, path2).Compare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test.pdf", res.Name1)
	assert.Equal(t, []diff.Segment{{Start: 6, End: 11, Kind: diff.Modified, Text: "Gamma"}}, res.Segments)

	_, _, err = Open(path1, path2+".missing").Compare(context.Background())
	assert.Error(t, err)
}

// TestModifiedRegionCoversWord tests that the highlight of a changed word
// lies on that word's glyphs in the standard Helvetica metrics.
func TestModifiedRegionCoversWord(t *testing.T) {
	helvetica := func(s string) float64 {
		return font.NewFont("F1", "Helvetica", "Type1").GetStringWidth(s) * 12 / 1000
	}

	tests := []struct {
		name     string
		old, new string
		prefix   string
		word     string
	}{
		{"second word", "Alpha Beta", "Alpha Gamma", "Alpha ", "Gamma"},
		{"after narrow glyphs", "illicit filling little Beta", "illicit filling little WOMAN", "illicit filling little ", "WOMAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := FromBytes(pdftest.Build(pdftest.Lines(tt.old)), pdftest.Build(pdftest.Lines(tt.new))).
				SkipAnnotation().
				Compare(context.Background())
			require.NoError(t, err)
			require.Len(t, res.Regions, 1)

			region := res.Regions[0]
			assert.Equal(t, diff.Modified, region.Kind)
			assert.InDelta(t, 72+helvetica(tt.prefix), region.X, 0.01)
			assert.InDelta(t, helvetica(tt.word), region.Width, 0.01)
		})
	}
}

// TestFluentImmutability tests that configuration methods do not change the receiver.
func TestFluentImmutability(t *testing.T) {
	base := FromBytes(nil, nil)
	withLegend := base.Legend("caption").HeightFactor(1.5)

	assert.False(t, base.options.annotate.Legend)
	assert.Equal(t, 1.1, base.options.heightFactor)
	assert.True(t, withLegend.options.annotate.Legend)
	assert.Equal(t, 1.5, withLegend.options.heightFactor)
}

// TestConfigurationErrors tests that invalid settings fail at Compare.
func TestConfigurationErrors(t *testing.T) {
	data := pdftest.Build(pdftest.Lines("x"))

	_, _, err := FromBytes(data, data).HeightFactor(0.5).Compare(context.Background())
	assert.ErrorContains(t, err, "height factor")

	cfg := extract.DefaultConfig()
	cfg.LineTolerance = 0
	_, _, err = FromBytes(data, data).Config(cfg).Compare(context.Background())
	assert.ErrorContains(t, err, "invalid extract config")

	opts := annotate.DefaultOptions()
	opts.Opacity = 2
	_, _, err = FromBytes(data, pdftest.Build(pdftest.Lines("y"))).Annotation(opts).Compare(context.Background())
	assert.ErrorContains(t, err, "opacity")
}

// TestFormatWarnings tests warning formatting and code names.
func TestFormatWarnings(t *testing.T) {
	assert.Equal(t, "", FormatWarnings(nil))
	assert.Equal(t, "a; b", FormatWarnings([]Warning{{Message: "a"}, {Message: "b"}}))
	assert.Equal(t, "remote_fallback", WarningRemoteFallback.String())
	assert.Equal(t, "encoding_substitution", WarningEncodingSubstitution.String())

	b, err := json.Marshal(Warning{Code: WarningOCRFailed, Message: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"ocr_failed","message":"m"}`, string(b))
}

// TestMust tests the panic helpers.
func TestMust(t *testing.T) {
	assert.Equal(t, 3, Must(3, nil))
	assert.Panics(t, func() { Must(0, errors.New("boom")) })
	assert.Panics(t, func() { MustCompare(nil, nil, errors.New("boom")) })
}
