package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/internal/pdftest"
)

type fakeRenderer struct {
	img image.Image
	err error
	dpi float64
}

func (f *fakeRenderer) RenderImage(_ context.Context, _ []byte, _ int, dpi float64) (image.Image, error) {
	f.dpi = dpi
	return f.img, f.err
}

type fakeClient struct {
	boxes  []WordBox
	err    error
	langs  []string
	image  image.Config
	closed bool
}

func (f *fakeClient) SetLanguage(langs ...string) error {
	f.langs = langs
	return nil
}

func (f *fakeClient) RecognizeWords(data []byte) ([]WordBox, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	f.image = cfg
	return f.boxes, f.err
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func testEngine(cfg Config, r pageRenderer, c *fakeClient) *Engine {
	e := NewEngine(cfg, zerolog.Nop())
	e.renderer = r
	e.newClient = func() (wordReader, error) { return c, nil }
	return e
}

func grayImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 200})
		}
	}
	return img
}

// TestRecognizePage tests the conversion from downscaled pixels to points.
func TestRecognizePage(t *testing.T) {
	client := &fakeClient{boxes: []WordBox{
		{Text: "Scanned", Box: image.Rect(100, 50, 200, 70), Confidence: 91, Block: 1, Par: 1, Line: 1},
		{Text: "page", Box: image.Rect(210, 50, 260, 70), Confidence: 88, Block: 1, Par: 1, Line: 1},
		{Text: "Footer", Box: image.Rect(100, 200, 160, 215), Confidence: 90, Block: 2, Par: 1, Line: 1},
	}}
	renderer := &fakeRenderer{img: grayImage(1000, 500)}
	cfg := Config{Languages: []string{"eng", "deu"}, DPI: 144, MaxPixels: 125_000}

	words, err := testEngine(cfg, renderer, client).RecognizePage(context.Background(), []byte("%PDF"), 0)
	require.NoError(t, err)

	assert.Equal(t, 144.0, renderer.dpi)
	assert.Equal(t, []string{"eng", "deu"}, client.langs)
	assert.Equal(t, 500, client.image.Width)
	assert.Equal(t, 250, client.image.Height)
	assert.True(t, client.closed)

	require.Len(t, words, 3)
	assert.Equal(t, extract.Word{Text: "Scanned", X: 100, Top: 50, Width: 100, Height: 20, Line: 0, Confidence: 91}, words[0])
	assert.Equal(t, 0, words[1].Line)
	assert.Equal(t, 1, words[2].Line)
	assert.InDelta(t, 200.0, words[2].Top, 1e-9)
}

// TestRecognizePageErrors tests that render and recognition failures are returned.
func TestRecognizePageErrors(t *testing.T) {
	renderErr := errors.New("render failed")
	_, err := testEngine(DefaultConfig(), &fakeRenderer{err: renderErr}, &fakeClient{}).
		RecognizePage(context.Background(), nil, 0)
	assert.ErrorIs(t, err, renderErr)

	ocrErr := errors.New("tesseract failed")
	client := &fakeClient{err: ocrErr}
	_, err = testEngine(DefaultConfig(), &fakeRenderer{img: grayImage(10, 10)}, client).
		RecognizePage(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ocrErr)
	assert.True(t, client.closed)
}

// TestRecognizePageCancelled tests that a cancelled context stops before recognition.
func TestRecognizePageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	_, err := testEngine(DefaultConfig(), &fakeRenderer{img: grayImage(10, 10)}, client).
		RecognizePage(ctx, nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, client.langs)
}

// TestWordsFromBoxes tests filtering and line numbering.
func TestWordsFromBoxes(t *testing.T) {
	boxes := []WordBox{
		{Text: "  ", Box: image.Rect(0, 0, 10, 10), Confidence: 95},
		{Text: "low", Box: image.Rect(0, 0, 10, 10), Confidence: 20},
		{Text: "empty", Box: image.Rect(5, 5, 5, 10), Confidence: 95},
		{Text: " b ", Box: image.Rect(30, 0, 40, 10), Confidence: 95, Line: 2},
		{Text: "a", Box: image.Rect(10, 0, 20, 10), Confidence: 95, Line: 1},
		{Text: "c", Box: image.Rect(50, 0, 60, 10), Confidence: 95, Line: 2},
	}

	words := wordsFromBoxes(boxes, 0.5, 0.25, 50)
	require.Len(t, words, 3)

	assert.Equal(t, "b", words[0].Text)
	assert.Equal(t, 0, words[0].Line)
	assert.Equal(t, 1, words[1].Line)
	assert.Equal(t, 0, words[2].Line)

	assert.Equal(t, 15.0, words[0].X)
	assert.Equal(t, 5.0, words[0].Width)
	assert.Equal(t, 2.5, words[0].Height)
}

// TestDownscale tests the pixel cap and aspect ratio.
func TestDownscale(t *testing.T) {
	img := grayImage(400, 200)

	same, scaled := Downscale(img, 0)
	assert.False(t, scaled)
	assert.Same(t, img, same)

	same, scaled = Downscale(img, 80_000)
	assert.False(t, scaled)
	assert.Same(t, img, same)

	small, scaled := Downscale(img, 20_000)
	require.True(t, scaled)
	assert.Equal(t, 200, small.Bounds().Dx())
	assert.Equal(t, 100, small.Bounds().Dy())
}

// TestRenderCancelled tests that a cancelled render never reaches MuPDF.
func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Renderer{}.RenderPNG(ctx, []byte("not a pdf"), 0, 72)
	assert.ErrorIs(t, err, ErrRenderCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRenderPNG tests rasterizing a generated page.
func TestRenderPNG(t *testing.T) {
	data := pdftest.Build(pdftest.Lines("Hello world"), pdftest.Lines("Second"))

	out, err := Renderer{}.RenderPNG(context.Background(), data, 1, 36)
	if err != nil {
		t.Skipf("MuPDF not available: %v", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 306, cfg.Width)
	assert.Equal(t, 396, cfg.Height)

	_, err = Renderer{}.RenderPNG(context.Background(), data, 5, 36)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = Renderer{MaxPixels: 1000}.RenderImage(context.Background(), data, 0, 0)
	assert.Error(t, err)
}
