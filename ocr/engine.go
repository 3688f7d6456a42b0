package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tsawler/pdfcompare/extract"
)

// WordBox is a word found by the OCR engine, in image pixels with the
// origin at the top-left corner.
type WordBox struct {
	Text       string
	Box        image.Rectangle
	Confidence float64

	// Block, Par and Line locate the word in Tesseract's layout.
	Block, Par, Line int
}

// Config controls page recognition.
type Config struct {
	// Languages are Tesseract language codes, such as "eng" or "deu".
	Languages []string

	// DPI is the render resolution. 216 is three times the PDF unit.
	DPI float64

	// MaxPixels caps the rendered image size before recognition.
	MaxPixels int

	// MinConfidence drops words Tesseract is less sure about (0-100).
	MinConfidence float64
}

// DefaultConfig returns the default OCR configuration.
func DefaultConfig() Config {
	return Config{
		Languages: []string{"eng"},
		DPI:       216,
		MaxPixels: 25_000_000,
	}
}

// wordReader is the part of Client the engine uses.
type wordReader interface {
	SetLanguage(langs ...string) error
	RecognizeWords(imageData []byte) ([]WordBox, error)
	Close() error
}

type pageRenderer interface {
	RenderImage(ctx context.Context, data []byte, page int, dpi float64) (image.Image, error)
}

// Engine recognizes the words of PDF pages. It implements
// extract.Recognizer.
type Engine struct {
	cfg       Config
	logger    zerolog.Logger
	renderer  pageRenderer
	newClient func() (wordReader, error)
}

// NewEngine creates an OCR engine. A Tesseract client is created for every
// page, so one Engine can serve concurrent extractions.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultConfig().DPI
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		renderer: Renderer{},
		newClient: func() (wordReader, error) {
			return New()
		},
	}
}

var _ extract.Recognizer = (*Engine)(nil)

// RecognizePage renders page pageIndex of data and returns its words in
// points, top-left origin.
func (e *Engine) RecognizePage(ctx context.Context, data []byte, pageIndex int) ([]extract.Word, error) {
	img, err := e.renderer.RenderImage(ctx, data, pageIndex, e.cfg.DPI)
	if err != nil {
		return nil, err
	}
	full := img.Bounds()
	img, scaled := Downscale(img, e.cfg.MaxPixels)
	if scaled {
		e.logger.Debug().
			Int("page", pageIndex+1).
			Int("width", img.Bounds().Dx()).
			Int("height", img.Bounds().Dy()).
			Msg("page image downscaled for OCR")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if len(e.cfg.Languages) > 0 {
		if err := client.SetLanguage(e.cfg.Languages...); err != nil {
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
	}
	boxes, err := client.RecognizeWords(buf.Bytes())
	if err != nil {
		return nil, err
	}

	// Pixels of the recognized image to points of the page.
	pt := 72 / e.cfg.DPI
	sx := pt * float64(full.Dx()) / float64(img.Bounds().Dx())
	sy := pt * float64(full.Dy()) / float64(img.Bounds().Dy())
	return wordsFromBoxes(boxes, sx, sy, e.cfg.MinConfidence), nil
}

// wordsFromBoxes converts pixel boxes to words in points. Words of the same
// Tesseract line share a line key, numbered in order of appearance.
func wordsFromBoxes(boxes []WordBox, sx, sy, minConfidence float64) []extract.Word {
	type lineKey struct{ block, par, line int }
	lines := make(map[lineKey]int)

	var words []extract.Word
	for _, b := range boxes {
		text := strings.TrimSpace(b.Text)
		if text == "" || b.Confidence < minConfidence || b.Box.Empty() {
			continue
		}

		key := lineKey{b.Block, b.Par, b.Line}
		line, ok := lines[key]
		if !ok {
			line = len(lines)
			lines[key] = line
		}

		words = append(words, extract.Word{
			Text:       text,
			X:          float64(b.Box.Min.X) * sx,
			Top:        float64(b.Box.Min.Y) * sy,
			Width:      float64(b.Box.Dx()) * sx,
			Height:     float64(b.Box.Dy()) * sy,
			Line:       line,
			Confidence: b.Confidence,
		})
	}
	return words
}
