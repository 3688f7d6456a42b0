package extract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/tsawler/tabula/reader"

	"github.com/tsawler/pdfcompare/internal/pdfobj"
)

// Local extracts documents in-process from the PDF text layer, with an
// optional Recognizer for pages that have none.
type Local struct {
	cfg        Config
	logger     zerolog.Logger
	recognizer Recognizer
}

// LocalOption configures a Local extractor.
type LocalOption func(*Local)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) LocalOption {
	return func(l *Local) {
		l.logger = logger
	}
}

// WithRecognizer enables OCR for pages without a usable text layer.
func WithRecognizer(r Recognizer) LocalOption {
	return func(l *Local) {
		l.recognizer = r
	}
}

// NewLocal creates a local extractor.
//
// Example:
//
//	ext := extract.NewLocal(extract.DefaultConfig(),
//	    extract.WithLogger(logger),
//	    extract.WithRecognizer(engine),
//	)
func NewLocal(cfg Config, opts ...LocalOption) *Local {
	l := &Local{
		cfg:    cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) layout() layout {
	return layout{mergeGap: l.cfg.MergeGap, lineTolerance: l.cfg.LineTolerance}
}

// ExtractFile reads and extracts the PDF at path.
func (l *Local) ExtractFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, documentError(fmt.Errorf("failed to read %s: %w", path, err))
	}
	return l.ExtractDocument(ctx, data)
}

// ExtractDocument extracts the assembled text and runs of a PDF. Pages are
// processed in index order and the context is checked between pages; a
// cancelled extraction returns the context error and no document.
func (l *Local) ExtractDocument(ctx context.Context, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extract config: %w", err)
	}
	if len(data) == 0 {
		return nil, documentError(errors.New("empty input"))
	}

	pdf, err := pdfobj.Open(data)
	if err != nil {
		return nil, documentError(err)
	}
	defer pdf.Close()

	nodes, err := pdf.PageNodes()
	if err != nil {
		return nil, documentError(err)
	}

	doc := &Document{Source: SourceLocal}
	var asm assembler
	for i, node := range nodes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := l.extractPage(ctx, pdf.Reader, data, node)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, pageError(i, err)
		}

		page.Start, page.End = asm.page(i, page.lines)
		doc.Pages = append(doc.Pages, page.Page)
		doc.Stats.Add(page.Method)

		l.logger.Debug().
			Int("page", i+1).
			Str("method", string(page.Method)).
			Bool("has_images", page.HasImages).
			Msg("page extracted")
	}
	doc.Text = asm.text()
	doc.Runs = asm.runs

	l.logger.Debug().
		Int("pages", doc.Stats.TotalPages).
		Int("runs", len(doc.Runs)).
		Msg("document extracted")
	return doc, nil
}

type extractedPage struct {
	Page
	lines [][]word
}

func (l *Local) extractPage(ctx context.Context, r *reader.Reader, data []byte, node pdfobj.PageNode) (*extractedPage, error) {
	p, err := r.GetPage(node.Index)
	if err != nil {
		return nil, err
	}
	boxes, err := scanGlyphs(r, p, node.MediaBox, l.cfg.DescentRatio)
	if err != nil {
		return nil, err
	}

	in := pageInput{
		index:     node.Index,
		height:    node.MediaBox.Height(),
		hasImages: pdfobj.HasImages(r, node.Resources),
		lines:     l.layout().lines(boxes),
	}
	res, err := l.classify(ctx, data, in)
	if err != nil {
		return nil, err
	}

	return &extractedPage{
		Page: Page{
			Index:      node.Index,
			Width:      node.MediaBox.Width(),
			Height:     node.MediaBox.Height(),
			Method:     res.method,
			HasImages:  in.hasImages,
			Supplement: res.supplement,
			OCRFailed:  res.ocrFailed,
		},
		lines: res.lines,
	}, nil
}
