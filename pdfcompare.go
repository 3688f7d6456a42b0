// Package pdfcompare compares two PDF documents. It produces a copy of the
// second document with additions and modifications highlighted on its
// pages, and a side-by-side line diff for review.
//
// Basic usage:
//
//	res, warnings, err := pdfcompare.Open("v1.pdf", "v2.pdf").Compare(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfcompare.FormatWarnings(warnings))
//	}
//	os.WriteFile("v2-annotated.pdf", res.Annotated, 0o644)
//
// With options:
//
//	res, _, err := pdfcompare.Open("v1.pdf", "v2.pdf").
//	    Remote(client).
//	    Recognizer(engine).
//	    Legend("Compared with v1").
//	    Compare(ctx)
//
// The stages are available on their own in the extract, diff, highlight,
// annotate and report packages.
package pdfcompare

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdfcompare/annotate"
	"github.com/tsawler/pdfcompare/diff"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/remote"
	"github.com/tsawler/pdfcompare/report"
)

// Comparer provides a fluent interface for comparing two PDFs. Each
// configuration method returns a new Comparer, so a configured Comparer can
// be shared and reused.
type Comparer struct {
	// Sources
	path1, path2 string
	name1, name2 string
	data1, data2 []byte

	options CompareOptions

	// Accumulated error (fail-fast)
	err error
}

// Open returns a Comparer for two PDF files. The files are read when the
// comparison runs.
//
// Example:
//
//	res, warnings, err := pdfcompare.Open("old.pdf", "new.pdf").Compare(ctx)
func Open(path1, path2 string) *Comparer {
	return &Comparer{
		path1:   path1,
		path2:   path2,
		name1:   filepath.Base(path1),
		name2:   filepath.Base(path2),
		options: defaultOptions(),
	}
}

// FromBytes returns a Comparer for two PDFs already in memory. The slices
// are never modified.
func FromBytes(data1, data2 []byte) *Comparer {
	return &Comparer{
		name1:   "document1.pdf",
		name2:   "document2.pdf",
		data1:   data1,
		data2:   data2,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustCompare wraps a call to Compare and panics if the error is non-nil.
// It discards warnings.
//
// Example:
//
//	res := pdfcompare.MustCompare(pdfcompare.Open("a.pdf", "b.pdf").Compare(ctx))
func MustCompare(res *Result, _ []Warning, err error) *Result {
	if err != nil {
		panic(err)
	}
	return res
}

// clone creates a copy of the Comparer with a copy of its options.
func (c *Comparer) clone() *Comparer {
	return &Comparer{
		path1:   c.path1,
		path2:   c.path2,
		name1:   c.name1,
		name2:   c.name2,
		data1:   c.data1,
		data2:   c.data2,
		options: c.options.clone(),
		err:     c.err,
	}
}

// ============================================================================
// Configuration Methods (return new Comparer instance)
// ============================================================================

// Names sets the document names used in the report and in warnings.
func (c *Comparer) Names(name1, name2 string) *Comparer {
	n := c.clone()
	n.name1, n.name2 = name1, name2
	return n
}

// Config replaces the local extraction configuration.
func (c *Comparer) Config(cfg extract.Config) *Comparer {
	n := c.clone()
	if err := cfg.Validate(); err != nil && n.err == nil {
		n.err = fmt.Errorf("invalid extract config: %w", err)
	}
	n.options.extract = cfg
	return n
}

// Recognizer enables OCR of pages without a usable text layer.
func (c *Comparer) Recognizer(r extract.Recognizer) *Comparer {
	n := c.clone()
	n.options.recognizer = r
	return n
}

// Remote asks the extraction service for the report texts first. Local
// extraction is the fallback and always provides the page layout.
func (c *Comparer) Remote(client *remote.Client) *Comparer {
	n := c.clone()
	n.options.remote = client
	return n
}

// HeightFactor sets the vertical padding of highlights as a multiple of the
// run height.
func (c *Comparer) HeightFactor(f float64) *Comparer {
	n := c.clone()
	if f < 1 && n.err == nil {
		n.err = fmt.Errorf("height factor %.2f must be at least 1", f)
	}
	n.options.heightFactor = f
	return n
}

// Annotation replaces the overlay appearance.
func (c *Comparer) Annotation(opts annotate.Options) *Comparer {
	n := c.clone()
	n.options.annotate = opts
	return n
}

// Legend draws the color key and caption on every highlighted page.
func (c *Comparer) Legend(caption string) *Comparer {
	n := c.clone()
	n.options.annotate.Legend = true
	n.options.annotate.Caption = caption
	return n
}

// SkipAnnotation leaves Result.Annotated empty.
func (c *Comparer) SkipAnnotation() *Comparer {
	n := c.clone()
	n.options.annotateOff = true
	return n
}

// Logger sets the logger used by every stage.
func (c *Comparer) Logger(logger zerolog.Logger) *Comparer {
	n := c.clone()
	n.options.logger = logger
	return n
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Compare runs the pipeline: both documents are extracted concurrently, the
// texts are diffed by line and by word, the word changes are mapped onto the
// second document's runs, and the regions are drawn into a copy of it.
//
// Cancellation is all or nothing: when ctx ends, no result is returned.
func (c *Comparer) Compare(ctx context.Context) (*Result, []Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	data1, data2, err := c.load()
	if err != nil {
		return nil, nil, err
	}

	log := c.options.logger
	var warnings []Warning

	doc1, doc2, err := c.extractBoth(ctx, data1, data2)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, pageWarnings(c.name1, doc1)...)
	warnings = append(warnings, pageWarnings(c.name2, doc2)...)

	text1, text2, remoteWarnings, err := c.reportTexts(ctx, data1, data2, doc1, doc2)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, remoteWarnings...)

	res := &Result{
		Name1:    c.name1,
		Name2:    c.name2,
		Doc1:     doc1,
		Doc2:     doc2,
		Rows:     diff.Lines(text1, text2),
		Segments: diff.Segments(doc1.Text, doc2.Text),
	}
	res.Regions = highlight.Map(res.Segments, doc2.Runs, highlight.WithHeightFactor(c.options.heightFactor))
	res.Summary = report.Summarize(res.Rows)

	log.Debug().
		Int("rows", len(res.Rows)).
		Int("segments", len(res.Segments)).
		Int("regions", len(res.Regions)).
		Msg("documents diffed")

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if !c.options.annotateOff {
		annotated, encErrs, err := annotate.Render(data2, res.Regions, c.options.annotate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to annotate %s: %w", c.name2, err)
		}
		res.Annotated = annotated
		for _, e := range encErrs {
			warnings = append(warnings, Warning{Code: WarningEncodingSubstitution, Message: e.Error()})
		}
	}

	res.Warnings = warnings
	return res, warnings, nil
}

func (c *Comparer) load() ([]byte, []byte, error) {
	data1, data2 := c.data1, c.data2
	if c.path1 != "" {
		b, err := os.ReadFile(c.path1)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", c.path1, err)
		}
		data1 = b
	}
	if c.path2 != "" {
		b, err := os.ReadFile(c.path2)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", c.path2, err)
		}
		data2 = b
	}
	return data1, data2, nil
}

// extractBoth extracts both documents locally. The first failure cancels
// the other extraction.
func (c *Comparer) extractBoth(ctx context.Context, data1, data2 []byte) (*extract.Document, *extract.Document, error) {
	opts := []extract.LocalOption{extract.WithLogger(c.options.logger)}
	if c.options.recognizer != nil {
		opts = append(opts, extract.WithRecognizer(c.options.recognizer))
	}
	local := extract.NewLocal(c.options.extract, opts...)

	var doc1, doc2 *extract.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := local.ExtractDocument(gctx, data1)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name1, err)
		}
		doc1 = d
		return nil
	})
	g.Go(func() error {
		d, err := local.ExtractDocument(gctx, data2)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name2, err)
		}
		doc2 = d
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, err
	}
	return doc1, doc2, nil
}

// reportTexts returns the texts of the line diff. With a remote client the
// service is asked first and the local documents are the fallback.
func (c *Comparer) reportTexts(ctx context.Context, data1, data2 []byte, doc1, doc2 *extract.Document) (string, string, []Warning, error) {
	if c.options.remote == nil {
		return doc1.ReportText(), doc2.ReportText(), nil, nil
	}

	var w1, w2 []Warning
	chain := func(name string, local *extract.Document, warnings *[]Warning) *extract.Chain {
		ch := extract.NewChain(c.options.remote.Strategy(name), extract.Prepared(local))
		ch.OnFallback = func(_ int, err error) {
			c.options.logger.Warn().Err(err).Str("document", name).Msg("remote extraction failed, using local text")
			*warnings = append(*warnings, Warning{
				Code:    WarningRemoteFallback,
				Message: fmt.Sprintf("%s: %v; used local extraction", name, err),
			})
		}
		return ch
	}

	var r1, r2 *extract.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := chain(c.name1, doc1, &w1).ExtractDocument(gctx, data1)
		r1 = d
		return err
	})
	g.Go(func() error {
		d, err := chain(c.name2, doc2, &w2).ExtractDocument(gctx, data2)
		r2 = d
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", "", nil, ctx.Err()
		}
		return "", "", nil, err
	}
	return r1.ReportText(), r2.ReportText(), append(w1, w2...), nil
}

func pageWarnings(name string, doc *extract.Document) []Warning {
	var warnings []Warning
	for _, p := range doc.Pages {
		switch {
		case p.OCRFailed:
			warnings = append(warnings, Warning{
				Code:    WarningOCRFailed,
				Message: fmt.Sprintf("%s: OCR failed on page %d; only the text layer was used", name, p.Index+1),
			})
		case p.Method == extract.MethodOCROnly:
			warnings = append(warnings, Warning{
				Code:    WarningOCRFallback,
				Message: fmt.Sprintf("%s: page %d has no usable text layer; text was recognized with OCR", name, p.Index+1),
			})
		}
	}
	return warnings
}
