package extract

import (
	"context"
	"strings"
)

// Recognizer finds words in the rendered image of a page. It is implemented
// by the ocr package.
type Recognizer interface {
	RecognizePage(ctx context.Context, data []byte, pageIndex int) ([]Word, error)
}

// Word is a recognized word. Coordinates are in points with the origin at
// the top-left corner of the page.
type Word struct {
	Text   string
	X      float64
	Top    float64
	Width  float64
	Height float64

	// Line groups words of the same text line. Words with equal keys are
	// on one line, in the order they are returned.
	Line int

	Confidence float64
}

// pageInput is what the local extractor knows about a page before its
// method is decided.
type pageInput struct {
	index     int
	height    float64
	hasImages bool
	lines     [][]word
}

// pageResult is the decided content of a page.
type pageResult struct {
	method     PageMethod
	lines      [][]word
	supplement string
	ocrFailed  bool
}

// classify decides how the text of a page is obtained:
//
//   - a complete text layer without images is used as is (direct_text);
//   - a complete text layer with images keeps its runs, and OCR lines that
//     the layer does not already contain become the page supplement (hybrid);
//   - a page with an incomplete or missing text layer is recognized, and the
//     OCR words replace the layer when they recover more text (ocr_only);
//   - a page that yields nothing is empty.
func (l *Local) classify(ctx context.Context, data []byte, in pageInput) (pageResult, error) {
	hasText := charCount(in.lines) > l.cfg.MinDirectTextChars
	canOCR := l.recognizer != nil

	switch {
	case hasText && !in.hasImages:
		return pageResult{method: MethodDirectText, lines: in.lines}, nil

	case hasText && in.hasImages:
		if !canOCR || !l.cfg.OCRSupplement {
			return pageResult{method: MethodDirectText, lines: in.lines}, nil
		}
		words, err := l.recognize(ctx, data, in.index)
		if err != nil {
			if ctx.Err() != nil {
				return pageResult{}, ctx.Err()
			}
			return pageResult{method: MethodDirectText, lines: in.lines, ocrFailed: true}, nil
		}
		return pageResult{
			method:     MethodHybrid,
			lines:      in.lines,
			supplement: supplement(lineTexts(in.lines), ocrLines(words)),
		}, nil

	case canOCR && (in.hasImages || len(in.lines) == 0):
		words, err := l.recognize(ctx, data, in.index)
		if err != nil {
			if ctx.Err() != nil {
				return pageResult{}, ctx.Err()
			}
			return l.fallback(in, true), nil
		}
		ocr := l.layout().lines(wordBoxes(words, in.height))
		if len(ocr) == 0 || charCount(ocr) <= charCount(in.lines) {
			return l.fallback(in, false), nil
		}
		return pageResult{method: MethodOCROnly, lines: ocr}, nil
	}

	return l.fallback(in, false), nil
}

// fallback keeps whatever the text layer produced.
func (l *Local) fallback(in pageInput, ocrFailed bool) pageResult {
	if len(in.lines) == 0 {
		return pageResult{method: MethodEmpty, ocrFailed: ocrFailed}
	}
	return pageResult{method: MethodDirectText, lines: in.lines, ocrFailed: ocrFailed}
}

func (l *Local) recognize(ctx context.Context, data []byte, page int) ([]Word, error) {
	words, err := l.recognizer.RecognizePage(ctx, data, page)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.logger.Warn().Err(err).Int("page", page+1).Msg("OCR failed, keeping text layer")
		return nil, err
	}
	l.logger.Debug().Int("page", page+1).Int("words", len(words)).Msg("page recognized")
	return words, nil
}

// wordBoxes converts top-origin OCR words to page-space boxes.
func wordBoxes(words []Word, pageHeight float64) []box {
	boxes := make([]box, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Height <= 0 {
			continue
		}
		line := w.Line
		if line < 0 {
			line = 0
		}
		boxes = append(boxes, box{
			text: w.Text,
			x:    w.X,
			y:    FlipY(w.Top, w.Height, pageHeight),
			w:    w.Width,
			h:    w.Height,
			size: w.Height,
			line: line,
		})
	}
	return boxes
}

// FlipY converts the top edge of a top-origin box to the bottom edge of the
// same box in bottom-origin page space.
func FlipY(top, height, pageHeight float64) float64 {
	return pageHeight - (top + height)
}

// ocrLines joins recognized words into lines in recognition order.
func ocrLines(words []Word) []string {
	var keys []int
	parts := make(map[int][]string)
	for _, w := range words {
		t := strings.TrimSpace(w.Text)
		if t == "" {
			continue
		}
		if _, ok := parts[w.Line]; !ok {
			keys = append(keys, w.Line)
		}
		parts[w.Line] = append(parts[w.Line], t)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.Join(parts[k], " "))
	}
	return out
}

// supplement returns the OCR lines that neither contain nor are contained
// in any line of the text layer, joined by newlines.
func supplement(direct, ocr []string) string {
	var kept []string
	for _, o := range ocr {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		seen := false
		for _, d := range direct {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			if strings.Contains(d, o) || strings.Contains(o, d) {
				seen = true
				break
			}
		}
		if !seen {
			kept = append(kept, o)
		}
	}
	return strings.Join(kept, "\n")
}
