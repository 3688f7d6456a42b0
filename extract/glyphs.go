package extract

import (
	"math"
	"strings"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/font"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"

	"github.com/tsawler/pdfcompare/internal/pdfobj"
)

// unknownGlyphWidth is the advance, in thousandths of an em, of every glyph
// of a font the page does not define.
const unknownGlyphWidth = 500.0

// glyphScanner runs the text operators of a content stream and records
// every shown string with the left edge of each of its glyphs. Advances
// come from the font widths, TJ adjustments, character and word spacing,
// and horizontal scaling, so glyph edges line up with the rendered page.
type glyphScanner struct {
	gs      *graphicsstate.GraphicsState
	fonts   map[string]*font.Font
	origin  pdfobj.Box
	descent float64
	boxes   []box
}

// scanGlyphs returns the text boxes of one page in page space.
func scanGlyphs(r *reader.Reader, p *pages.Page, mb pdfobj.Box, descent float64) ([]box, error) {
	contents, err := p.Contents()
	if err != nil {
		return nil, err
	}

	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return nil, err
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}
	if len(data) == 0 {
		return nil, nil
	}

	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		return nil, err
	}

	// Fonts that cannot be parsed fall back to unknownGlyphWidth.
	fx := text.NewExtractor()
	_ = fx.RegisterFontsFromPage(p, r.ResolveReference)

	s := &glyphScanner{
		gs:      graphicsstate.NewGraphicsState(),
		fonts:   fx.GetFonts(),
		origin:  mb,
		descent: descent,
	}
	for _, op := range ops {
		s.apply(op)
	}
	return s.boxes, nil
}

func (s *glyphScanner) apply(op contentstream.Operation) {
	ts := &s.gs.Text
	args := op.Operands

	switch op.Operator {
	case "q":
		s.gs.Save()
	case "Q":
		// Unbalanced Q operators are common in the wild.
		_ = s.gs.Restore()
	case "cm":
		if len(args) == 6 {
			s.gs.CTM = matrix(args).Multiply(s.gs.CTM)
		}

	case "BT":
		s.gs.BeginText()
	case "Tf":
		if len(args) == 2 {
			name, _ := args[0].(core.Name)
			size, _ := number(args[1])
			s.gs.SetFont(string(name), size)
		}
	case "Tc":
		if v, ok := operand(args, 0); ok {
			ts.CharSpacing = v
		}
	case "Tw":
		if v, ok := operand(args, 0); ok {
			ts.WordSpacing = v
		}
	case "Tz":
		if v, ok := operand(args, 0); ok {
			ts.HorizontalScaling = v
		}
	case "TL":
		if v, ok := operand(args, 0); ok {
			ts.Leading = v
		}
	case "Ts":
		if v, ok := operand(args, 0); ok {
			ts.Rise = v
		}

	case "Tm":
		if len(args) == 6 {
			s.gs.SetTextMatrix(matrix(args))
		}
	case "Td", "TD":
		if len(args) == 2 {
			tx, _ := number(args[0])
			ty, _ := number(args[1])
			if op.Operator == "TD" {
				ts.Leading = -ty
			}
			s.newLine(tx, ty)
		}
	case "T*":
		s.newLine(0, -ts.Leading)

	case "Tj":
		if str, ok := stringOperand(args, 0); ok {
			s.show(str)
		}
	case "'":
		s.newLine(0, -ts.Leading)
		if str, ok := stringOperand(args, 0); ok {
			s.show(str)
		}
	case "\"":
		if len(args) == 3 {
			ts.WordSpacing, _ = number(args[0])
			ts.CharSpacing, _ = number(args[1])
			s.newLine(0, -ts.Leading)
			if str, ok := stringOperand(args, 2); ok {
				s.show(str)
			}
		}
	case "TJ":
		arr, _ := operandArray(args)
		for _, item := range arr {
			if str, ok := item.(core.String); ok {
				s.show([]byte(str))
				continue
			}
			if adj, ok := number(item); ok {
				s.advance(-adj / 1000 * ts.FontSize * ts.HorizontalScaling / 100)
			}
		}
	}
}

// newLine moves to the start of the next line, offset from the start of
// the current one.
func (s *glyphScanner) newLine(tx, ty float64) {
	ts := &s.gs.Text
	ts.TextLineMatrix = model.Translate(tx, ty).Multiply(ts.TextLineMatrix)
	ts.TextMatrix = ts.TextLineMatrix
}

// advance moves the text position by tx text space units.
func (s *glyphScanner) advance(tx float64) {
	ts := &s.gs.Text
	ts.TextMatrix = model.Translate(tx, 0).Multiply(ts.TextMatrix)
}

func (s *glyphScanner) font() *font.Font {
	name := s.gs.Text.FontName
	if f, ok := s.fonts[name]; ok {
		return f
	}
	return s.fonts["/"+strings.TrimPrefix(name, "/")]
}

// show records one string and moves past it.
func (s *glyphScanner) show(data []byte) {
	ts := &s.gs.Text
	f := s.font()

	decoded := string(data)
	if f != nil {
		decoded = f.DecodeString(data)
	}
	runes := []rune(decoded)
	if len(runes) == 0 {
		return
	}

	trm := ts.TextMatrix.Multiply(s.gs.CTM)
	start := trm.Transform(model.Point{X: 0, Y: ts.Rise})
	scale := ts.HorizontalScaling / 100

	edges := make([]float64, len(runes)+1)
	tx := 0.0
	for i, r := range runes {
		w := unknownGlyphWidth
		if f != nil {
			w = f.GetWidth(r)
		}
		adv := w/1000*ts.FontSize + ts.CharSpacing
		if r == ' ' {
			adv += ts.WordSpacing
		}
		tx += adv * scale
		edges[i+1] = trm.Transform(model.Point{X: tx, Y: ts.Rise}).X - start.X
	}

	size := math.Abs(ts.FontSize) * math.Hypot(trm[2], trm[3])
	if size > 0 {
		s.boxes = append(s.boxes, box{
			text:  decoded,
			x:     start.X - s.origin[0],
			y:     start.Y - s.descent*size - s.origin[1],
			w:     edges[len(runes)],
			h:     size,
			size:  size,
			line:  -1,
			edges: edges,
		})
	}
	s.advance(tx)
}

func number(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}

func operand(args []core.Object, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	return number(args[i])
}

func stringOperand(args []core.Object, i int) ([]byte, bool) {
	if i >= len(args) {
		return nil, false
	}
	str, ok := args[i].(core.String)
	return []byte(str), ok
}

func operandArray(args []core.Object) (core.Array, bool) {
	if len(args) != 1 {
		return nil, false
	}
	arr, ok := args[0].(core.Array)
	return arr, ok
}

func matrix(args []core.Object) model.Matrix {
	var m model.Matrix
	for i := range m {
		m[i], _ = number(args[i])
	}
	return m
}
