// Package annotate draws highlight regions on a PDF as an incremental
// update.
//
// The original bytes are kept verbatim and a new section is appended that
// replaces each highlighted page object with a copy whose /Contents array
// gains a translucent overlay stream. Existing content streams are never
// decoded or re-encoded, so page count, page sizes and page content are
// unchanged.
//
// Basic usage:
//
//	out, warnings, err := annotate.Render(original, regions, annotate.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	for _, w := range warnings {
//	    log.Println(w)
//	}
package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/tsawler/tabula/core"

	"github.com/tsawler/pdfcompare/diff"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/internal/filters"
	"github.com/tsawler/pdfcompare/internal/pdfobj"
)

// ErrEncrypted is returned for documents with an /Encrypt dictionary.
var ErrEncrypted = errors.New("encrypted documents cannot be annotated")

// Color is an RGB color with components in [0, 1].
type Color [3]float64

// Options controls the overlay appearance.
type Options struct {
	// Opacity applies to both fill and stroke. Defaults to 0.25.
	Opacity float64

	// StrokeWidth is the border width in points. Defaults to 0.5.
	StrokeWidth float64

	AddedColor    Color
	ModifiedColor Color

	// Legend draws color keys at the bottom of every highlighted page.
	Legend bool

	// Caption is drawn next to the legend.
	Caption string
}

// DefaultOptions returns red for additions and yellow for modifications at
// 25% opacity.
func DefaultOptions() Options {
	return Options{
		Opacity:       0.25,
		StrokeWidth:   0.5,
		AddedColor:    Color{1, 0, 0},
		ModifiedColor: Color{1, 1, 0},
	}
}

func (o Options) validate() error {
	if o.Opacity <= 0 || o.Opacity > 1 {
		return fmt.Errorf("opacity %.2f out of range (0, 1]", o.Opacity)
	}
	if o.StrokeWidth < 0 {
		return fmt.Errorf("stroke width must not be negative")
	}
	return nil
}

func (o Options) color(k diff.Kind) (Color, bool) {
	switch k {
	case diff.Added:
		return o.AddedColor, true
	case diff.Modified:
		return o.ModifiedColor, true
	}
	return Color{}, false
}

const (
	legendX        = 36.0
	legendY        = 18.0
	legendFontSize = 8.0
)

var startXRefRe = regexp.MustCompile(`startxref\s+(\d+)`)

// Render returns original with the regions drawn on top. Regions of kinds
// other than added and modified are ignored. When nothing is drawn the
// output is a copy of the input. The input slice is never modified.
func Render(original []byte, regions []highlight.Region, opts Options) ([]byte, []*EncodingError, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	byPage := make(map[int][]highlight.Region)
	for _, r := range regions {
		if _, ok := opts.color(r.Kind); ok && r.Width > 0 && r.Height > 0 {
			byPage[r.Page] = append(byPage[r.Page], r)
		}
	}
	if len(byPage) == 0 {
		return bytes.Clone(original), nil, nil
	}

	prev, prevIsStream, err := lastXRefOffset(original)
	if err != nil {
		return nil, nil, err
	}

	pdf, err := pdfobj.Open(original)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse document: %w", err)
	}
	defer pdf.Close()

	trailer := pdf.Trailer()
	if trailer.Has("Encrypt") {
		return nil, nil, ErrEncrypted
	}
	nodes, err := pdf.PageNodes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read page tree: %w", err)
	}

	var caption []byte
	var warnings []*EncodingError
	if opts.Legend && opts.Caption != "" {
		caption, warnings = encodeWinAnsi(opts.Caption)
	}

	u := &update{
		r:      pdf,
		next:   nextObjectNumber(pdf),
		offset: len(original),
	}
	if last := original[len(original)-1]; last != '\n' && last != '\r' {
		u.buf.WriteByte('\n')
	}

	pageIndexes := make([]int, 0, len(byPage))
	for p := range byPage {
		pageIndexes = append(pageIndexes, p)
	}
	sort.Ints(pageIndexes)

	prefix := u.add(&core.Stream{Dict: core.Dict{}, Data: []byte("q\n")})
	for _, p := range pageIndexes {
		if p < 0 || p >= len(nodes) {
			return nil, nil, fmt.Errorf("region on page %d, document has %d pages", p+1, len(nodes))
		}
		if err := u.annotatePage(nodes[p], byPage[p], prefix, opts, caption); err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", p+1, err)
		}
	}

	finish := u.finish
	if prevIsStream {
		finish = u.finishStream
	}
	if err := finish(trailer, prev); err != nil {
		return nil, nil, err
	}

	out := make([]byte, 0, len(original)+u.buf.Len())
	out = append(out, original...)
	out = append(out, u.buf.Bytes()...)
	return out, warnings, nil
}

// lastXRefOffset returns the offset of the newest cross-reference section
// and whether it is a cross-reference stream. The update is chained to it
// with /Prev, so a damaged table cannot be extended.
func lastXRefOffset(data []byte) (int, bool, error) {
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	matches := startXRefRe.FindAllSubmatch(tail, -1)
	if len(matches) == 0 {
		return 0, false, errors.New("damaged document: startxref not found")
	}
	offset, err := strconv.Atoi(string(matches[len(matches)-1][1]))
	if err != nil || offset <= 0 || offset >= len(data) {
		return 0, false, errors.New("damaged document: startxref out of range")
	}

	at := bytes.TrimLeft(data[offset:], " \t\r\n")
	switch {
	case bytes.HasPrefix(at, []byte("xref")):
		return offset, false, nil
	case xrefStreamRe.Match(at):
		return offset, true, nil
	}
	return 0, false, errors.New("damaged document: startxref does not point at a cross-reference section")
}

var xrefStreamRe = regexp.MustCompile(`^\d+\s+\d+\s+obj\b`)

func nextObjectNumber(pdf *pdfobj.Document) int {
	next := pdf.NumObjects()
	if table := pdf.XRefTable(); table != nil {
		for num := range table.Entries {
			if num+1 > next {
				next = num + 1
			}
		}
	}
	if next < 1 {
		next = 1
	}
	return next
}

// update accumulates the objects of an incremental update.
type update struct {
	r       *pdfobj.Document
	buf     bytes.Buffer
	offset  int
	next    int
	pending []pendingObject
	entries []xrefEntry
}

type pendingObject struct {
	ref core.IndirectRef
	obj core.Object
}

type xrefEntry struct {
	ref    core.IndirectRef
	offset int
}

// add allocates a new object number for obj.
func (u *update) add(obj core.Object) core.IndirectRef {
	ref := core.IndirectRef{Number: u.next}
	u.next++
	u.pending = append(u.pending, pendingObject{ref: ref, obj: obj})
	return ref
}

// replace queues a new version of an existing object.
func (u *update) replace(ref core.IndirectRef, obj core.Object) {
	u.pending = append(u.pending, pendingObject{ref: ref, obj: obj})
}

func (u *update) annotatePage(node pdfobj.PageNode, regions []highlight.Region, prefix core.IndirectRef, opts Options, caption []byte) error {
	if !node.HasRef() {
		return errors.New("page is not an indirect object")
	}

	resources := copyDict(node.Resources)
	gsName, err := u.addResource(resources, "ExtGState", "GSpdfcompare", core.Dict{
		"Type": core.Name("ExtGState"),
		"ca":   core.Real(opts.Opacity),
		"CA":   core.Real(opts.Opacity),
	})
	if err != nil {
		return err
	}
	fontName := ""
	if opts.Legend {
		fontName, err = u.addResource(resources, "Font", "Fpdfcompare", core.Dict{
			"Type":     core.Name("Font"),
			"Subtype":  core.Name("Type1"),
			"BaseFont": core.Name("Helvetica"),
			"Encoding": core.Name("WinAnsiEncoding"),
		})
		if err != nil {
			return err
		}
	}

	content := overlayContent(node.MediaBox, regions, opts, gsName, fontName, caption)
	encoded, err := filters.FlateEncode(content)
	if err != nil {
		return err
	}
	overlay := u.add(&core.Stream{
		Dict: core.Dict{"Filter": core.Name("FlateDecode")},
		Data: encoded,
	})

	contents, err := u.contents(node.Dict.Get("Contents"))
	if err != nil {
		return err
	}
	all := make(core.Array, 0, len(contents)+2)
	all = append(all, prefix)
	all = append(all, contents...)
	all = append(all, overlay)

	page := copyDict(node.Dict)
	page["Contents"] = all
	page["Resources"] = resources
	u.replace(node.Ref, page)
	return nil
}

// contents flattens a page's /Contents entry into a list of stream
// references.
func (u *update) contents(obj core.Object) (core.Array, error) {
	switch v := obj.(type) {
	case nil:
		return nil, nil
	case core.Array:
		return v, nil
	case core.IndirectRef:
		resolved, err := u.r.Resolve(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve /Contents: %w", err)
		}
		if arr, ok := resolved.(core.Array); ok {
			return arr, nil
		}
		return core.Array{v}, nil
	}
	return nil, fmt.Errorf("invalid /Contents type: %T", obj)
}

// addResource adds value under a name not yet used in the category and
// returns that name.
func (u *update) addResource(resources core.Dict, category, base string, value core.Object) (string, error) {
	var existing core.Dict
	if obj := resources.Get(category); obj != nil {
		resolved, err := u.r.Resolve(obj)
		if err != nil {
			return "", fmt.Errorf("failed to resolve /%s: %w", category, err)
		}
		if d, ok := resolved.(core.Dict); ok {
			existing = d
		}
	}
	sub := copyDict(existing)

	name := base
	for i := 1; sub.Has(name); i++ {
		name = base + strconv.Itoa(i)
	}
	sub[name] = value
	resources[category] = sub
	return name, nil
}

// overlayContent draws the regions inside q/Q. The leading Q closes the
// q of the shared prefix stream, isolating the original content's graphics
// state from the overlay.
func overlayContent(mb pdfobj.Box, regions []highlight.Region, opts Options, gsName, fontName string, caption []byte) []byte {
	var b bytes.Buffer
	num := pdfobj.FormatNumber

	b.WriteString("\nQ\nq\n")
	fmt.Fprintf(&b, "1 0 0 1 %s %s cm\n", num(mb[0]), num(mb[1]))
	fmt.Fprintf(&b, "/%s gs\n%s w\n", pdfobj.EscapeName(gsName), num(opts.StrokeWidth))
	for _, r := range regions {
		c, _ := opts.color(r.Kind)
		fmt.Fprintf(&b, "%s %s %s rg %s %s %s RG\n", num(c[0]), num(c[1]), num(c[2]), num(c[0]), num(c[1]), num(c[2]))
		fmt.Fprintf(&b, "%s %s %s %s re B\n", num(r.X), num(r.Y), num(r.Width), num(r.Height))
	}

	if fontName != "" {
		keys := []struct {
			label string
			color Color
		}{
			{"Added", opts.AddedColor},
			{"Modified", opts.ModifiedColor},
		}
		x := legendX
		for _, k := range keys {
			c := k.color
			fmt.Fprintf(&b, "%s %s %s rg %s %s %s RG\n", num(c[0]), num(c[1]), num(c[2]), num(c[0]), num(c[1]), num(c[2]))
			fmt.Fprintf(&b, "%s %s 8 8 re B\n", num(x), num(legendY))
			x += 64
		}

		// Labels are drawn opaque.
		b.WriteString("Q\nq\n")
		fmt.Fprintf(&b, "1 0 0 1 %s %s cm\n0 g\n", num(mb[0]), num(mb[1]))
		x = legendX
		for _, k := range keys {
			writeText(&b, fontName, x+12, legendY+1, []byte(k.label))
			x += 64
		}
		if len(caption) > 0 {
			writeText(&b, fontName, x, legendY+1, caption)
		}
	}
	b.WriteString("Q\n")
	return b.Bytes()
}

func writeText(b *bytes.Buffer, font string, x, y float64, text []byte) {
	fmt.Fprintf(b, "BT /%s %s Tf %s %s Td ", pdfobj.EscapeName(font), pdfobj.FormatNumber(legendFontSize), pdfobj.FormatNumber(x), pdfobj.FormatNumber(y))
	pdfobj.WriteString(b, text)
	b.WriteString(" Tj ET\n")
}

// writePending writes the queued objects and records their offsets in
// object number order.
func (u *update) writePending() error {
	for _, p := range u.pending {
		u.entries = append(u.entries, xrefEntry{ref: p.ref, offset: u.offset + u.buf.Len()})
		if err := pdfobj.WriteIndirect(&u.buf, p.ref, p.obj); err != nil {
			return err
		}
	}
	sort.Slice(u.entries, func(i, j int) bool {
		return u.entries[i].ref.Number < u.entries[j].ref.Number
	})
	return nil
}

// updateTrailer returns the trailer entries carried into the update.
func (u *update) updateTrailer(trailer core.Dict, size, prev int) core.Dict {
	t := core.Dict{
		"Size": core.Int(size),
		"Prev": core.Int(prev),
	}
	for _, key := range []string{"Root", "Info", "ID"} {
		if v := trailer.Get(key); v != nil {
			t[key] = v
		}
	}
	return t
}

// finish writes the queued objects, a cross-reference table and the
// trailer.
func (u *update) finish(trailer core.Dict, prev int) error {
	if err := u.writePending(); err != nil {
		return err
	}

	xref := u.offset + u.buf.Len()
	u.buf.WriteString("xref\n0 1\n0000000000 65535 f \n")
	for _, e := range u.entries {
		fmt.Fprintf(&u.buf, "%d 1\n%010d %05d n \n", e.ref.Number, e.offset, e.ref.Generation)
	}

	u.buf.WriteString("trailer\n")
	if err := pdfobj.Write(&u.buf, u.updateTrailer(trailer, u.next, prev)); err != nil {
		return err
	}
	fmt.Fprintf(&u.buf, "\nstartxref\n%d\n%%%%EOF\n", xref)
	return nil
}

// finishStream writes the queued objects and a cross-reference stream that
// also carries the trailer entries. Documents whose newest section is a
// stream are extended this way so the /Prev chain stays one kind.
func (u *update) finishStream(trailer core.Dict, prev int) error {
	if err := u.writePending(); err != nil {
		return err
	}

	self := core.IndirectRef{Number: u.next}
	u.next++
	xref := u.offset + u.buf.Len()
	entries := append(u.entries, xrefEntry{ref: self, offset: xref})

	// Type 1 entries: 1 byte type, 4 byte offset, 2 byte generation.
	var data bytes.Buffer
	index := make(core.Array, 0, 2*len(entries))
	for _, e := range entries {
		data.Write([]byte{
			1,
			byte(e.offset >> 24), byte(e.offset >> 16), byte(e.offset >> 8), byte(e.offset),
			byte(e.ref.Generation >> 8), byte(e.ref.Generation),
		})
		index = append(index, core.Int(e.ref.Number), core.Int(1))
	}
	encoded, err := filters.FlateEncode(data.Bytes())
	if err != nil {
		return err
	}

	dict := u.updateTrailer(trailer, u.next, prev)
	dict["Type"] = core.Name("XRef")
	dict["W"] = core.Array{core.Int(1), core.Int(4), core.Int(2)}
	dict["Index"] = index
	dict["Filter"] = core.Name("FlateDecode")

	if err := pdfobj.WriteIndirect(&u.buf, self, &core.Stream{Dict: dict, Data: encoded}); err != nil {
		return err
	}
	fmt.Fprintf(&u.buf, "startxref\n%d\n%%%%EOF\n", xref)
	return nil
}

func copyDict(d core.Dict) core.Dict {
	out := make(core.Dict, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}
