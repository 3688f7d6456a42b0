// Package pdfobj holds the low-level PDF object helpers shared by the
// extractor and the annotation writer: a page tree walk that keeps indirect
// references and fully inherited attributes, and a deterministic serializer
// for tabula core objects.
package pdfobj

import (
	"fmt"

	"github.com/tsawler/tabula/core"
)

// Resolver resolves indirect references. *reader.Reader satisfies it.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// maxTreeDepth bounds page tree recursion on malformed or cyclic files.
const maxTreeDepth = 64

// DefaultMediaBox is used when no MediaBox is found anywhere in the tree
// (US Letter, as most viewers assume).
var DefaultMediaBox = Box{0, 0, 612, 792}

// Box is a PDF rectangle [llx lly urx ury].
type Box [4]float64

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b[2] - b[0] }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b[3] - b[1] }

// PageNode is a leaf of the page tree.
type PageNode struct {
	// Index is the 0-based page index in document order.
	Index int

	// Ref is the indirect reference of the page dictionary. It is the zero
	// value when the page is stored as a direct object (rare, but legal in
	// damaged files).
	Ref core.IndirectRef

	// Dict is the page dictionary as stored (not a copy).
	Dict core.Dict

	// MediaBox is resolved through the full chain of ancestors.
	MediaBox Box

	// Resources is the resolved resource dictionary, inherited from the
	// nearest ancestor when the page has none. Nil if no ancestor has one.
	Resources core.Dict

	// Rotate is the inherited /Rotate value.
	Rotate int
}

// HasRef reports whether the page is an indirect object.
func (p PageNode) HasRef() bool {
	return p.Ref.Number > 0
}

// inherited carries the inheritable page attributes down the tree.
type inherited struct {
	mediaBox  core.Object
	resources core.Object
	rotate    core.Object
}

// Pages walks the page tree rooted at the catalog's /Pages entry and returns
// the leaves in document order.
func Pages(r Resolver, catalog core.Dict) ([]PageNode, error) {
	rootObj := catalog.Get("Pages")
	if rootObj == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}

	w := &walker{r: r, visited: make(map[int]bool)}
	if err := w.walk(rootObj, inherited{}, 0); err != nil {
		return nil, err
	}
	return w.pages, nil
}

type walker struct {
	r       Resolver
	pages   []PageNode
	visited map[int]bool
}

func (w *walker) walk(nodeObj core.Object, inh inherited, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	var ref core.IndirectRef
	if r, ok := nodeObj.(core.IndirectRef); ok {
		if w.visited[r.Number] {
			return fmt.Errorf("page tree cycle at object %d", r.Number)
		}
		w.visited[r.Number] = true
		ref = r
	}

	resolved, err := w.r.Resolve(nodeObj)
	if err != nil {
		return fmt.Errorf("failed to resolve page tree node: %w", err)
	}
	node, ok := resolved.(core.Dict)
	if !ok {
		return fmt.Errorf("invalid page tree node type: %T", resolved)
	}

	if v := node.Get("MediaBox"); v != nil {
		inh.mediaBox = v
	}
	if v := node.Get("Resources"); v != nil {
		inh.resources = v
	}
	if v := node.Get("Rotate"); v != nil {
		inh.rotate = v
	}

	typeName, _ := node.GetName("Type")
	if typeName == "Pages" || (typeName == "" && node.Has("Kids")) {
		kidsObj, err := w.r.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsObj.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsObj)
		}
		for _, kid := range kids {
			if err := w.walk(kid, inh, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	page := PageNode{
		Index:    len(w.pages),
		Ref:      ref,
		Dict:     node,
		MediaBox: DefaultMediaBox,
	}
	if inh.mediaBox != nil {
		if box, err := w.box(inh.mediaBox); err == nil {
			page.MediaBox = box
		}
	}
	if inh.resources != nil {
		if res, err := w.r.Resolve(inh.resources); err == nil {
			if d, ok := res.(core.Dict); ok {
				page.Resources = d
			}
		}
	}
	if inh.rotate != nil {
		if rot, err := w.r.Resolve(inh.rotate); err == nil {
			if n, ok := rot.(core.Int); ok {
				page.Rotate = int(n)
			}
		}
	}

	w.pages = append(w.pages, page)
	return nil
}

func (w *walker) box(obj core.Object) (Box, error) {
	resolved, err := w.r.Resolve(obj)
	if err != nil {
		return Box{}, err
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		return Box{}, fmt.Errorf("invalid box: %v", resolved)
	}

	var box Box
	for i, elem := range arr {
		v, err := w.r.Resolve(elem)
		if err != nil {
			return Box{}, err
		}
		n, ok := Number(v)
		if !ok {
			return Box{}, fmt.Errorf("invalid box element type: %T", v)
		}
		box[i] = n
	}

	// Normalize so that [0],[1] is the lower-left corner.
	if box[0] > box[2] {
		box[0], box[2] = box[2], box[0]
	}
	if box[1] > box[3] {
		box[1], box[3] = box[3], box[1]
	}
	return box, nil
}

// Number converts a numeric PDF object to float64.
func Number(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}

// HasImages reports whether a resource dictionary declares at least one image
// XObject, looking one level into form XObjects.
func HasImages(r Resolver, resources core.Dict) bool {
	return hasImages(r, resources, 0)
}

func hasImages(r Resolver, resources core.Dict, depth int) bool {
	if resources == nil || depth > 2 {
		return false
	}
	xobjs, err := r.Resolve(resources.Get("XObject"))
	if err != nil {
		return false
	}
	dict, ok := xobjs.(core.Dict)
	if !ok {
		return false
	}

	for _, name := range SortedKeys(dict) {
		obj, err := r.Resolve(dict[name])
		if err != nil {
			continue
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		subtype, _ := stream.Dict.GetName("Subtype")
		switch subtype {
		case "Image":
			return true
		case "Form":
			res, err := r.Resolve(stream.Dict.Get("Resources"))
			if err != nil {
				continue
			}
			if sub, ok := res.(core.Dict); ok && hasImages(r, sub, depth+1) {
				return true
			}
		}
	}
	return false
}
