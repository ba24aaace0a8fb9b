package resources

import (
	"errors"
	"fmt"

	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/security"
)

// ErrNoPageTree is returned when the catalog has no usable /Pages entry.
var ErrNoPageTree = errors.New("document has no page tree")

// Inheritable lists the page attributes a page inherits from its ancestors
// in the page tree.
var Inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// BoxKinds are the five standard page boundaries in their usual order.
var BoxKinds = []string{"MediaBox", "CropBox", "TrimBox", "ArtBox", "BleedBox"}

// Page is one leaf of the page tree together with the attributes it
// inherits. Number is 1-based.
type Page struct {
	Number int
	Dict   raw.Dictionary

	src       raw.Provider
	limits    security.Limits
	inherited map[string]raw.Object
}

// XObject is a named entry of a page's /XObject resource dictionary.
type XObject struct {
	Name   string
	Dict   raw.Dictionary
	Stream raw.Stream // nil when the entry is a bare dictionary
}

// Subtype returns the /Subtype of the XObject, e.g. "Image" or "Form".
func (x XObject) Subtype() string {
	obj, _ := raw.Lookup(x.Dict, "Subtype")
	name, _ := raw.NameOf(obj)
	return name
}

// NewPage wraps a page dictionary that has no ancestors. It is useful when a
// caller already holds a flattened page.
func NewPage(src raw.Provider, number int, dict raw.Dictionary) *Page {
	return &Page{Number: number, Dict: dict, src: src, limits: security.DefaultLimits()}
}

// Source returns the provider the page was read from.
func (p *Page) Source() raw.Provider { return p.src }

// Limits returns the limits in effect for this page.
func (p *Page) Limits() security.Limits { return p.limits }

// Attr returns the resolved attribute key, consulting ancestors for
// inheritable attributes. A missing attribute yields nil, nil.
func (p *Page) Attr(key string) (raw.Object, error) {
	obj, err := raw.Get(p.src, p.Dict, key)
	if err != nil || obj != nil {
		return obj, err
	}
	if inh, ok := p.inherited[key]; ok {
		res, err := p.src.Resolve(inh)
		if err != nil {
			return nil, fmt.Errorf("resolve inherited /%s: %w", key, err)
		}
		if raw.IsNull(res) {
			return nil, nil
		}
		return res, nil
	}
	return nil, nil
}

// Box returns the four coordinates of the named page boundary. ok is false
// when the page does not declare the box or the entry is malformed.
func (p *Page) Box(kind string) (box []float64, ok bool, err error) {
	obj, err := p.Attr(kind)
	if err != nil || obj == nil {
		return nil, false, err
	}
	arr, isArr := obj.(raw.Array)
	if !isArr || arr.Len() != 4 {
		return nil, false, nil
	}
	box = make([]float64, 4)
	for i := 0; i < 4; i++ {
		item, _ := arr.Get(i)
		item, err = p.src.Resolve(item)
		if err != nil {
			return nil, false, err
		}
		v, isNum := raw.NumberOf(item)
		if !isNum {
			return nil, false, nil
		}
		box[i] = v
	}
	return box, true, nil
}

// Resource returns one category of the page's resource dictionary, such as
// "Font" or "ExtGState". A missing category yields nil, nil.
func (p *Page) Resource(category string) (raw.Dictionary, error) {
	res, err := p.Attr("Resources")
	if err != nil {
		return nil, err
	}
	resDict, ok := res.(raw.Dictionary)
	if !ok {
		return nil, nil
	}
	return raw.GetDict(p.src, resDict, category)
}

// XObjects lists the page's XObject resources ordered by resource name.
func (p *Page) XObjects() ([]XObject, error) {
	xobjs, err := p.Resource("XObject")
	if err != nil || xobjs == nil {
		return nil, err
	}
	var out []XObject
	for _, key := range xobjs.Keys() {
		obj, err := raw.Get(p.src, xobjs, key.Value())
		if err != nil {
			return nil, fmt.Errorf("xobject %s: %w", key.Value(), err)
		}
		switch v := obj.(type) {
		case raw.Stream:
			out = append(out, XObject{Name: key.Value(), Dict: v.Dictionary(), Stream: v})
		case raw.Dictionary:
			out = append(out, XObject{Name: key.Value(), Dict: v})
		}
	}
	return out, nil
}

// Contents returns the page content streams in drawing order.
func (p *Page) Contents() ([]raw.Stream, error) {
	obj, err := raw.Get(p.src, p.Dict, "Contents")
	if err != nil || obj == nil {
		return nil, err
	}
	switch v := obj.(type) {
	case raw.Stream:
		return []raw.Stream{v}, nil
	case raw.Array:
		var out []raw.Stream
		for i := 0; i < v.Len(); i++ {
			item, _ := v.Get(i)
			item, err := p.src.Resolve(item)
			if err != nil {
				return nil, err
			}
			if stm, ok := item.(raw.Stream); ok {
				out = append(out, stm)
			}
		}
		return out, nil
	}
	return nil, nil
}

// Pages walks the page tree of src and returns its leaves in document order.
func Pages(src raw.Provider, limits security.Limits) ([]*Page, error) {
	limits = limits.WithDefaults()
	root, err := raw.GetDict(src, src.Trailer(), "Root")
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("%w: trailer has no /Root", ErrNoPageTree)
	}
	treeObj, ok := raw.Lookup(root, "Pages")
	if !ok {
		return nil, ErrNoPageTree
	}
	w := &walker{src: src, limits: limits, visited: make(map[raw.ObjectRef]bool)}
	if err := w.walk(treeObj, nil, 0); err != nil {
		return nil, err
	}
	return w.pages, nil
}

type walker struct {
	src     raw.Provider
	limits  security.Limits
	visited map[raw.ObjectRef]bool
	pages   []*Page
}

func (w *walker) walk(obj raw.Object, inherited map[string]raw.Object, depth int) error {
	if depth > w.limits.MaxIndirectDepth {
		return fmt.Errorf("page tree deeper than %d", w.limits.MaxIndirectDepth)
	}
	if ref, ok := obj.(raw.Reference); ok {
		if w.visited[ref.Ref()] {
			return fmt.Errorf("page tree cycle at %s", ref.Ref())
		}
		w.visited[ref.Ref()] = true
	}
	res, err := w.src.Resolve(obj)
	if err != nil {
		return fmt.Errorf("page tree: %w", err)
	}
	node, ok := res.(raw.Dictionary)
	if !ok {
		return nil
	}

	typ, _ := raw.Lookup(node, "Type")
	name, _ := raw.NameOf(typ)
	kids, hasKids := raw.Lookup(node, "Kids")
	if name == "Page" || (name != "Pages" && !hasKids) {
		if len(w.pages) >= w.limits.MaxPages {
			return fmt.Errorf("document has more than %d pages", w.limits.MaxPages)
		}
		w.pages = append(w.pages, &Page{
			Number:    len(w.pages) + 1,
			Dict:      node,
			src:       w.src,
			limits:    w.limits,
			inherited: inherited,
		})
		return nil
	}

	next := make(map[string]raw.Object, len(Inheritable))
	for k, v := range inherited {
		next[k] = v
	}
	for _, key := range Inheritable {
		if v, ok := raw.Lookup(node, key); ok {
			next[key] = v
		}
	}

	kidsObj, err := w.src.Resolve(kids)
	if err != nil {
		return fmt.Errorf("page tree kids: %w", err)
	}
	arr, ok := kidsObj.(raw.Array)
	if !ok {
		return nil
	}
	for i := 0; i < arr.Len(); i++ {
		kid, _ := arr.Get(i)
		if err := w.walk(kid, next, depth+1); err != nil {
			return err
		}
	}
	return nil
}
