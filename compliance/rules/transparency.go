package rules

import (
	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/resources"
)

// NoTransparency flags pages that use any transparency feature: a
// transparency group on the page or one of its XObjects, a soft mask, a
// constant alpha below 1 or a blend mode other than Normal.
type NoTransparency struct{}

func NewNoTransparency() NoTransparency { return NoTransparency{} }

func (NoTransparency) Name() string { return "no_transparency" }

func (r NoTransparency) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	found, err := pageTransparency(page)
	if err != nil || found == "" {
		return nil, err
	}
	return []compliance.Issue{compliance.NewIssue("Page has transparency", r,
		map[string]any{"page": page.Number, "source": found})}, nil
}

// pageTransparency names the first transparency source found on page, or
// returns "" when there is none.
func pageTransparency(page *resources.Page) (string, error) {
	src := page.Source()
	group, err := raw.GetDict(src, page.Dict, "Group")
	if err != nil {
		return "", err
	}
	if isTransparencyGroup(src, group) {
		return "page group", nil
	}

	xobjs, err := page.XObjects()
	if err != nil {
		return "", err
	}
	for _, x := range xobjs {
		group, err := raw.GetDict(src, x.Dict, "Group")
		if err != nil {
			return "", err
		}
		if isTransparencyGroup(src, group) {
			return "xobject " + x.Name, nil
		}
		if smask, ok := raw.Lookup(x.Dict, "SMask"); ok && !isName(smask, "None") {
			return "xobject " + x.Name, nil
		}
	}

	states, err := page.Resource("ExtGState")
	if err != nil || states == nil {
		return "", err
	}
	for _, key := range states.Keys() {
		gs, err := raw.GetDict(src, states, key.Value())
		if err != nil {
			return "", err
		}
		if gs == nil {
			continue
		}
		if stateHasTransparency(src, gs) {
			return "graphics state " + key.Value(), nil
		}
	}
	return "", nil
}

func isTransparencyGroup(src raw.Provider, group raw.Dictionary) bool {
	if group == nil {
		return false
	}
	s, err := raw.Get(src, group, "S")
	return err == nil && isName(s, "Transparency")
}

func stateHasTransparency(src raw.Provider, gs raw.Dictionary) bool {
	for _, key := range []string{"CA", "ca"} {
		obj, err := raw.Get(src, gs, key)
		if err != nil {
			continue
		}
		if alpha, ok := raw.NumberOf(obj); ok && alpha < 1 {
			return true
		}
	}
	if smask, ok := raw.Lookup(gs, "SMask"); ok && !isName(smask, "None") {
		return true
	}
	bm, err := raw.Get(src, gs, "BM")
	if err != nil || bm == nil {
		return false
	}
	if arr, ok := bm.(raw.Array); ok {
		if arr.Len() == 0 {
			return false
		}
		bm, _ = arr.Get(0)
	}
	name, _ := raw.NameOf(bm)
	return name != "Normal" && name != "Compatible"
}
