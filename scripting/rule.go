package scripting

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/colorspace"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/resources"
)

// Function names a script defines to take part in a profile.
const (
	PageFunc     = "checkPage"
	DocumentFunc = "checkDocument"
)

// NewRule compiles source and returns a rule whose capabilities follow the
// functions the script defines: checkPage(page), checkDocument(doc) or
// both. Each function returns an array whose elements are either strings or
// objects {description, attributes}.
func NewRule(name, source string) (compliance.Rule, error) {
	if name == "" {
		return nil, compliance.Configf("script", "a scripted rule needs a name")
	}
	engine := NewEngine()
	if _, err := engine.Execute(context.Background(), source); err != nil {
		return nil, &compliance.ConfigError{Rule: name, Msg: "compile script", Err: err}
	}
	s := &script{name: name, engine: engine}
	hasPage, hasDoc := engine.Has(PageFunc), engine.Has(DocumentFunc)
	switch {
	case hasPage && hasDoc:
		return &pageDocumentScript{s}, nil
	case hasPage:
		return &pageScript{s}, nil
	case hasDoc:
		return &documentScript{s}, nil
	}
	return nil, compliance.Configf(name, "script defines neither %s nor %s", PageFunc, DocumentFunc)
}

type script struct {
	name   string
	mu     sync.Mutex
	engine *Engine
}

func (s *script) Name() string { return s.name }

func (s *script) call(ctx compliance.Context, rule compliance.Rule, fn string, arg map[string]interface{}, attrs map[string]any) ([]compliance.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, err := s.engine.Call(ctx, fn, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return toIssues(rule, val, attrs)
}

func (s *script) checkPage(ctx compliance.Context, rule compliance.Rule, page *resources.Page) ([]compliance.Issue, error) {
	view, err := pageView(page)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, rule, PageFunc, view, map[string]any{"page": page.Number})
}

func (s *script) checkDocument(ctx compliance.Context, rule compliance.Rule, doc raw.Provider) ([]compliance.Issue, error) {
	view, err := documentView(doc)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, rule, DocumentFunc, view, nil)
}

type pageScript struct{ *script }

func (r *pageScript) CheckPage(ctx compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	return r.checkPage(ctx, r, page)
}

type documentScript struct{ *script }

func (r *documentScript) CheckDocument(ctx compliance.Context, doc raw.Provider) ([]compliance.Issue, error) {
	return r.checkDocument(ctx, r, doc)
}

type pageDocumentScript struct{ *script }

func (r *pageDocumentScript) CheckPage(ctx compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	return r.checkPage(ctx, r, page)
}

func (r *pageDocumentScript) CheckDocument(ctx compliance.Context, doc raw.Provider) ([]compliance.Issue, error) {
	return r.checkDocument(ctx, r, doc)
}

// toIssues converts a script result. base attributes are added to every
// issue unless the script sets them itself.
func toIssues(rule compliance.Rule, val goja.Value, base map[string]any) ([]compliance.Issue, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	list, ok := val.Export().([]interface{})
	if !ok {
		return nil, fmt.Errorf("script %s returned %T, want an array", rule.Name(), val.Export())
	}
	issues := make([]compliance.Issue, 0, len(list))
	for i, item := range list {
		attrs := make(map[string]any, len(base))
		for k, v := range base {
			attrs[k] = v
		}
		switch v := item.(type) {
		case string:
			issues = append(issues, compliance.NewIssue(v, rule, attrs))
		case map[string]interface{}:
			desc, _ := v["description"].(string)
			if desc == "" {
				return nil, fmt.Errorf("script %s: issue %d has no description", rule.Name(), i)
			}
			if extra, ok := v["attributes"].(map[string]interface{}); ok {
				for k, a := range extra {
					attrs[k] = a
				}
			}
			issues = append(issues, compliance.NewIssue(desc, rule, attrs))
		default:
			return nil, fmt.Errorf("script %s: issue %d is %T", rule.Name(), i, item)
		}
	}
	return issues, nil
}

// pageView is the page as seen by scripts.
func pageView(page *resources.Page) (map[string]interface{}, error) {
	boxes := make(map[string]interface{})
	for _, kind := range resources.BoxKinds {
		box, ok, err := page.Box(kind)
		if err != nil {
			return nil, err
		}
		if ok {
			boxes[kind] = box
		}
	}
	xobjs, err := page.XObjects()
	if err != nil {
		return nil, err
	}
	res := colorspace.NewResolver(page.Source(), colorspace.Options{Limits: page.Limits()})
	images := make([]interface{}, 0, len(xobjs))
	for _, x := range xobjs {
		if x.Subtype() != "Image" {
			continue
		}
		img := map[string]interface{}{"name": x.Name}
		if info, err := res.Resolve(x.Dict); err != nil {
			img["error"] = err.Error()
		} else {
			img["colorSpace"] = info.BaseType.String()
			img["iccProfile"] = info.ICCProfile
			img["components"] = info.Components
			img["bitsPerComponent"] = info.BitDepth
			img["hasAlpha"] = info.HasAlpha
		}
		images = append(images, img)
	}
	return map[string]interface{}{
		"number": page.Number,
		"boxes":  boxes,
		"images": images,
	}, nil
}

// documentView is the document as seen by scripts.
func documentView(doc raw.Provider) (map[string]interface{}, error) {
	view := map[string]interface{}{
		"version":     doc.Version(),
		"trailerKeys": keyNames(doc.Trailer()),
	}
	info, err := raw.GetDict(doc, doc.Trailer(), "Info")
	if err != nil {
		return nil, err
	}
	if info != nil {
		entries := make(map[string]interface{}, info.Len())
		for _, k := range info.Keys() {
			obj, err := raw.Get(doc, info, k.Value())
			if err != nil {
				return nil, err
			}
			if text, ok := raw.TextOf(obj); ok {
				entries[k.Value()] = text
			}
		}
		view["info"] = entries
	}
	root, err := raw.GetDict(doc, doc.Trailer(), "Root")
	if err != nil {
		return nil, err
	}
	view["catalogKeys"] = keyNames(root)
	return view, nil
}

func keyNames(d raw.Dictionary) []interface{} {
	if d == nil {
		return []interface{}{}
	}
	out := make([]interface{}, 0, d.Len())
	for _, k := range d.Keys() {
		out = append(out, k.Value())
	}
	return out
}
