package rules

import (
	"fmt"
	"sort"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/security"
)

// CompressionAlgorithms restricts the stream filters used anywhere in the
// document. Streams are found by walking every object reachable from the
// trailer.
type CompressionAlgorithms struct {
	allowed map[string]bool
}

func NewCompressionAlgorithms(filters ...string) *CompressionAlgorithms {
	r := &CompressionAlgorithms{allowed: make(map[string]bool, len(filters))}
	for _, f := range filters {
		r.allowed[f] = true
	}
	return r
}

func (r *CompressionAlgorithms) Name() string { return "compression_algorithms" }

func (r *CompressionAlgorithms) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	used := make(map[string]bool)
	err := walkObjects(src, src.Trailer(), func(obj raw.Object) {
		stm, ok := obj.(raw.Stream)
		if !ok {
			return
		}
		for _, f := range streamFilters(stm.Dictionary()) {
			used[f] = true
		}
	})
	if err != nil {
		return nil, err
	}
	var excluded []string
	for f := range used {
		if !r.allowed[f] {
			excluded = append(excluded, f)
		}
	}
	if len(excluded) == 0 {
		return nil, nil
	}
	sort.Strings(excluded)
	return []compliance.Issue{compliance.NewIssue("File uses excluded compression algorithm", r,
		map[string]any{"algorithms": excluded})}, nil
}

func streamFilters(d raw.Dictionary) []string {
	obj, ok := raw.Lookup(d, "Filter")
	if !ok {
		return nil
	}
	if name, ok := raw.NameOf(obj); ok {
		return []string{name}
	}
	arr, ok := obj.(raw.Array)
	if !ok {
		return nil
	}
	var out []string
	for i := 0; i < arr.Len(); i++ {
		item, _ := arr.Get(i)
		if name, ok := raw.NameOf(item); ok {
			out = append(out, name)
		}
	}
	return out
}

// walkObjects visits every object reachable from start once. Dangling
// references are skipped. Direct objects carry no identity, so nesting
// between two indirect objects is bounded by MaxIndirectDepth and the whole
// walk by MaxObjects.
func walkObjects(src raw.Provider, start raw.Object, visit func(raw.Object)) error {
	limits := security.LimitsOf(src)
	type node struct {
		obj   raw.Object
		depth int
	}
	seen := make(map[raw.ObjectRef]bool)
	stack := []node{{obj: start}}
	visited := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj := n.obj
		if ref, ok := obj.(raw.Reference); ok {
			if seen[ref.Ref()] {
				continue
			}
			seen[ref.Ref()] = true
			res, err := src.Resolve(ref)
			if err != nil {
				continue
			}
			obj, n.depth = res, 0
		}
		if n.depth > limits.MaxIndirectDepth {
			return fmt.Errorf("%w: direct objects nested deeper than %d", security.ErrObjectGraph, limits.MaxIndirectDepth)
		}
		if visited++; visited > limits.MaxObjects {
			return fmt.Errorf("%w: more than %d objects", security.ErrObjectGraph, limits.MaxObjects)
		}
		visit(obj)
		var children []raw.Object
		switch v := obj.(type) {
		case raw.Stream:
			children = dictValues(v.Dictionary())
		case raw.Dictionary:
			children = dictValues(v)
		case raw.Array:
			for i := v.Len() - 1; i >= 0; i-- {
				item, _ := v.Get(i)
				children = append(children, item)
			}
		}
		for _, c := range children {
			stack = append(stack, node{obj: c, depth: n.depth + 1})
		}
	}
	return nil
}

func dictValues(d raw.Dictionary) []raw.Object {
	if d == nil {
		return nil
	}
	var out []raw.Object
	for _, k := range d.Keys() {
		if item, ok := d.Get(k); ok {
			out = append(out, item)
		}
	}
	return out
}
