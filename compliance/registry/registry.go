// Package registry maps rule names to constructors so that profiles can be
// described as data.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wudi/preflight/compliance"
)

// Args are the constructor arguments of a rule, typically decoded from YAML
// or JSON.
type Args map[string]any

// Spec names a rule and its arguments.
type Spec struct {
	Rule string `yaml:"rule" json:"rule"`
	Args Args   `yaml:"args,omitempty" json:"args,omitempty"`
}

// Factory builds a rule. reg is the registry performing the build, for
// rules that nest other rules.
type Factory func(reg *Registry, args Args) (compliance.Rule, error)

// Entry describes one registered rule.
type Entry struct {
	Name        string
	Description string
	Factory     Factory
}

// Registry is an immutable rule catalogue.
type Registry struct {
	entries map[string]Entry
}

// New builds a registry. Duplicate or incomplete entries are configuration
// errors.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	if err := r.add(entries); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) add(entries []Entry) error {
	for _, e := range entries {
		if e.Name == "" || e.Factory == nil {
			return compliance.Configf("registry", "entry %q is incomplete", e.Name)
		}
		if _, dup := r.entries[e.Name]; dup {
			return compliance.Configf("registry", "rule %q registered twice", e.Name)
		}
		r.entries[e.Name] = e
	}
	return nil
}

// With returns a new registry holding r's entries plus entries. r is not
// modified.
func (r *Registry) With(entries ...Entry) (*Registry, error) {
	cp := &Registry{entries: make(map[string]Entry, len(r.entries)+len(entries))}
	for k, v := range r.entries {
		cp.entries[k] = v
	}
	if err := cp.add(entries); err != nil {
		return nil, err
	}
	return cp, nil
}

// Names returns the registered rule names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Build constructs the rule registered under name.
func (r *Registry) Build(name string, args Args) (compliance.Rule, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, compliance.Configf(name, "unknown rule")
	}
	rule, err := e.Factory(r, args)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// BuildAll constructs every spec in order.
func (r *Registry) BuildAll(specs []Spec) ([]compliance.Rule, error) {
	out := make([]compliance.Rule, 0, len(specs))
	for i, s := range specs {
		rule, err := r.Build(s.Rule, s.Args)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// Profile builds a compliance profile from specs.
func (r *Registry) Profile(name string, specs []Spec, opts ...compliance.Option) (*compliance.Profile, error) {
	rules, err := r.BuildAll(specs)
	if err != nil {
		return nil, err
	}
	return compliance.NewProfile(name, rules, opts...)
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := New(builtins()...)
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the registry of built-in rules. It is built once.
func Default() *Registry { return defaultRegistry() }
