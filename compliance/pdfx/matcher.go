package pdfx

import (
	"fmt"
	"sort"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/rules"
	"github.com/wudi/preflight/ir/raw"
)

// Candidate is one named profile the matcher tries. A candidate is
// satisfied when none of its rules reports an issue.
type Candidate struct {
	Name  string
	Rules []compliance.DocumentChecker
}

// Matcher accepts a document that satisfies at least one candidate. When
// none is satisfied it reports one issue per candidate listing what failed.
type Matcher struct {
	candidates []Candidate
}

// NewMatcher keeps the candidates in the given order.
func NewMatcher(candidates ...Candidate) (*Matcher, error) {
	m := &Matcher{}
	if len(candidates) == 0 {
		return nil, compliance.Configf(m.Name(), "at least one candidate profile is required")
	}
	for _, c := range candidates {
		if c.Name == "" {
			return nil, compliance.Configf(m.Name(), "candidate without a name")
		}
		for i, r := range c.Rules {
			if r == nil {
				return nil, compliance.Configf(m.Name(), "candidate %s: rule %d is nil", c.Name, i)
			}
		}
		m.candidates = append(m.candidates, Candidate{Name: c.Name, Rules: append([]compliance.DocumentChecker(nil), c.Rules...)})
	}
	return m, nil
}

// MustMatcher is like NewMatcher but panics on error.
func MustMatcher(candidates ...Candidate) *Matcher {
	m, err := NewMatcher(candidates...)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMap builds a matcher from a mapping of candidate name to rules,
// ordered by name. Anything but map[string][]compliance.DocumentChecker or
// map[string][]compliance.Rule whose rules all check documents is a
// configuration error.
func FromMap(v any) (*Matcher, error) {
	var m *Matcher
	byName := make(map[string][]compliance.DocumentChecker)
	switch in := v.(type) {
	case map[string][]compliance.DocumentChecker:
		for k, rs := range in {
			byName[k] = rs
		}
	case map[string][]compliance.Rule:
		for k, rs := range in {
			byName[k] = make([]compliance.DocumentChecker, 0, len(rs))
			for _, r := range rs {
				dc, ok := r.(compliance.DocumentChecker)
				if !ok {
					return nil, compliance.Configf(m.Name(), "candidate %s: rule %T does not check documents", k, r)
				}
				byName[k] = append(byName[k], dc)
			}
		}
	default:
		return nil, compliance.Configf(m.Name(), "candidates have to be a mapping of name to rules, got %T", v)
	}
	names := make([]string, 0, len(byName))
	for k := range byName {
		names = append(names, k)
	}
	sort.Strings(names)
	candidates := make([]Candidate, 0, len(names))
	for _, n := range names {
		candidates = append(candidates, Candidate{Name: n, Rules: byName[n]})
	}
	return NewMatcher(candidates...)
}

func (*Matcher) Name() string { return "pdfx_versions" }

// Candidates returns the candidate names in evaluation order.
func (m *Matcher) Candidates() []string {
	out := make([]string, len(m.candidates))
	for i, c := range m.candidates {
		out[i] = c.Name
	}
	return out
}

func (m *Matcher) CheckDocument(ctx compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	info, err := rules.InfoDict(src)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return []compliance.Issue{compliance.NewIssue(rules.MissingInfo, m, nil)}, nil
	}

	failures := make([][]compliance.Issue, len(m.candidates))
	for i, c := range m.candidates {
		for _, r := range c.Rules {
			found, err := r.CheckDocument(ctx, src)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", c.Name, r.Name(), err)
			}
			failures[i] = append(failures[i], found...)
		}
		if len(failures[i]) == 0 {
			return nil, nil
		}
	}

	issues := make([]compliance.Issue, 0, len(m.candidates))
	for i, c := range m.candidates {
		issues = append(issues, compliance.NewIssue("Invalid file for "+c.Name, m, map[string]any{
			"profile":  c.Name,
			"keys":     failedKeys(failures[i]),
			"failures": summarize(failures[i]),
		}))
	}
	return issues, nil
}

// failedKeys collects the distinct "key" attributes of sub-issues in order.
func failedKeys(issues []compliance.Issue) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, is := range issues {
		v, ok := is.Attr("key")
		if !ok {
			continue
		}
		k := fmt.Sprint(v)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func summarize(issues []compliance.Issue) []map[string]any {
	out := make([]map[string]any, len(issues))
	for i, is := range issues {
		entry := is.Attributes()
		entry["description"] = is.Description
		entry["rule"] = is.RuleName()
		out[i] = entry
	}
	return out
}
