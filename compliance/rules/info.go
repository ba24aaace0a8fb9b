package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
)

// MissingInfo is the description used whenever a document lacks an Info
// dictionary.
const MissingInfo = "Info dict definition is missing."

// InfoDict returns the document information dictionary, or nil when the
// trailer has none. A dangling reference counts as missing.
func InfoDict(src raw.Provider) (raw.Dictionary, error) {
	info, err := raw.GetDict(src, src.Trailer(), "Info")
	if errors.Is(err, raw.ErrUnresolved) {
		return nil, nil
	}
	return info, err
}

func rootDict(src raw.Provider) (raw.Dictionary, error) {
	return raw.GetDict(src, src.Trailer(), "Root")
}

// InfoHasKeys requires the Info dictionary to carry each of the keys.
type InfoHasKeys struct {
	keys []string
}

func NewInfoHasKeys(keys ...string) *InfoHasKeys {
	return &InfoHasKeys{keys: append([]string(nil), keys...)}
}

func (r *InfoHasKeys) Name() string { return "info_has_keys" }

func (r *InfoHasKeys) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	info, err := InfoDict(src)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return []compliance.Issue{compliance.NewIssue(MissingInfo, r, map[string]any{"keys": r.keys})}, nil
	}
	var issues []compliance.Issue
	for _, key := range r.keys {
		if _, ok := raw.Lookup(info, key); !ok {
			issues = append(issues, compliance.NewIssue("Info dict missing required key", r, map[string]any{"key": key}))
		}
	}
	return issues, nil
}

// InfoSpecifiesTrapping requires the Info dictionary to state /Trapped as
// True or False.
type InfoSpecifiesTrapping struct{}

func NewInfoSpecifiesTrapping() InfoSpecifiesTrapping { return InfoSpecifiesTrapping{} }

func (InfoSpecifiesTrapping) Name() string { return "info_specifies_trapping" }

func (r InfoSpecifiesTrapping) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	info, err := InfoDict(src)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return []compliance.Issue{compliance.NewIssue(MissingInfo, r, nil)}, nil
	}
	obj, err := raw.Get(src, info, "Trapped")
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return []compliance.Issue{compliance.NewIssue("Info dict does not specify Trapped", r, nil)}, nil
	}
	v, _ := raw.TextOf(obj)
	if v != "True" && v != "False" {
		return []compliance.Issue{compliance.NewIssue("Trapped value should be True or False", r,
			map[string]any{"value": v})}, nil
	}
	return nil, nil
}

// InfoMatch pairs an Info key with the pattern its value must match.
type InfoMatch struct {
	Key     string
	Pattern *regexp.Regexp
}

// MatchInfoEntries requires Info entries to exist and match patterns.
type MatchInfoEntries struct {
	matches []InfoMatch
}

// NewMatchInfoEntries compiles entries, evaluated in key order. An invalid
// pattern is a configuration error.
func NewMatchInfoEntries(entries map[string]string) (*MatchInfoEntries, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := &MatchInfoEntries{}
	for _, k := range keys {
		re, err := regexp.Compile(entries[k])
		if err != nil {
			return nil, &compliance.ConfigError{Rule: r.Name(), Msg: fmt.Sprintf("pattern for %s", k), Err: err}
		}
		r.matches = append(r.matches, InfoMatch{Key: k, Pattern: re})
	}
	return r, nil
}

// MatchInfo builds the rule from already compiled matches, kept in order.
func MatchInfo(matches ...InfoMatch) *MatchInfoEntries {
	return &MatchInfoEntries{matches: append([]InfoMatch(nil), matches...)}
}

func (r *MatchInfoEntries) Name() string { return "match_info_entries" }

func (r *MatchInfoEntries) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	info, err := InfoDict(src)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return []compliance.Issue{compliance.NewIssue(MissingInfo, r, nil)}, nil
	}
	var issues []compliance.Issue
	for _, m := range r.matches {
		obj, err := raw.Get(src, info, m.Key)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			issues = append(issues, compliance.NewIssue(
				fmt.Sprintf("Info dict missing required key %s", m.Key), r, map[string]any{"key": m.Key}))
			continue
		}
		if v, _ := raw.TextOf(obj); !m.Pattern.MatchString(v) {
			issues = append(issues, compliance.NewIssue(
				fmt.Sprintf("value of Info entry %s doesn't match %s", m.Key, m.Pattern), r,
				map[string]any{"key": m.Key, "regexp": m.Pattern.String()}))
		}
	}
	return issues, nil
}

// RootHasKeys requires the document catalog to carry each of the keys.
type RootHasKeys struct {
	keys []string
}

func NewRootHasKeys(keys ...string) *RootHasKeys {
	return &RootHasKeys{keys: append([]string(nil), keys...)}
}

func (r *RootHasKeys) Name() string { return "root_has_keys" }

func (r *RootHasKeys) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	root, err := rootDict(src)
	if err != nil {
		return nil, err
	}
	var issues []compliance.Issue
	for _, key := range r.keys {
		if _, ok := raw.Lookup(root, key); !ok {
			issues = append(issues, compliance.NewIssue("Root dict missing required key", r, map[string]any{"key": key}))
		}
	}
	return issues, nil
}

// DocumentID requires the trailer to carry an /ID.
type DocumentID struct{}

func NewDocumentID() DocumentID { return DocumentID{} }

func (DocumentID) Name() string { return "document_id" }

func (r DocumentID) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	if _, ok := raw.Lookup(src.Trailer(), "ID"); !ok {
		return []compliance.Issue{compliance.NewIssue("Document ID missing", r, nil)}, nil
	}
	return nil, nil
}
