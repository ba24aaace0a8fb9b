package compliance

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Issue is a single violation raised by a rule. Issues are created by rules
// and never modified afterwards.
type Issue struct {
	Description string
	Source      Rule
	attributes  map[string]any
}

// NewIssue builds an Issue. attrs is copied.
func NewIssue(description string, source Rule, attrs map[string]any) Issue {
	var cp map[string]any
	if len(attrs) > 0 {
		cp = make(map[string]any, len(attrs))
		for k, v := range attrs {
			cp[k] = v
		}
	}
	return Issue{Description: description, Source: source, attributes: cp}
}

// RuleName returns the name of the rule that raised the issue.
func (i Issue) RuleName() string {
	if i.Source == nil {
		return ""
	}
	return i.Source.Name()
}

// Attr returns a single attribute.
func (i Issue) Attr(key string) (any, bool) {
	v, ok := i.attributes[key]
	return v, ok
}

// Attributes returns a copy of the structured context of the issue.
func (i Issue) Attributes() map[string]any {
	out := make(map[string]any, len(i.attributes))
	for k, v := range i.attributes {
		out[k] = v
	}
	return out
}

// AttributeKeys returns the attribute names in sorted order.
func (i Issue) AttributeKeys() []string {
	keys := make([]string, 0, len(i.attributes))
	for k := range i.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (i Issue) String() string {
	if len(i.attributes) == 0 {
		return i.Description
	}
	parts := make([]string, 0, len(i.attributes))
	for _, k := range i.AttributeKeys() {
		parts = append(parts, fmt.Sprintf("%s: %v", k, i.attributes[k]))
	}
	return fmt.Sprintf("%s (%s)", i.Description, strings.Join(parts, ", "))
}

func (i Issue) MarshalJSON() ([]byte, error) {
	attrs := i.attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return json.Marshal(struct {
		Description string         `json:"description"`
		Rule        string         `json:"rule"`
		Attributes  map[string]any `json:"attributes"`
	}{i.Description, i.RuleName(), attrs})
}
