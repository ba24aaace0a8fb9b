package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
)

type versionBound int

const (
	boundMax versionBound = iota
	boundMin
	boundExact
)

// Version compares the document PDF version with a bound.
type Version struct {
	bound versionBound
	limit float64
}

// MaxVersion rejects documents newer than v.
func MaxVersion(v float64) *Version { return &Version{bound: boundMax, limit: v} }

// MinVersion rejects documents older than v.
func MinVersion(v float64) *Version { return &Version{bound: boundMin, limit: v} }

// ExactVersion rejects documents of any version but v.
func ExactVersion(v float64) *Version { return &Version{bound: boundExact, limit: v} }

func (r *Version) Name() string {
	switch r.bound {
	case boundMin:
		return "min_version"
	case boundExact:
		return "exact_version"
	}
	return "max_version"
}

func (r *Version) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	current := src.Version()
	v, _ := strconv.ParseFloat(strings.TrimSpace(current), 64)
	limit := formatVersion(r.limit)
	switch r.bound {
	case boundMax:
		if v > r.limit {
			return r.issue(fmt.Sprintf("PDF version should be %s or lower", limit), "max_version", limit, current), nil
		}
	case boundMin:
		if v < r.limit {
			return r.issue(fmt.Sprintf("PDF version should be %s or higher", limit), "min_version", limit, current), nil
		}
	case boundExact:
		if v != r.limit {
			return r.issue(fmt.Sprintf("PDF version should be %s", limit), "exact_version", limit, current), nil
		}
	}
	return nil, nil
}

func (r *Version) issue(msg, key, limit, current string) []compliance.Issue {
	return []compliance.Issue{compliance.NewIssue(msg, r, map[string]any{key: limit, "current_version": current})}
}

func formatVersion(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
