package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
)

type countMode int

const (
	countExact countMode = iota
	countRange
	countOneOf
	countEven
	countOdd
)

// PageCount checks /Count of the root page tree node against a pattern.
type PageCount struct {
	mode   countMode
	values []int
}

// PageCountExact requires exactly n pages.
func PageCountExact(n int) *PageCount { return &PageCount{mode: countExact, values: []int{n}} }

// PageCountRange requires between lo and hi pages, inclusive.
func PageCountRange(lo, hi int) *PageCount {
	return &PageCount{mode: countRange, values: []int{lo, hi}}
}

// PageCountOneOf requires the page count to be one of ns.
func PageCountOneOf(ns ...int) *PageCount {
	return &PageCount{mode: countOneOf, values: append([]int(nil), ns...)}
}

func PageCountEven() *PageCount { return &PageCount{mode: countEven} }

func PageCountOdd() *PageCount { return &PageCount{mode: countOdd} }

func (r *PageCount) Name() string { return "page_count" }

// Pattern renders the configured pattern.
func (r *PageCount) Pattern() string {
	switch r.mode {
	case countExact:
		return strconv.Itoa(r.values[0])
	case countRange:
		return fmt.Sprintf("%d..%d", r.values[0], r.values[1])
	case countOneOf:
		return joinInts(r.values)
	case countEven:
		return "even"
	}
	return "odd"
}

func (r *PageCount) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	count, err := pageTreeCount(src)
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{"pattern": r.Pattern(), "count": count}
	var msg string
	switch r.mode {
	case countExact:
		if count != r.values[0] {
			msg = fmt.Sprintf("Page count must equal %d", r.values[0])
		}
	case countRange:
		if count < r.values[0] || count > r.values[1] {
			msg = fmt.Sprintf("Page count must be between %d and %d", r.values[0], r.values[1])
		}
	case countOneOf:
		found := false
		for _, v := range r.values {
			found = found || v == count
		}
		if !found {
			msg = fmt.Sprintf("Page count must be one of %s", joinInts(r.values))
		}
	case countEven:
		if count%2 != 0 {
			msg = "Page count must be an even number"
		}
	case countOdd:
		if count%2 == 0 {
			msg = "Page count must be an odd number"
		}
	}
	if msg == "" {
		return nil, nil
	}
	return []compliance.Issue{compliance.NewIssue(msg, r, attrs)}, nil
}

// pageTreeCount reads /Root /Pages /Count. A missing entry counts as zero.
func pageTreeCount(src raw.Provider) (int, error) {
	root, err := rootDict(src)
	if err != nil || root == nil {
		return 0, err
	}
	pages, err := raw.GetDict(src, root, "Pages")
	if err != nil || pages == nil {
		return 0, err
	}
	obj, err := raw.Get(src, pages, "Count")
	if err != nil {
		return 0, err
	}
	n, _ := raw.IntOf(obj)
	return int(n), nil
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
