package rules

import (
	"fmt"
	"math/big"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/resources"
)

// DefaultBoxTolerance is the largest per-coordinate difference, in points,
// for two boxes to be considered equal.
const DefaultBoxTolerance = 0.03

// ConsistentBoxes checks that every page box kind has the same geometry on
// all pages that declare it. Each page is compared with the first page
// declaring the same kind.
type ConsistentBoxes struct {
	tolerance *big.Rat
}

// NewConsistentBoxes uses DefaultBoxTolerance.
func NewConsistentBoxes() *ConsistentBoxes {
	return NewConsistentBoxesWithTolerance(DefaultBoxTolerance)
}

// NewConsistentBoxesWithTolerance compares coordinates within ±tolerance,
// inclusive.
func NewConsistentBoxesWithTolerance(tolerance float64) *ConsistentBoxes {
	tol := decimal(tolerance)
	return &ConsistentBoxes{tolerance: tol.Abs(tol)}
}

func (r *ConsistentBoxes) Name() string { return "consistent_boxes" }

func (r *ConsistentBoxes) NewAccumulator() compliance.Accumulator {
	return &boxAccumulator{rule: r, first: make(map[string][]float64)}
}

type boxAccumulator struct {
	rule  *ConsistentBoxes
	first map[string][]float64
}

func (a *boxAccumulator) Observe(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	var issues []compliance.Issue
	for _, kind := range resources.BoxKinds {
		box, ok, err := page.Box(kind)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		first, seen := a.first[kind]
		if !seen {
			a.first[kind] = box
			continue
		}
		if !boxesMatch(first, box, a.rule.tolerance) {
			issues = append(issues, compliance.NewIssue(
				fmt.Sprintf("%s must be consistent across all pages", kind), a.rule,
				map[string]any{"page": page.Number, "box": kind}))
		}
	}
	return issues, nil
}

func (a *boxAccumulator) Finish(compliance.Context) ([]compliance.Issue, error) { return nil, nil }

func boxesMatch(a, b []float64, tol *big.Rat) bool {
	for i := range a {
		if !withinTolerance(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

// CropboxMatchesMediabox requires the CropBox of every page, when present,
// to equal its MediaBox after rounding to two decimal places.
type CropboxMatchesMediabox struct{}

func NewCropboxMatchesMediabox() CropboxMatchesMediabox { return CropboxMatchesMediabox{} }

func (CropboxMatchesMediabox) Name() string { return "cropbox_matches_mediabox" }

func (r CropboxMatchesMediabox) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	crop, hasCrop, err := page.Box("CropBox")
	if err != nil {
		return nil, err
	}
	media, hasMedia, err := page.Box("MediaBox")
	if err != nil {
		return nil, err
	}
	if !hasCrop || !hasMedia {
		return nil, nil
	}
	for i := range crop {
		if roundHalfUp(crop[i], 2).Cmp(roundHalfUp(media[i], 2)) != 0 {
			return []compliance.Issue{compliance.NewIssue("CropBox must match MediaBox", r,
				map[string]any{"page": page.Number})}, nil
		}
	}
	return nil, nil
}

// PrintBoxes requires a MediaBox on every page and exactly one of TrimBox
// and ArtBox.
type PrintBoxes struct{}

func NewPrintBoxes() PrintBoxes { return PrintBoxes{} }

func (PrintBoxes) Name() string { return "print_boxes" }

func (r PrintBoxes) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	_, media, err := page.Box("MediaBox")
	if err != nil {
		return nil, err
	}
	_, trim, err := page.Box("TrimBox")
	if err != nil {
		return nil, err
	}
	_, art, err := page.Box("ArtBox")
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{"page": page.Number}
	switch {
	case !media:
		return []compliance.Issue{compliance.NewIssue("every page must have a MediaBox", r, attrs)}, nil
	case !trim && !art:
		return []compliance.Issue{compliance.NewIssue("every page must have either an ArtBox or a TrimBox", r, attrs)}, nil
	case trim && art:
		return []compliance.Issue{compliance.NewIssue("no page can have both ArtBox and TrimBox - TrimBox is preferred", r, attrs)}, nil
	}
	return nil, nil
}
