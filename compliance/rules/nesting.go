package rules

import (
	"fmt"
	"math/big"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/resources"
)

// BoxNesting requires the print boxes of a page to nest: BleedBox within
// MediaBox, and TrimBox and ArtBox within BleedBox, or within MediaBox when
// the page has no BleedBox. Coordinates are compared as exact decimals.
type BoxNesting struct{}

func NewBoxNesting() BoxNesting { return BoxNesting{} }

func (BoxNesting) Name() string { return "box_nesting" }

func (r BoxNesting) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	boxes := make(map[string][4]*big.Rat, 4)
	for _, kind := range []string{"MediaBox", "BleedBox", "TrimBox", "ArtBox"} {
		box, ok, err := page.Box(kind)
		if err != nil {
			return nil, err
		}
		if ok {
			boxes[kind] = normalizeBox(box)
		}
	}

	var issues []compliance.Issue
	nest := func(inner, outer string) {
		in, hasIn := boxes[inner]
		out, hasOut := boxes[outer]
		if hasIn && hasOut && !boxContains(out, in) {
			issues = append(issues, compliance.NewIssue(fmt.Sprintf("%s must be inside %s", inner, outer), r,
				map[string]any{"page": page.Number, "box": inner}))
		}
	}
	nest("BleedBox", "MediaBox")
	outer := "MediaBox"
	if _, ok := boxes["BleedBox"]; ok {
		outer = "BleedBox"
	}
	nest("TrimBox", outer)
	nest("ArtBox", outer)
	return issues, nil
}

// normalizeBox orders a rectangle as lower-left x, lower-left y, upper-right
// x, upper-right y.
func normalizeBox(box []float64) [4]*big.Rat {
	llx, urx := decimal(box[0]), decimal(box[2])
	lly, ury := decimal(box[1]), decimal(box[3])
	if llx.Cmp(urx) > 0 {
		llx, urx = urx, llx
	}
	if lly.Cmp(ury) > 0 {
		lly, ury = ury, lly
	}
	return [4]*big.Rat{llx, lly, urx, ury}
}

func boxContains(outer, inner [4]*big.Rat) bool {
	return inner[0].Cmp(outer[0]) >= 0 && inner[1].Cmp(outer[1]) >= 0 &&
		inner[2].Cmp(outer[2]) <= 0 && inner[3].Cmp(outer[3]) <= 0
}
