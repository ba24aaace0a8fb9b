package rules

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/preflight/ir/raw"
)

func boxedPages(boxes ...*raw.DictObj) *raw.Document {
	b := raw.NewBuilder("1.4")
	for _, p := range boxes {
		b.AddPage(p)
	}
	return b.Build()
}

func media(v ...float64) *raw.DictObj { return raw.Dict().Set("MediaBox", raw.Numbers(v...)) }

func TestConsistentBoxesTolerance(t *testing.T) {
	tests := []struct {
		name    string
		second  float64
		flagged bool
	}{
		{"identical", 792, false},
		{"exactly at tolerance", 791.97, false},
		{"above by 0.03", 792.03, false},
		{"just over tolerance", 791.969, true},
		{"far off", 791.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := boxedPages(media(0, 0, 612, 792), media(0, 0, 612, tt.second))
			issues := check(t, doc, NewConsistentBoxes())
			if (len(issues) == 1) != tt.flagged || len(issues) > 1 {
				t.Fatalf("expected flagged=%v, got %v", tt.flagged, issues)
			}
		})
	}
}

func TestConsistentBoxesEndToEnd(t *testing.T) {
	doc := boxedPages(media(0, 0, 612, 792), media(0, 0, 612, 791.5))
	issues := check(t, doc, NewConsistentBoxes())
	if len(issues) != 1 {
		t.Fatalf("expected exactly one issue, got %v", issues)
	}
	want := map[string]any{"box": "MediaBox", "page": 2}
	if diff := cmp.Diff(want, issues[0].Attributes()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	if issues[0].Description != "MediaBox must be consistent across all pages" {
		t.Errorf("unexpected description %q", issues[0].Description)
	}
}

func TestConsistentBoxesComparesAgainstFirstDeclaration(t *testing.T) {
	trim := func(v float64) *raw.DictObj {
		return media(0, 0, 612, 792).Set("TrimBox", raw.Numbers(10, 10, v, 782))
	}
	doc := boxedPages(
		media(0, 0, 612, 792),
		trim(602),
		trim(602),
		trim(500),
		media(0, 0, 612, 792),
	)
	issues := check(t, doc, NewConsistentBoxes())
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if v, _ := issues[0].Attr("page"); v != 4 {
		t.Errorf("expected page 4, got %v", v)
	}
	if v, _ := issues[0].Attr("box"); v != "TrimBox" {
		t.Errorf("expected TrimBox, got %v", v)
	}
}

func TestConsistentBoxesSingleDeclaration(t *testing.T) {
	doc := boxedPages(media(0, 0, 612, 792).Set("BleedBox", raw.Numbers(0, 0, 1, 1)), media(0, 0, 612, 792))
	if issues := check(t, doc, NewConsistentBoxes()); len(issues) != 0 {
		t.Fatalf("a box declared once must not be flagged, got %v", issues)
	}
}

func TestConsistentBoxesFreshStatePerRun(t *testing.T) {
	rule := NewConsistentBoxes()
	a := boxedPages(media(0, 0, 612, 792))
	b := boxedPages(media(0, 0, 595, 842))
	check(t, a, rule)
	if issues := check(t, b, rule); len(issues) != 0 {
		t.Fatalf("state leaked between runs: %v", issues)
	}

	acc := rule.NewAccumulator()
	pages := pagesOf(t, boxedPages(media(0, 0, 612, 792), media(0, 0, 100, 100)))
	for _, p := range pages {
		if _, err := acc.Observe(context.Background(), p); err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
	}
	if rest, err := acc.Finish(context.Background()); err != nil || len(rest) != 0 {
		t.Errorf("Finish should report nothing, got %v, %v", rest, err)
	}
}

func TestCustomTolerance(t *testing.T) {
	doc := boxedPages(media(0, 0, 612, 792), media(0, 0, 612, 791))
	if issues := check(t, doc, NewConsistentBoxesWithTolerance(1)); len(issues) != 0 {
		t.Fatalf("expected no issues with tolerance 1, got %v", issues)
	}
}

func TestCropboxMatchesMediabox(t *testing.T) {
	tests := []struct {
		name    string
		crop    []float64
		flagged bool
	}{
		{"equal", []float64{0, 0, 612, 792}, false},
		{"rounds equal", []float64{0, 0, 612.004, 791.995}, false},
		{"half rounds up", []float64{0, 0, 612.005, 792}, true},
		{"different", []float64{0, 0, 600, 792}, true},
		{"absent", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := media(0, 0, 612, 792)
			if tt.crop != nil {
				page.Set("CropBox", raw.Numbers(tt.crop...))
			}
			issues := check(t, boxedPages(page), NewCropboxMatchesMediabox())
			if (len(issues) == 1) != tt.flagged {
				t.Fatalf("expected flagged=%v, got %v", tt.flagged, issues)
			}
			if tt.flagged && issues[0].Description != "CropBox must match MediaBox" {
				t.Errorf("unexpected description %q", issues[0].Description)
			}
		})
	}
}

func TestPrintBoxes(t *testing.T) {
	doc := boxedPages(
		media(0, 0, 612, 792).Set("TrimBox", raw.Numbers(0, 0, 600, 780)),
		media(0, 0, 612, 792),
		media(0, 0, 612, 792).Set("TrimBox", raw.Numbers(0, 0, 1, 1)).Set("ArtBox", raw.Numbers(0, 0, 1, 1)),
		raw.Dict().Set("ArtBox", raw.Numbers(0, 0, 1, 1)),
	)
	want := []string{
		"every page must have either an ArtBox or a TrimBox",
		"no page can have both ArtBox and TrimBox - TrimBox is preferred",
		"every page must have a MediaBox",
	}
	if diff := cmp.Diff(want, descriptions(check(t, doc, NewPrintBoxes()))); diff != "" {
		t.Errorf("unexpected issues (-want +got):\n%s", diff)
	}
}

func TestDecimalHelpers(t *testing.T) {
	tol := decimal(0.03)
	if !withinTolerance(792, 791.97, tol) {
		t.Error("0.03 difference must be within tolerance")
	}
	if withinTolerance(792, 791.969, tol) {
		t.Error("0.031 difference must exceed tolerance")
	}
	if got := roundHalfUp(1.005, 2).FloatString(2); got != "1.01" {
		t.Errorf("roundHalfUp(1.005) = %s, want 1.01", got)
	}
	if got := roundHalfUp(-1.005, 2).FloatString(2); got != "-1.01" {
		t.Errorf("roundHalfUp(-1.005) = %s, want -1.01", got)
	}
	if got := roundHalfUp(2.344, 2).FloatString(2); got != "2.34" {
		t.Errorf("roundHalfUp(2.344) = %s, want 2.34", got)
	}
}
