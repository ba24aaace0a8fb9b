package rules

import (
	"context"
	"testing"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/resources"
	"github.com/wudi/preflight/security"
)

func pagesOf(t *testing.T, doc raw.Provider) []*resources.Page {
	t.Helper()
	pages, err := resources.Pages(doc, security.Limits{})
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	return pages
}

func check(t *testing.T, doc raw.Provider, rules ...compliance.Rule) []compliance.Issue {
	t.Helper()
	p, err := compliance.NewProfile("test", rules)
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}
	issues, err := p.Check(context.Background(), doc)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	return issues
}

func descriptions(issues []compliance.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Description
	}
	return out
}

func imageXObject(cs raw.Object) *raw.StreamObj {
	return raw.NewStream(raw.Dict().
		Set("Type", raw.NameLiteral("XObject")).
		Set("Subtype", raw.NameLiteral("Image")).
		Set("BitsPerComponent", raw.NumberInt(8)).
		Set("ColorSpace", cs), []byte{0})
}

// pageWithImages returns a one page document whose XObject resources are
// the given images keyed by name.
func pageWithImages(images map[string]raw.Object) *raw.Document {
	xobjs := raw.Dict()
	for name, img := range images {
		xobjs.Set(name, img)
	}
	b := raw.NewBuilder("1.4")
	b.AddPage(raw.Dict().
		Set("MediaBox", raw.Numbers(0, 0, 612, 792)).
		Set("Resources", raw.Dict().Set("XObject", xobjs)))
	return b.Build()
}
