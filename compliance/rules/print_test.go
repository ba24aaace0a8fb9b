package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/preflight/ir/raw"
)

func onePage(page *raw.DictObj) *raw.Document {
	b := raw.NewBuilder("1.4")
	b.AddPage(page)
	return b.Build()
}

func maskedImage() *raw.StreamObj {
	img := imageXObject(raw.NameLiteral("DeviceCMYK"))
	img.Dict.Set("SMask", raw.NewStream(raw.Dict().Set("Subtype", raw.NameLiteral("Image")), nil))
	return img
}

func TestNoFilespecs(t *testing.T) {
	b := raw.NewBuilder("1.4")
	spec := b.Object(raw.Dict().Set("Type", raw.NameLiteral("Filespec")).Set("F", raw.Str("logo.eps")))
	b.AddPage(raw.Dict().Set("Annots", raw.NewArray(raw.Dict().
		Set("Subtype", raw.NameLiteral("FileAttachment")).
		Set("FS", spec))))
	b.Catalog().Set("Names", raw.Dict().Set("EmbeddedFiles", raw.NewArray(raw.Str("logo"), spec)))

	issues := check(t, b.Build(), NewNoFilespecs())
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if n, _ := issues[0].Attr("count"); n != 1 {
		t.Errorf("shared filespec should be counted once, got %v", n)
	}
	if issues := check(t, onePage(raw.Dict()), NewNoFilespecs()); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestNoTransparency(t *testing.T) {
	gstate := func(key string, v raw.Object) *raw.DictObj {
		return raw.Dict().Set("Resources", raw.Dict().Set("ExtGState", raw.Dict().
			Set("GS1", raw.Dict().Set(key, v))))
	}
	tests := []struct {
		name   string
		page   *raw.DictObj
		source string
	}{
		{"opaque", raw.Dict(), ""},
		{"page group", raw.Dict().Set("Group", raw.Dict().Set("S", raw.NameLiteral("Transparency"))), "page group"},
		{"stroke alpha", gstate("CA", raw.NumberFloat(0.5)), "graphics state GS1"},
		{"full alpha", gstate("ca", raw.NumberInt(1)), ""},
		{"multiply", gstate("BM", raw.NameLiteral("Multiply")), "graphics state GS1"},
		{"normal blend array", gstate("BM", raw.Names("Normal", "Multiply")), ""},
		{"compatible", gstate("BM", raw.NameLiteral("Compatible")), ""},
		{"no soft mask", gstate("SMask", raw.NameLiteral("None")), ""},
		{"soft mask", gstate("SMask", raw.Dict().Set("S", raw.NameLiteral("Luminosity"))), "graphics state GS1"},
		{"image smask", raw.Dict().Set("Resources", raw.Dict().Set("XObject", raw.Dict().
			Set("Im1", maskedImage()))), "xobject Im1"},
		{"form group", raw.Dict().Set("Resources", raw.Dict().Set("XObject", raw.Dict().
			Set("Fm1", raw.NewStream(raw.Dict().
				Set("Subtype", raw.NameLiteral("Form")).
				Set("Group", raw.Dict().Set("S", raw.NameLiteral("Transparency"))), nil)))), "xobject Fm1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := check(t, onePage(tt.page), NewNoTransparency())
			if tt.source == "" {
				if len(issues) != 0 {
					t.Fatalf("expected no issues, got %v", issues)
				}
				return
			}
			if len(issues) != 1 || issues[0].Description != "Page has transparency" {
				t.Fatalf("expected one transparency issue, got %v", issues)
			}
			if got, _ := issues[0].Attr("source"); got != tt.source {
				t.Errorf("expected source %q, got %v", tt.source, got)
			}
		})
	}
}

func TestOnlyEmbeddedFonts(t *testing.T) {
	b := raw.NewBuilder("1.4")
	trueType := b.Object(raw.Dict().
		Set("Subtype", raw.NameLiteral("TrueType")).
		Set("BaseFont", raw.NameLiteral("GoRegular")).
		Set("FontDescriptor", raw.Dict().
			Set("FontFile2", b.Object(raw.NewStream(raw.Dict(), goregular.TTF)))))
	broken := raw.Dict().
		Set("Subtype", raw.NameLiteral("TrueType")).
		Set("BaseFont", raw.NameLiteral("Broken")).
		Set("FontDescriptor", raw.Dict().
			Set("FontFile2", raw.NewStream(raw.Dict(), []byte("not a font"))))
	helvetica := raw.Dict().
		Set("Subtype", raw.NameLiteral("Type1")).
		Set("BaseFont", raw.NameLiteral("Helvetica"))
	type3 := raw.Dict().Set("Subtype", raw.NameLiteral("Type3"))
	composite := raw.Dict().
		Set("Subtype", raw.NameLiteral("Type0")).
		Set("BaseFont", raw.NameLiteral("KozMin")).
		Set("DescendantFonts", raw.NewArray(raw.Dict().
			Set("Subtype", raw.NameLiteral("CIDFontType0")).
			Set("FontDescriptor", raw.Dict().
				Set("FontFile3", raw.NewStream(raw.Dict().Set("Subtype", raw.NameLiteral("CIDFontType0C")), []byte{1})))))
	b.AddPage(raw.Dict().Set("Resources", raw.Dict().Set("Font", raw.Dict().
		Set("F1", trueType).
		Set("F2", broken).
		Set("F3", helvetica).
		Set("F4", type3).
		Set("F5", composite))))

	issues := check(t, b.Build(), NewOnlyEmbeddedFonts())
	var got []string
	for _, is := range issues {
		font, _ := is.Attr("font")
		got = append(got, font.(string)+": "+is.Description)
	}
	want := []string{
		"Broken: Embedded font program is unreadable",
		"Helvetica: Font not embedded",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected issues (-want +got):\n%s", diff)
	}
}

func TestBoxNesting(t *testing.T) {
	media := raw.Numbers(0, 0, 612, 792)
	tests := []struct {
		name string
		page *raw.DictObj
		want []string
	}{
		{"nested", raw.Dict().Set("MediaBox", media).
			Set("BleedBox", raw.Numbers(0, 0, 612, 792)).
			Set("TrimBox", raw.Numbers(9, 9, 603, 783)), nil},
		{"reversed corners", raw.Dict().Set("MediaBox", raw.Numbers(612, 792, 0, 0)).
			Set("TrimBox", raw.Numbers(9, 9, 603, 783)), nil},
		{"bleed outside media", raw.Dict().Set("MediaBox", media).
			Set("BleedBox", raw.Numbers(-9, -9, 621, 801)), []string{"BleedBox must be inside MediaBox"}},
		{"trim outside bleed", raw.Dict().Set("MediaBox", media).
			Set("BleedBox", raw.Numbers(9, 9, 603, 783)).
			Set("TrimBox", raw.Numbers(0, 0, 612, 792)).
			Set("ArtBox", raw.Numbers(10, 10, 600, 780)), []string{"TrimBox must be inside BleedBox"}},
		{"art outside media", raw.Dict().Set("MediaBox", media).
			Set("ArtBox", raw.Numbers(0, 0, 612.01, 792)), []string{"ArtBox must be inside MediaBox"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := check(t, onePage(tt.page), NewBoxNesting())
			if diff := cmp.Diff(tt.want, descriptions(issues), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("unexpected issues (-want +got):\n%s", diff)
			}
		})
	}
}
