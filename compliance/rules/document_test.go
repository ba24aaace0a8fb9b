package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/preflight/ir/raw"
)

func withIntents(intents ...raw.Object) *raw.Document {
	b := raw.NewBuilder("1.4")
	b.Catalog().Set("OutputIntents", raw.NewArray(intents...))
	b.AddPage(raw.Dict())
	return b.Build()
}

func intent(subtype string) *raw.DictObj {
	return raw.Dict().Set("Type", raw.NameLiteral("OutputIntent")).Set("S", raw.NameLiteral(subtype))
}

func TestOutputIntentForPDFX(t *testing.T) {
	tests := []struct {
		name    string
		doc     *raw.Document
		flagged bool
	}{
		{"one", withIntents(intent("GTS_PDFX"), intent("GTS_PDFA1")), false},
		{"none", withIntents(intent("GTS_PDFA1")), true},
		{"two", withIntents(intent("GTS_PDFX"), intent("GTS_PDFX")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := check(t, tt.doc, NewOutputIntentForPDFX())
			if (len(issues) == 1) != tt.flagged {
				t.Errorf("expected flagged=%v, got %v", tt.flagged, issues)
			}
		})
	}
}

func TestPDFXOutputIntentHasKeys(t *testing.T) {
	doc := withIntents(intent("GTS_PDFX").Set("OutputConditionIdentifier", raw.Str("FOGRA39")), intent("GTS_PDFA1"))
	issues := check(t, doc, NewPDFXOutputIntentHasKeys("OutputConditionIdentifier", "Info"))
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if k, _ := issues[0].Attr("key"); k != "Info" {
		t.Errorf("expected Info to be missing, got %v", k)
	}
}

func TestCompressionAlgorithms(t *testing.T) {
	b := raw.NewBuilder("1.4")
	lzw := b.Object(raw.NewStream(raw.Dict().Set("Filter", raw.NameLiteral("LZWDecode")), nil))
	jbig := raw.NewStream(raw.Dict().Set("Filter", raw.Names("FlateDecode", "JBIG2Decode")), nil)
	b.AddPage(raw.Dict().
		Set("Contents", raw.NewStream(raw.Dict().Set("Filter", raw.NameLiteral("FlateDecode")), nil)).
		Set("Resources", raw.Dict().Set("XObject", raw.Dict().Set("Im1", lzw).Set("Im2", jbig))))
	doc := b.Build()

	rule := NewCompressionAlgorithms("ASCII85Decode", "CCITTFaxDecode", "DCTDecode", "FlateDecode", "RunLengthDecode")
	issues := check(t, doc, rule)
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	got, _ := issues[0].Attr("algorithms")
	if diff := cmp.Diff([]string{"JBIG2Decode", "LZWDecode"}, got); diff != "" {
		t.Errorf("unexpected algorithms (-want +got):\n%s", diff)
	}

	if issues := check(t, doc, NewCompressionAlgorithms("FlateDecode", "LZWDecode", "JBIG2Decode")); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestPageCount(t *testing.T) {
	threePages := func() *raw.Document {
		b := raw.NewBuilder("1.4")
		for i := 0; i < 3; i++ {
			b.AddPage(raw.Dict())
		}
		return b.Build()
	}()

	tests := []struct {
		rule *PageCount
		want string
	}{
		{PageCountExact(3), ""},
		{PageCountExact(1), "Page count must equal 1"},
		{PageCountRange(1, 3), ""},
		{PageCountRange(4, 8), "Page count must be between 4 and 8"},
		{PageCountOneOf(4, 8), "Page count must be one of 4, 8"},
		{PageCountOneOf(2, 3), ""},
		{PageCountEven(), "Page count must be an even number"},
		{PageCountOdd(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.rule.Pattern(), func(t *testing.T) {
			issues := check(t, threePages, tt.rule)
			switch {
			case tt.want == "" && len(issues) != 0:
				t.Errorf("expected no issues, got %v", issues)
			case tt.want != "" && (len(issues) != 1 || issues[0].Description != tt.want):
				t.Errorf("expected %q, got %v", tt.want, issues)
			}
			if tt.want != "" && len(issues) == 1 {
				if c, _ := issues[0].Attr("count"); c != 3 {
					t.Errorf("expected count attribute 3, got %v", c)
				}
			}
		})
	}
}

func TestVersionBounds(t *testing.T) {
	doc := func(v string) *raw.Document {
		b := raw.NewBuilder(v)
		b.AddPage(raw.Dict())
		return b.Build()
	}
	tests := []struct {
		name    string
		rule    *Version
		version string
		want    string
	}{
		{"max ok", MaxVersion(1.4), "1.3", ""},
		{"max equal", MaxVersion(1.4), "1.4", ""},
		{"max exceeded", MaxVersion(1.4), "1.6", "PDF version should be 1.4 or lower"},
		{"min ok", MinVersion(1.3), "1.7", ""},
		{"min failed", MinVersion(1.5), "1.4", "PDF version should be 1.5 or higher"},
		{"exact ok", ExactVersion(1.6), "1.6", ""},
		{"exact failed", ExactVersion(2), "1.7", "PDF version should be 2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := check(t, doc(tt.version), tt.rule)
			got := ""
			if len(issues) == 1 {
				got = issues[0].Description
				if cv, _ := issues[0].Attr("current_version"); cv != tt.version {
					t.Errorf("expected current_version %s, got %v", tt.version, cv)
				}
			}
			if got != tt.want || len(issues) > 1 {
				t.Errorf("expected %q, got %v", tt.want, issues)
			}
		})
	}
	if MaxVersion(1).Name() != "max_version" || MinVersion(1).Name() != "min_version" || ExactVersion(1).Name() != "exact_version" {
		t.Error("unexpected rule names")
	}
}
