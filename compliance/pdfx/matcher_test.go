package pdfx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/rules"
	"github.com/wudi/preflight/ir/raw"
)

func document(version string, info *raw.DictObj) *raw.Document {
	b := raw.NewBuilder(version)
	if info != nil {
		b.Info(info)
	}
	b.AddPage(raw.Dict().Set("MediaBox", raw.Numbers(0, 0, 612, 792)))
	return b.Build()
}

func x1aInfo() *raw.DictObj {
	return raw.Dict().
		Set("GTS_PDFXVersion", raw.Str("PDF/X-1:2001")).
		Set("GTS_PDFXConformance", raw.Str("PDF/X-1a:2001"))
}

func TestMatcherSatisfiedByOneCandidate(t *testing.T) {
	m, err := NewMatcher(PDFX1a.Candidate(), PDFX4.Candidate())
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	issues, err := m.CheckDocument(context.Background(), document("1.3", x1aInfo()))
	if err != nil {
		t.Fatalf("CheckDocument failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("document satisfies PDF/X-1a, got %v", issues)
	}

	x4 := raw.Dict().Set("GTS_PDFXVersion", raw.Str("PDF/X-4"))
	issues, err = m.CheckDocument(context.Background(), document("1.6", x4))
	if err != nil || len(issues) != 0 {
		t.Fatalf("document satisfies PDF/X-4, got %v, %v", issues, err)
	}
}

func TestMatcherReportsEveryCandidate(t *testing.T) {
	m, _ := NewMatcher(PDFX1a.Candidate(), PDFX4.Candidate())
	info := raw.Dict().Set("GTS_PDFXVersion", raw.Str("PDF/X-1:2001"))
	issues, err := m.CheckDocument(context.Background(), document("1.7", info))
	if err != nil {
		t.Fatalf("CheckDocument failed: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected one issue per candidate, got %v", issues)
	}
	if issues[0].Description != "Invalid file for PDF/X-1a" || issues[1].Description != "Invalid file for PDF/X-4" {
		t.Errorf("unexpected descriptions %q, %q", issues[0].Description, issues[1].Description)
	}

	keys, _ := issues[0].Attr("keys")
	if diff := cmp.Diff([]string{"GTS_PDFXConformance"}, keys); diff != "" {
		t.Errorf("PDF/X-1a keys mismatch (-want +got):\n%s", diff)
	}
	keys, _ = issues[1].Attr("keys")
	if diff := cmp.Diff([]string{"GTS_PDFXVersion"}, keys); diff != "" {
		t.Errorf("PDF/X-4 keys mismatch (-want +got):\n%s", diff)
	}

	failures, _ := issues[0].Attr("failures")
	list := failures.([]map[string]any)
	if len(list) != 2 {
		t.Fatalf("expected missing key and version failures, got %v", list)
	}
	if list[1]["rule"] != "max_version" {
		t.Errorf("expected version failure second, got %v", list[1])
	}
	if p, _ := issues[1].Attr("profile"); p != "PDF/X-4" {
		t.Errorf("expected profile attribute, got %v", p)
	}
}

func TestMatcherMissingInfo(t *testing.T) {
	m, _ := NewMatcher(PDFX1a.Candidate(), PDFX4.Candidate())
	issues, err := m.CheckDocument(context.Background(), document("1.4", nil))
	if err != nil {
		t.Fatalf("CheckDocument failed: %v", err)
	}
	if len(issues) != 1 || issues[0].Description != rules.MissingInfo {
		t.Fatalf("expected a single missing Info issue, got %v", issues)
	}
}

func TestFromMap(t *testing.T) {
	for _, bad := range []any{nil, "PDF/X", 42, []Candidate{PDFX1a.Candidate()}, map[string]string{"a": "b"}} {
		if _, err := FromMap(bad); !errors.Is(err, compliance.ErrConfiguration) {
			t.Errorf("FromMap(%T) = %v, want configuration error", bad, err)
		}
	}

	notDoc := map[string][]compliance.Rule{"X": {rules.NewPrintBoxes()}}
	if _, err := FromMap(notDoc); !errors.Is(err, compliance.ErrConfiguration) {
		t.Errorf("page rules must be rejected, got %v", err)
	}

	m, err := FromMap(map[string][]compliance.Rule{
		"PDFX_4":  {rules.MaxVersion(1.6)},
		"PDFX_1a": {rules.MaxVersion(1.4)},
	})
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if diff := cmp.Diff([]string{"PDFX_1a", "PDFX_4"}, m.Candidates()); diff != "" {
		t.Errorf("candidate order mismatch (-want +got):\n%s", diff)
	}
	issues, _ := m.CheckDocument(context.Background(), document("1.7", raw.Dict()))
	for _, is := range issues {
		if !strings.HasPrefix(is.Description, "Invalid file for PDFX_") {
			t.Errorf("unexpected description %q", is.Description)
		}
	}
}

func TestFromMapKeepsEmptyCandidate(t *testing.T) {
	m, err := FromMap(map[string][]compliance.Rule{
		"lenient": {},
		"PDF/X-4": {rules.MaxVersion(1.6)},
	})
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if diff := cmp.Diff([]string{"PDF/X-4", "lenient"}, m.Candidates()); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
	issues, err := m.CheckDocument(context.Background(), document("1.7", raw.Dict()))
	if err != nil {
		t.Fatalf("CheckDocument failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("a candidate without rules is always satisfied, got %v", issues)
	}
}

func TestNewMatcherRejectsEmpty(t *testing.T) {
	if _, err := NewMatcher(); !errors.Is(err, compliance.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := NewMatcher(Candidate{}); !errors.Is(err, compliance.ErrConfiguration) {
		t.Errorf("expected configuration error for unnamed candidate, got %v", err)
	}
}

func TestLevelString(t *testing.T) {
	if PDFX1a.String() != "PDF/X-1a" || PDFX3.String() != "PDF/X-3" || PDFX4.String() != "PDF/X-4" || Level(9).String() != "Unknown" {
		t.Error("unexpected level names")
	}
}

func TestBaseProfile(t *testing.T) {
	p, err := NewBaseProfile()
	if err != nil {
		t.Fatalf("NewBaseProfile failed: %v", err)
	}
	if p.Name() != BaseProfileName {
		t.Errorf("unexpected name %q", p.Name())
	}

	b := raw.NewBuilder("1.3")
	b.Info(x1aInfo().
		Set("Title", raw.Str("Flyer")).
		Set("CreationDate", raw.Str("D:20240101")).
		Set("ModDate", raw.Str("D:20240101")).
		Set("Trapped", raw.NameLiteral("False")))
	b.Trailer("ID", raw.NewArray(raw.Str("id"), raw.Str("id")))
	b.Catalog().Set("OutputIntents", raw.NewArray(raw.Dict().
		Set("S", raw.NameLiteral("GTS_PDFX")).
		Set("OutputConditionIdentifier", raw.Str("FOGRA39")).
		Set("Info", raw.Str("Coated FOGRA39"))))
	b.AddPage(raw.Dict().
		Set("MediaBox", raw.Numbers(0, 0, 612, 792)).
		Set("TrimBox", raw.Numbers(9, 9, 603, 783)))
	issues, err := p.Check(context.Background(), b.Build())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected compliant document, got %v", issues)
	}

	issues, err = p.Check(context.Background(), document("1.7", nil))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	var names []string
	for _, is := range issues {
		names = append(names, is.RuleName())
	}
	want := []string{
		"print_boxes",
		"pdfx_versions",
		"root_has_keys",
		"info_has_keys",
		"info_specifies_trapping",
		"document_id",
		"output_intent_for_pdfx",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("unexpected rule order (-want +got):\n%s", diff)
	}
}
