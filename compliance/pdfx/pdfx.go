// Package pdfx matches documents against the PDF/X family of profiles.
package pdfx

import (
	"regexp"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/rules"
)

type Level int

const (
	PDFX1a Level = iota
	PDFX3
	PDFX4
)

func (l Level) String() string {
	switch l {
	case PDFX1a:
		return "PDF/X-1a"
	case PDFX3:
		return "PDF/X-3"
	case PDFX4:
		return "PDF/X-4"
	default:
		return "Unknown"
	}
}

// Candidate returns the Info and version requirements of a level.
func (l Level) Candidate() Candidate {
	switch l {
	case PDFX1a:
		return Candidate{Name: l.String(), Rules: []compliance.DocumentChecker{
			rules.MatchInfo(
				rules.InfoMatch{Key: "GTS_PDFXVersion", Pattern: regexp.MustCompile(`\APDF/X`)},
				rules.InfoMatch{Key: "GTS_PDFXConformance", Pattern: regexp.MustCompile(`\APDF/X-1a`)},
			),
			rules.MaxVersion(1.4),
		}}
	case PDFX3:
		return Candidate{Name: l.String(), Rules: []compliance.DocumentChecker{
			rules.MatchInfo(
				rules.InfoMatch{Key: "GTS_PDFXVersion", Pattern: regexp.MustCompile(`\APDF/X-3`)},
				rules.InfoMatch{Key: "GTS_PDFXConformance", Pattern: regexp.MustCompile(`\APDF/X-3`)},
			),
			rules.MaxVersion(1.4),
		}}
	case PDFX4:
		return Candidate{Name: l.String(), Rules: []compliance.DocumentChecker{
			rules.MatchInfo(rules.InfoMatch{Key: "GTS_PDFXVersion", Pattern: regexp.MustCompile(`\APDF/X-4`)}),
			rules.MaxVersion(1.6),
		}}
	}
	return Candidate{Name: l.String()}
}

// BaseProfileName is the name of the profile returned by NewBaseProfile.
const BaseProfileName = "base-pdfx"

// BaseFilters are the stream filters permitted by the base profile.
var BaseFilters = []string{"ASCII85Decode", "CCITTFaxDecode", "DCTDecode", "FlateDecode", "RunLengthDecode"}

// BaseRules returns the rules shared by all PDF/X levels in evaluation
// order.
func BaseRules() []compliance.Rule {
	return []compliance.Rule{
		MustMatcher(PDFX1a.Candidate(), PDFX4.Candidate()),
		rules.NewRootHasKeys("OutputIntents"),
		rules.NewInfoHasKeys("Title", "CreationDate", "ModDate"),
		rules.NewInfoSpecifiesTrapping(),
		rules.NewCompressionAlgorithms(BaseFilters...),
		rules.NewDocumentID(),
		rules.NewNoFilespecs(),
		rules.NewNoTransparency(),
		rules.NewOnlyEmbeddedFonts(),
		rules.NewBoxNesting(),
		rules.NewPrintBoxes(),
		rules.NewOutputIntentForPDFX(),
		rules.NewPDFXOutputIntentHasKeys("OutputConditionIdentifier", "Info"),
		rules.NewNoRGB(),
	}
}

// NewBaseProfile returns the profile every PDF/X flavour builds on. The
// document must satisfy PDF/X-1a or PDF/X-4 metadata requirements.
func NewBaseProfile(opts ...compliance.Option) (*compliance.Profile, error) {
	return compliance.NewProfile(BaseProfileName, BaseRules(), opts...)
}
