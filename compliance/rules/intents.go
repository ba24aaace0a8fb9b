package rules

import (
	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
)

// pdfxIntents returns the catalog OutputIntents whose subtype /S is
// GTS_PDFX.
func pdfxIntents(src raw.Provider) ([]raw.Dictionary, error) {
	root, err := rootDict(src)
	if err != nil || root == nil {
		return nil, err
	}
	arr, err := raw.GetArray(src, root, "OutputIntents")
	if err != nil || arr == nil {
		return nil, err
	}
	var out []raw.Dictionary
	for i := 0; i < arr.Len(); i++ {
		item, _ := arr.Get(i)
		item, err := src.Resolve(item)
		if err != nil {
			return nil, err
		}
		d, ok := item.(raw.Dictionary)
		if !ok {
			continue
		}
		s, err := raw.Get(src, d, "S")
		if err != nil {
			return nil, err
		}
		if name, _ := raw.NameOf(s); name == "GTS_PDFX" {
			out = append(out, d)
		}
	}
	return out, nil
}

// OutputIntentForPDFX requires exactly one GTS_PDFX output intent.
type OutputIntentForPDFX struct{}

func NewOutputIntentForPDFX() OutputIntentForPDFX { return OutputIntentForPDFX{} }

func (OutputIntentForPDFX) Name() string { return "output_intent_for_pdfx" }

func (r OutputIntentForPDFX) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	intents, err := pdfxIntents(src)
	if err != nil {
		return nil, err
	}
	if len(intents) != 1 {
		return []compliance.Issue{compliance.NewIssue("There must be exactly 1 OutputIntent with a subtype of GTS_PDFX", r,
			map[string]any{"count": len(intents)})}, nil
	}
	return nil, nil
}

// PDFXOutputIntentHasKeys requires every GTS_PDFX output intent to carry
// the keys.
type PDFXOutputIntentHasKeys struct {
	keys []string
}

func NewPDFXOutputIntentHasKeys(keys ...string) *PDFXOutputIntentHasKeys {
	return &PDFXOutputIntentHasKeys{keys: append([]string(nil), keys...)}
}

func (r *PDFXOutputIntentHasKeys) Name() string { return "pdfx_output_intent_has_keys" }

func (r *PDFXOutputIntentHasKeys) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	intents, err := pdfxIntents(src)
	if err != nil {
		return nil, err
	}
	var issues []compliance.Issue
	for _, intent := range intents {
		for _, key := range r.keys {
			if _, ok := raw.Lookup(intent, key); !ok {
				issues = append(issues, compliance.NewIssue("The GTS_PDFX OutputIntent missing required key", r,
					map[string]any{"key": key}))
			}
		}
	}
	return issues, nil
}
