package rules

import (
	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
)

// NoFilespecs rejects documents that refer to external files through file
// specification dictionaries.
type NoFilespecs struct{}

func NewNoFilespecs() NoFilespecs { return NoFilespecs{} }

func (NoFilespecs) Name() string { return "no_filespecs" }

func (r NoFilespecs) CheckDocument(_ compliance.Context, src raw.Provider) ([]compliance.Issue, error) {
	count := 0
	err := walkObjects(src, src.Trailer(), func(obj raw.Object) {
		d, ok := obj.(raw.Dictionary)
		if !ok {
			return
		}
		if typ, _ := raw.Lookup(d, "Type"); isName(typ, "Filespec") {
			count++
		}
	})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return []compliance.Issue{compliance.NewIssue("File uses at least 1 Filespec to refer to an external file", r,
		map[string]any{"count": count})}, nil
}

func isName(obj raw.Object, want string) bool {
	name, ok := raw.NameOf(obj)
	return ok && name == want
}
