package compliance

import (
	"time"

	"github.com/google/uuid"

	"github.com/wudi/preflight/ir/raw"
)

// Report details the outcome of one profile run.
type Report struct {
	ID        string        `json:"id"`
	Profile   string        `json:"profile"`
	Source    string        `json:"source,omitempty"`
	Version   string        `json:"pdf_version"`
	Compliant bool          `json:"compliant"`
	Pages     int           `json:"pages"`
	Issues    []Issue       `json:"issues"`
	Duration  time.Duration `json:"duration_ns"`
}

func newReport(profile, version string, pages int, issues []Issue, d time.Duration) *Report {
	if issues == nil {
		issues = []Issue{}
	}
	return &Report{
		ID:        uuid.NewString(),
		Profile:   profile,
		Version:   version,
		Compliant: len(issues) == 0,
		Pages:     pages,
		Issues:    issues,
		Duration:  d,
	}
}

// CountByRule returns the number of issues raised by each rule.
func (r *Report) CountByRule() map[string]int {
	out := make(map[string]int)
	for _, is := range r.Issues {
		out[is.RuleName()]++
	}
	return out
}

// Validator checks a document against a profile.
type Validator interface {
	Validate(ctx Context, doc raw.Provider) (*Report, error)
}

var _ Validator = (*Profile)(nil)
