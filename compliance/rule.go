package compliance

import (
	"context"

	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/resources"
)

// Context is an alias for context.Context to allow for future expansion.
type Context = context.Context

// Rule is the identity shared by every check. A rule takes part in a profile
// through one or more of the capabilities below, chosen when the profile is
// built.
type Rule interface {
	Name() string
}

// PageChecker inspects one page at a time and keeps no state between calls.
type PageChecker interface {
	Rule
	CheckPage(ctx Context, page *resources.Page) ([]Issue, error)
}

// DocumentChecker inspects the document as a whole once per run.
type DocumentChecker interface {
	Rule
	CheckDocument(ctx Context, doc raw.Provider) ([]Issue, error)
}

// PageAccumulator is a page rule that needs state across the page sequence.
// The profile asks for a fresh Accumulator at the start of every run.
type PageAccumulator interface {
	Rule
	NewAccumulator() Accumulator
}

// Accumulator observes pages in order. Observe may report issues as soon as
// they are known; Finish reports whatever remains after the last page.
type Accumulator interface {
	Observe(ctx Context, page *resources.Page) ([]Issue, error)
	Finish(ctx Context) ([]Issue, error)
}

// capabilities of a rule, resolved once at profile construction.
type capabilities struct {
	rule Rule
	page PageChecker
	acc  PageAccumulator
	doc  DocumentChecker
}

func capabilitiesOf(r Rule) (capabilities, bool) {
	c := capabilities{rule: r}
	if a, ok := r.(PageAccumulator); ok {
		c.acc = a
	} else if p, ok := r.(PageChecker); ok {
		c.page = p
	}
	if d, ok := r.(DocumentChecker); ok {
		c.doc = d
	}
	return c, c.page != nil || c.acc != nil || c.doc != nil
}
