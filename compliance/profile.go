package compliance

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/observability"
	"github.com/wudi/preflight/resources"
	"github.com/wudi/preflight/security"
)

// Profile is an ordered list of rules evaluated together against a document.
// A Profile is immutable; With returns an extended copy.
type Profile struct {
	name  string
	rules []capabilities
	opts  options
}

type options struct {
	logger      observability.Logger
	tracer      observability.Tracer
	metrics     observability.Metrics
	concurrency int
	limits      security.Limits
}

// Option configures a Profile.
type Option func(*options)

func WithLogger(l observability.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithMetrics(m observability.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithConcurrency evaluates stateless page rules on up to n pages at once.
// Issue order is unaffected.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

func WithLimits(l security.Limits) Option {
	return func(o *options) { o.limits = l }
}

// NewProfile builds a profile from rules in evaluation order. Every rule must
// implement at least one capability (PageChecker, PageAccumulator or
// DocumentChecker); anything else is a configuration error.
func NewProfile(name string, rules []Rule, opts ...Option) (*Profile, error) {
	o := options{
		logger:      observability.NopLogger{},
		tracer:      observability.NopTracer(),
		metrics:     observability.NopMetrics{},
		concurrency: 1,
		limits:      security.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Profile{name: name, opts: o}
	if err := p.add(rules); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) add(rules []Rule) error {
	for i, r := range rules {
		if r == nil {
			return Configf(p.name, "rule %d is nil", i)
		}
		c, ok := capabilitiesOf(r)
		if !ok {
			return Configf(p.name, "rule %q checks neither pages nor the document", r.Name())
		}
		p.rules = append(p.rules, c)
	}
	return nil
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// Rules returns the rules in evaluation order.
func (p *Profile) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	for i, c := range p.rules {
		out[i] = c.rule
	}
	return out
}

// With returns a copy of p with extra rules appended. p is unchanged.
func (p *Profile) With(rules ...Rule) (*Profile, error) {
	cp := &Profile{name: p.name, opts: p.opts}
	cp.rules = append([]capabilities(nil), p.rules...)
	if err := cp.add(rules); err != nil {
		return nil, err
	}
	return cp, nil
}

// Check evaluates every rule against doc. Issues are ordered by page, then
// by rule declaration order; accumulator leftovers follow the pages and
// document-level issues come last. Encrypted documents are refused with
// security.ErrEncrypted before any rule runs.
func (p *Profile) Check(ctx Context, doc raw.Provider) ([]Issue, error) {
	res, err := p.run(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.issues, nil
}

// Validate runs Check and wraps the outcome into a Report.
func (p *Profile) Validate(ctx Context, doc raw.Provider) (*Report, error) {
	start := time.Now()
	res, err := p.run(ctx, doc)
	if err != nil {
		p.opts.metrics.CheckFailed(p.name)
		return nil, err
	}
	rep := newReport(p.name, doc.Version(), res.pages, res.issues, time.Since(start))
	p.opts.metrics.CheckCompleted(p.name, res.pages, len(res.issues), rep.Duration)
	for rule, n := range rep.CountByRule() {
		p.opts.metrics.RuleIssues(p.name, rule, n)
	}
	p.opts.logger.Info("preflight finished",
		observability.String("profile", p.name),
		observability.Int("pages", res.pages),
		observability.Int("issues", len(res.issues)),
		observability.Bool("compliant", rep.Compliant))
	return rep, nil
}

type result struct {
	issues []Issue
	pages  int
}

func (p *Profile) run(ctx Context, doc raw.Provider) (res result, err error) {
	ctx, span := p.opts.tracer.StartSpan(ctx, "preflight.check")
	span.SetTag("profile", p.name)
	defer func() {
		span.SetError(err)
		span.Finish()
	}()

	if err := security.CheckEncryption(doc); err != nil {
		return result{}, err
	}
	pages, err := resources.Pages(doc, p.opts.limits)
	if errors.Is(err, resources.ErrNoPageTree) {
		p.opts.logger.Warn("document has no page tree", observability.String("profile", p.name))
		pages, err = nil, nil
	}
	if err != nil {
		return result{}, fmt.Errorf("read pages: %w", err)
	}
	span.SetTag("pages", len(pages))

	var issues []Issue

	// fresh accumulators for every run
	accs := make([]Accumulator, len(p.rules))
	for i, c := range p.rules {
		if c.acc != nil {
			accs[i] = c.acc.NewAccumulator()
		}
	}

	buckets, err := p.prefetch(ctx, pages)
	if err != nil {
		return result{}, err
	}

	for pi, page := range pages {
		if err := ctx.Err(); err != nil {
			return result{}, err
		}
		for ri, c := range p.rules {
			var found []Issue
			switch {
			case accs[ri] != nil:
				found, err = accs[ri].Observe(ctx, page)
			case c.page != nil && buckets != nil:
				found = buckets[pi][ri]
			case c.page != nil:
				found, err = c.page.CheckPage(ctx, page)
			default:
				continue
			}
			if err != nil {
				return result{}, fmt.Errorf("rule %s on page %d: %w", c.rule.Name(), page.Number, err)
			}
			p.opts.logger.Debug("page rule evaluated",
				observability.String("rule", c.rule.Name()),
				observability.Int("page", page.Number),
				observability.Int("issues", len(found)))
			issues = append(issues, found...)
		}
	}

	for ri, acc := range accs {
		if acc == nil {
			continue
		}
		found, err := acc.Finish(ctx)
		if err != nil {
			return result{}, fmt.Errorf("rule %s: %w", p.rules[ri].rule.Name(), err)
		}
		issues = append(issues, found...)
	}

	for _, c := range p.rules {
		if c.doc == nil {
			continue
		}
		found, err := c.doc.CheckDocument(ctx, doc)
		if err != nil {
			return result{}, fmt.Errorf("rule %s: %w", c.rule.Name(), err)
		}
		p.opts.logger.Debug("document rule evaluated",
			observability.String("rule", c.rule.Name()),
			observability.Int("issues", len(found)))
		issues = append(issues, found...)
	}

	return result{issues: issues, pages: len(pages)}, nil
}

// prefetch evaluates the stateless page rules concurrently and returns one
// bucket per page and rule. It returns nil when concurrency is disabled.
func (p *Profile) prefetch(ctx Context, pages []*resources.Page) ([][][]Issue, error) {
	if p.opts.concurrency <= 1 || len(pages) < 2 {
		return nil, nil
	}
	buckets := make([][][]Issue, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.concurrency)
	for pi, page := range pages {
		buckets[pi] = make([][]Issue, len(p.rules))
		g.Go(func() error {
			for ri, c := range p.rules {
				if c.page == nil {
					continue
				}
				found, err := c.page.CheckPage(gctx, page)
				if err != nil {
					return fmt.Errorf("rule %s on page %d: %w", c.rule.Name(), page.Number, err)
				}
				buckets[pi][ri] = found
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buckets, nil
}
