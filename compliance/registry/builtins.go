package registry

import (
	"fmt"
	"regexp"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/colorspace"
	"github.com/wudi/preflight/compliance/pdfx"
	"github.com/wudi/preflight/compliance/rules"
	"github.com/wudi/preflight/scripting"
)

func builtins() []Entry {
	return []Entry{
		{Name: "image_colorspace", Description: "images use an allowed colour space and no blacklisted ICC profile", Factory: imageColorspace},
		{Name: "no_rgb", Description: "no image uses an RGB colour space", Factory: noArgs("no_rgb", func() compliance.Rule { return rules.NewNoRGB() })},
		{Name: "consistent_boxes", Description: "page boxes agree across pages within a tolerance", Factory: consistentBoxes},
		{Name: "cropbox_matches_mediabox", Description: "a declared CropBox equals the MediaBox", Factory: noArgs("cropbox_matches_mediabox", func() compliance.Rule { return rules.NewCropboxMatchesMediabox() })},
		{Name: "print_boxes", Description: "pages declare a MediaBox and exactly one of ArtBox or TrimBox", Factory: noArgs("print_boxes", func() compliance.Rule { return rules.NewPrintBoxes() })},
		{Name: "info_has_keys", Description: "the Info dictionary holds the given keys", Factory: keysRule("info_has_keys", func(k []string) compliance.Rule { return rules.NewInfoHasKeys(k...) })},
		{Name: "info_specifies_trapping", Description: "the Info dictionary states Trapped as True or False", Factory: noArgs("info_specifies_trapping", func() compliance.Rule { return rules.NewInfoSpecifiesTrapping() })},
		{Name: "match_info_entries", Description: "Info entries match regular expressions", Factory: matchInfoEntries},
		{Name: "root_has_keys", Description: "the document catalog holds the given keys", Factory: keysRule("root_has_keys", func(k []string) compliance.Rule { return rules.NewRootHasKeys(k...) })},
		{Name: "document_id", Description: "the trailer carries a document ID", Factory: noArgs("document_id", func() compliance.Rule { return rules.NewDocumentID() })},
		{Name: "no_filespecs", Description: "no file specification refers to an external file", Factory: noArgs("no_filespecs", func() compliance.Rule { return rules.NewNoFilespecs() })},
		{Name: "no_transparency", Description: "pages use no transparency groups, soft masks, alpha or blend modes", Factory: noArgs("no_transparency", func() compliance.Rule { return rules.NewNoTransparency() })},
		{Name: "only_embedded_fonts", Description: "every font on a page embeds a readable font program", Factory: noArgs("only_embedded_fonts", func() compliance.Rule { return rules.NewOnlyEmbeddedFonts() })},
		{Name: "box_nesting", Description: "BleedBox lies within MediaBox and TrimBox/ArtBox within BleedBox", Factory: noArgs("box_nesting", func() compliance.Rule { return rules.NewBoxNesting() })},
		{Name: "output_intent_for_pdfx", Description: "exactly one GTS_PDFX output intent exists", Factory: noArgs("output_intent_for_pdfx", func() compliance.Rule { return rules.NewOutputIntentForPDFX() })},
		{Name: "pdfx_output_intent_has_keys", Description: "the GTS_PDFX output intent holds the given keys", Factory: keysRule("pdfx_output_intent_has_keys", func(k []string) compliance.Rule { return rules.NewPDFXOutputIntentHasKeys(k...) })},
		{Name: "compression_algorithms", Description: "streams only use the allowed filters", Factory: compressionAlgorithms},
		{Name: "page_count", Description: "the page count is exact, in a range, one of a set, even or odd", Factory: pageCount},
		{Name: "max_version", Description: "the PDF version is at most the given one", Factory: version("max_version", rules.MaxVersion)},
		{Name: "min_version", Description: "the PDF version is at least the given one", Factory: version("min_version", rules.MinVersion)},
		{Name: "exact_version", Description: "the PDF version equals the given one", Factory: version("exact_version", rules.ExactVersion)},
		{Name: "pdfx_versions", Description: "the document satisfies one of the PDF/X candidates", Factory: pdfxVersions},
		{Name: "script", Description: "a JavaScript rule defining checkPage and/or checkDocument", Factory: script},
	}
}

func noArgs(name string, build func() compliance.Rule) Factory {
	return func(_ *Registry, args Args) (compliance.Rule, error) {
		if err := args.allowed(name); err != nil {
			return nil, err
		}
		return build(), nil
	}
}

func keysRule(name string, build func([]string) compliance.Rule) Factory {
	return func(_ *Registry, args Args) (compliance.Rule, error) {
		if err := args.allowed(name, "keys"); err != nil {
			return nil, err
		}
		keys, err := args.Strings(name, "keys")
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, compliance.Configf(name, "keys must not be empty")
		}
		return build(keys), nil
	}
}

func imageColorspace(_ *Registry, args Args) (compliance.Rule, error) {
	const name = "image_colorspace"
	if err := args.allowed(name, "allow", "blacklist", "signatures"); err != nil {
		return nil, err
	}
	allow, err := args.Strings(name, "allow")
	if err != nil {
		return nil, err
	}
	blacklist, err := args.Strings(name, "blacklist")
	if err != nil {
		return nil, err
	}
	sigs, err := signatures(name, args["signatures"])
	if err != nil {
		return nil, err
	}
	var opts []rules.ImageOption
	if len(blacklist) > 0 {
		opts = append(opts, rules.WithBlacklist(blacklist...))
	}
	if sigs != nil {
		opts = append(opts, rules.WithSignatures(sigs))
	}
	return rules.NewImageColorspace(allow, opts...), nil
}

// signatures decodes an ordered list of {name, pattern} entries. The list
// replaces the built-in ICC identification table.
func signatures(rule string, v any) ([]colorspace.Signature, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, compliance.Configf(rule, "signatures must be a list, got %T", v)
	}
	out := make([]colorspace.Signature, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compliance.Configf(rule, "signatures[%d] must be a mapping, got %T", i, item)
		}
		sigName, _ := m["name"].(string)
		pattern, _ := m["pattern"].(string)
		if sigName == "" || pattern == "" {
			return nil, compliance.Configf(rule, "signatures[%d] needs a name and a pattern", i)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &compliance.ConfigError{Rule: rule, Msg: fmt.Sprintf("signatures[%d]: bad pattern", i), Err: err}
		}
		out = append(out, colorspace.Signature{Name: sigName, Pattern: re})
	}
	return out, nil
}

func consistentBoxes(_ *Registry, args Args) (compliance.Rule, error) {
	const name = "consistent_boxes"
	if err := args.allowed(name, "tolerance"); err != nil {
		return nil, err
	}
	tol, ok, err := args.Float(name, "tolerance")
	if err != nil {
		return nil, err
	}
	if !ok {
		return rules.NewConsistentBoxes(), nil
	}
	if tol < 0 {
		return nil, compliance.Configf(name, "tolerance must not be negative, got %v", tol)
	}
	return rules.NewConsistentBoxesWithTolerance(tol), nil
}

func matchInfoEntries(_ *Registry, args Args) (compliance.Rule, error) {
	const name = "match_info_entries"
	if err := args.allowed(name, "entries"); err != nil {
		return nil, err
	}
	entries, err := args.StringMap(name, "entries")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, compliance.Configf(name, "entries must not be empty")
	}
	r, err := rules.NewMatchInfoEntries(entries)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func compressionAlgorithms(_ *Registry, args Args) (compliance.Rule, error) {
	const name = "compression_algorithms"
	if err := args.allowed(name, "filters"); err != nil {
		return nil, err
	}
	filters, err := args.Strings(name, "filters")
	if err != nil {
		return nil, err
	}
	return rules.NewCompressionAlgorithms(filters...), nil
}

func pageCount(_ *Registry, args Args) (compliance.Rule, error) {
	const name = "page_count"
	if err := args.allowed(name, "exact", "min", "max", "one_of", "parity"); err != nil {
		return nil, err
	}
	exact, hasExact, err := args.Int(name, "exact")
	if err != nil {
		return nil, err
	}
	lo, hasLo, err := args.Int(name, "min")
	if err != nil {
		return nil, err
	}
	hi, hasHi, err := args.Int(name, "max")
	if err != nil {
		return nil, err
	}
	oneOf, err := args.Ints(name, "one_of")
	if err != nil {
		return nil, err
	}
	parity, err := args.String(name, "parity")
	if err != nil {
		return nil, err
	}

	modes := 0
	for _, set := range []bool{hasExact, hasLo || hasHi, len(oneOf) > 0, parity != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return nil, compliance.Configf(name, "exactly one of exact, min/max, one_of or parity is required")
	}

	switch {
	case hasExact:
		return rules.PageCountExact(exact), nil
	case hasLo || hasHi:
		if !hasLo || !hasHi {
			return nil, compliance.Configf(name, "min and max must be given together")
		}
		if lo > hi {
			return nil, compliance.Configf(name, "min %d is greater than max %d", lo, hi)
		}
		return rules.PageCountRange(lo, hi), nil
	case len(oneOf) > 0:
		return rules.PageCountOneOf(oneOf...), nil
	}
	switch parity {
	case "even":
		return rules.PageCountEven(), nil
	case "odd":
		return rules.PageCountOdd(), nil
	}
	return nil, compliance.Configf(name, "parity must be even or odd, got %q", parity)
}

func version(name string, build func(float64) *rules.Version) Factory {
	return func(_ *Registry, args Args) (compliance.Rule, error) {
		if err := args.allowed(name, "version"); err != nil {
			return nil, err
		}
		v, ok, err := args.Float(name, "version")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, compliance.Configf(name, "version is required")
		}
		return build(v), nil
	}
}

// pdfxVersions takes a mapping of candidate name to a list of rule specs.
// Without arguments the PDF/X-1a and PDF/X-4 candidates are used.
func pdfxVersions(reg *Registry, args Args) (compliance.Rule, error) {
	const name = "pdfx_versions"
	if len(args) == 0 {
		return pdfx.MustMatcher(pdfx.PDFX1a.Candidate(), pdfx.PDFX4.Candidate()), nil
	}
	byName := make(map[string][]compliance.Rule, len(args))
	for candidate, v := range args {
		list, err := specs(name, candidate, v)
		if err != nil {
			return nil, err
		}
		built, err := reg.BuildAll(list)
		if err != nil {
			return nil, &compliance.ConfigError{Rule: name, Msg: "candidate " + candidate, Err: err}
		}
		byName[candidate] = built
	}
	m, err := pdfx.FromMap(byName)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func script(_ *Registry, args Args) (compliance.Rule, error) {
	const name = "script"
	if err := args.allowed(name, "name", "source"); err != nil {
		return nil, err
	}
	ruleName, err := args.String(name, "name")
	if err != nil {
		return nil, err
	}
	source, err := args.String(name, "source")
	if err != nil {
		return nil, err
	}
	if source == "" {
		return nil, compliance.Configf(name, "source is required")
	}
	return scripting.NewRule(ruleName, source)
}
