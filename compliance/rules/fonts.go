package rules

import (
	"fmt"

	"golang.org/x/image/font/sfnt"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/resources"
)

// OnlyEmbeddedFonts requires every font used by a page to carry its font
// program. Type 3 fonts are defined inline and always pass. TrueType and
// OpenType programs are parsed, so a truncated or corrupt program is
// reported as well.
type OnlyEmbeddedFonts struct{}

func NewOnlyEmbeddedFonts() OnlyEmbeddedFonts { return OnlyEmbeddedFonts{} }

func (OnlyEmbeddedFonts) Name() string { return "only_embedded_fonts" }

func (r OnlyEmbeddedFonts) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	fonts, err := page.Resource("Font")
	if err != nil || fonts == nil {
		return nil, err
	}
	src := page.Source()
	var issues []compliance.Issue
	for _, key := range fonts.Keys() {
		font, err := raw.GetDict(src, fonts, key.Value())
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", key.Value(), err)
		}
		if font == nil {
			continue
		}
		subtype, _ := raw.Lookup(font, "Subtype")
		if isName(subtype, "Type3") {
			continue
		}
		baseFont, _ := raw.Lookup(font, "BaseFont")
		name, ok := raw.NameOf(baseFont)
		if !ok {
			name = key.Value()
		}
		attrs := map[string]any{"page": page.Number, "font": name}

		program, kind, err := fontProgram(src, font)
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", key.Value(), err)
		}
		if program == nil {
			issues = append(issues, compliance.NewIssue("Font not embedded", r, attrs))
			continue
		}
		if !parsesAsSFNT(program, kind) {
			continue
		}
		data, err := page.Limits().ReadStream(program)
		if err == nil {
			_, err = sfnt.Parse(data)
		}
		if err != nil {
			issues = append(issues, compliance.NewIssue("Embedded font program is unreadable", r, attrs))
		}
	}
	return issues, nil
}

// fontProgram returns the embedded program stream of font and the
// descriptor key it was found under. Composite fonts are looked up through
// their first descendant.
func fontProgram(src raw.Provider, font raw.Dictionary) (raw.Stream, string, error) {
	desc, err := raw.GetDict(src, font, "FontDescriptor")
	if err != nil {
		return nil, "", err
	}
	if desc == nil {
		descendants, err := raw.GetArray(src, font, "DescendantFonts")
		if err != nil || descendants == nil || descendants.Len() == 0 {
			return nil, "", err
		}
		first, _ := descendants.Get(0)
		first, err = src.Resolve(first)
		if err != nil {
			return nil, "", err
		}
		cid, ok := first.(raw.Dictionary)
		if !ok {
			return nil, "", nil
		}
		if desc, err = raw.GetDict(src, cid, "FontDescriptor"); err != nil || desc == nil {
			return nil, "", err
		}
	}
	for _, key := range []string{"FontFile", "FontFile2", "FontFile3"} {
		stm, err := raw.GetStream(src, desc, key)
		if err != nil {
			return nil, "", err
		}
		if stm != nil {
			return stm, key, nil
		}
	}
	return nil, "", nil
}

// parsesAsSFNT reports whether the program is an sfnt container, that is a
// FontFile2 stream or a FontFile3 stream of subtype OpenType.
func parsesAsSFNT(program raw.Stream, kind string) bool {
	switch kind {
	case "FontFile2":
		return true
	case "FontFile3":
		subtype, _ := raw.Lookup(program.Dictionary(), "Subtype")
		return isName(subtype, "OpenType")
	}
	return false
}
