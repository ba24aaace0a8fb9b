package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/pdfx"
	"github.com/wudi/preflight/ir/raw"
)

func TestDefaultNames(t *testing.T) {
	names := Default().Names()
	for _, want := range []string{
		"image_colorspace", "consistent_boxes", "cropbox_matches_mediabox",
		"info_has_keys", "info_specifies_trapping", "match_info_entries",
		"root_has_keys", "document_id", "print_boxes", "output_intent_for_pdfx",
		"pdfx_output_intent_has_keys", "compression_algorithms", "page_count",
		"max_version", "min_version", "exact_version", "no_rgb", "pdfx_versions", "script",
		"no_filespecs", "no_transparency", "only_embedded_fonts", "box_nesting",
	} {
		assert.Contains(t, names, want)
	}
	assert.IsIncreasing(t, names)
	assert.Same(t, Default(), Default())
}

func TestBuildSimpleRules(t *testing.T) {
	tests := []struct {
		rule string
		args Args
	}{
		{"image_colorspace", Args{"allow": []any{"DeviceCMYK", "DeviceGray"}, "blacklist": "sRGB"}},
		{"consistent_boxes", nil},
		{"consistent_boxes", Args{"tolerance": 0.5}},
		{"info_has_keys", Args{"keys": []any{"Title"}}},
		{"match_info_entries", Args{"entries": map[string]any{"Title": "^Report"}}},
		{"compression_algorithms", Args{"filters": []string{"FlateDecode"}}},
		{"page_count", Args{"exact": 2}},
		{"page_count", Args{"min": 1, "max": 4}},
		{"page_count", Args{"one_of": []any{1, 2, 4}}},
		{"page_count", Args{"parity": "even"}},
		{"max_version", Args{"version": "1.4"}},
		{"min_version", Args{"version": 1.3}},
		{"exact_version", Args{"version": 1}},
		{"no_rgb", nil},
		{"box_nesting", nil},
		{"only_embedded_fonts", Args{}},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			r, err := Default().Build(tt.rule, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, r.Name())
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		rule string
		args Args
	}{
		{"unknown rule", "no_such_rule", nil},
		{"unexpected argument", "no_rgb", Args{"foo": 1}},
		{"keys not strings", "info_has_keys", Args{"keys": []any{1}}},
		{"keys missing", "root_has_keys", nil},
		{"bad regex", "match_info_entries", Args{"entries": map[string]any{"Title": "("}}},
		{"negative tolerance", "consistent_boxes", Args{"tolerance": -1}},
		{"two page count modes", "page_count", Args{"exact": 1, "parity": "odd"}},
		{"half range", "page_count", Args{"min": 1}},
		{"inverted range", "page_count", Args{"min": 5, "max": 1}},
		{"bad parity", "page_count", Args{"parity": "prime"}},
		{"fractional count", "page_count", Args{"exact": 1.5}},
		{"missing version", "max_version", nil},
		{"bad version", "max_version", Args{"version": "one"}},
		{"candidate not a list", "pdfx_versions", Args{"PDF/X-1a": "max_version"}},
		{"script without source", "script", Args{"name": "x"}},
		{"signatures not a list", "image_colorspace", Args{"signatures": "sRGB"}},
		{"signature without pattern", "image_colorspace", Args{"signatures": []any{map[string]any{"name": "x"}}}},
		{"bad signature pattern", "image_colorspace", Args{"signatures": []any{map[string]any{"name": "x", "pattern": "("}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Default().Build(tt.rule, tt.args)
			require.Error(t, err)
			assert.True(t, errors.Is(err, compliance.ErrConfiguration), "got %v", err)
		})
	}
}

func TestBuildImageColorspaceSignatures(t *testing.T) {
	icc := raw.NewStream(raw.Dict().Set("N", raw.NumberInt(3)), []byte("....desc HRGB-2...."))
	image := raw.NewStream(raw.Dict().
		Set("Subtype", raw.NameLiteral("Image")).
		Set("ColorSpace", raw.NewArray(raw.NameLiteral("ICCBased"), icc)), nil)
	b := raw.NewBuilder("1.4")
	b.AddPage(raw.Dict().Set("Resources", raw.Dict().Set("XObject", raw.Dict().Set("Im1", b.Object(image)))))
	doc := b.Build()

	run := func(args Args) []compliance.Issue {
		t.Helper()
		p, err := Default().Profile("icc", []Spec{{Rule: "image_colorspace", Args: args}})
		require.NoError(t, err)
		issues, err := p.Check(context.Background(), doc)
		require.NoError(t, err)
		return issues
	}

	assert.Empty(t, run(Args{"blacklist": []any{"House RGB"}}))

	issues := run(Args{
		"blacklist":  []any{"House RGB"},
		"signatures": []any{map[string]any{"name": "House RGB", "pattern": `HRGB-\d`}},
	})
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "blacklisted ICC profile 'House RGB'")
}

func TestBuildPDFXVersions(t *testing.T) {
	r, err := Default().Build("pdfx_versions", Args{
		"PDF/X-4": []any{
			map[string]any{"rule": "match_info_entries", "args": map[string]any{
				"entries": map[string]any{"GTS_PDFXVersion": `\APDF/X-4`},
			}},
			map[string]any{"rule": "max_version", "args": map[string]any{"version": 1.6}},
		},
		"PDF/X-1a": []any{
			map[string]any{"rule": "max_version", "args": map[string]any{"version": 1.4}},
		},
	})
	require.NoError(t, err)
	m, ok := r.(*pdfx.Matcher)
	require.True(t, ok)
	assert.Equal(t, []string{"PDF/X-1a", "PDF/X-4"}, m.Candidates())

	def, err := Default().Build("pdfx_versions", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"PDF/X-1a", "PDF/X-4"}, def.(*pdfx.Matcher).Candidates())

	_, err = Default().Build("pdfx_versions", Args{"X": []any{
		map[string]any{"rule": "print_boxes"},
	}})
	assert.ErrorIs(t, err, compliance.ErrConfiguration, "page rules cannot be candidates")
}

func TestBuildScript(t *testing.T) {
	r, err := Default().Build("script", Args{
		"name":   "needs_title",
		"source": `function checkDocument(doc) { return doc.info.Title ? [] : ["no title"]; }`,
	})
	require.NoError(t, err)
	assert.Equal(t, "needs_title", r.Name())

	doc := raw.NewBuilder("1.4").Info(raw.Dict().Set("Author", raw.Str("me"))).AddPage(raw.Dict()).Build()
	issues, err := r.(compliance.DocumentChecker).CheckDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "no title", issues[0].Description)
}

func TestWithIsCopyOnWrite(t *testing.T) {
	custom := Entry{
		Name: "never_builds",
		Factory: func(*Registry, Args) (compliance.Rule, error) {
			return nil, compliance.Configf("never_builds", "not buildable")
		},
	}
	ext, err := Default().With(custom)
	require.NoError(t, err)
	assert.Contains(t, ext.Names(), "never_builds")
	assert.NotContains(t, Default().Names(), "never_builds")

	_, err = ext.With(custom)
	assert.ErrorIs(t, err, compliance.ErrConfiguration)

	_, err = New(Entry{Name: "incomplete"})
	assert.ErrorIs(t, err, compliance.ErrConfiguration)
}

func TestProfileFromSpecs(t *testing.T) {
	p, err := Default().Profile("custom", []Spec{
		{Rule: "info_has_keys", Args: Args{"keys": []any{"Title"}}},
		{Rule: "page_count", Args: Args{"exact": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name())
	assert.Len(t, p.Rules(), 2)

	doc := raw.NewBuilder("1.4").Info(raw.Dict().Set("Title", raw.Str("t"))).AddPage(raw.Dict()).Build()
	issues, err := p.Check(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = Default().Profile("broken", []Spec{{Rule: "page_count"}})
	assert.ErrorIs(t, err, compliance.ErrConfiguration)
}
