package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/pdfx"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/security"
)

const houseProfile = `
name: house-x1a
description: CMYK only, one page
rules:
  - rule: image_colorspace
    args: {allow: [DeviceCMYK, DeviceGray], blacklist: [ProPhoto RGB]}
  - rule: page_count
    args: {exact: 1}
  - rule: pdfx_versions
    args:
      PDF/X-1a:
        - {rule: match_info_entries, args: {entries: {GTS_PDFXVersion: "^PDF/X"}}}
        - {rule: max_version, args: {version: "1.4"}}
`

func TestParseProfile(t *testing.T) {
	def, err := ParseProfile([]byte(houseProfile))
	require.NoError(t, err)
	assert.Equal(t, "house-x1a", def.Name)
	require.Len(t, def.Rules, 3)
	assert.Equal(t, "page_count", def.Rules[1].Rule)

	p, err := def.Build(nil)
	require.NoError(t, err)
	names := make([]string, 0, 3)
	for _, r := range p.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"image_colorspace", "page_count", "pdfx_versions"}, names)

	doc := raw.NewBuilder("1.4").
		Info(raw.Dict().Set("GTS_PDFXVersion", raw.Str("PDF/X-1:2001"))).
		AddPage(raw.Dict()).
		Build()
	issues, err := p.Check(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestParseProfileSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "name: [unterminated"},
		{"missing name", "rules: [{rule: no_rgb}]"},
		{"no rules", "name: empty"},
		{"unknown field", "name: x\nrule: [{rule: no_rgb}]"},
		{"rule without name", "name: x\nrules: [{args: {}}]"},
		{"args not mapping", "name: x\nrules: [{rule: no_rgb, args: [1]}]"},
		{"bad rule name", "name: x\nrules: [{rule: NoRGB}]"},
		{"unknown base", "name: x\nextends: pdf-a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, compliance.ErrConfiguration)
		})
	}
}

func TestBuildRejectsBadArguments(t *testing.T) {
	def, err := ParseProfile([]byte("name: x\nrules: [{rule: page_count, args: {parity: prime}}]"))
	require.NoError(t, err)
	_, err = def.Build(nil)
	assert.ErrorIs(t, err, compliance.ErrConfiguration)
}

func TestExtendsBaseProfile(t *testing.T) {
	def, err := ParseProfile([]byte("name: strict\nextends: base-pdfx\nrules: [{rule: page_count, args: {parity: even}}]"))
	require.NoError(t, err)
	p, err := def.Build(nil)
	require.NoError(t, err)
	rules := p.Rules()
	assert.Len(t, rules, len(pdfx.BaseRules())+1)
	assert.Equal(t, "pdfx_versions", rules[0].Name())
	assert.Equal(t, "page_count", rules[len(rules)-1].Name())
}

func TestLoadProfileWithScriptFile(t *testing.T) {
	dir := t.TempDir()
	script := `function checkDocument(doc) { return doc.version === "1.7" ? ["too new"] : []; }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "no_17.js"), []byte(script), 0o644))
	profile := "name: scripted\nrules:\n  - rule: script\n    args: {file: no_17.js}\n"
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	p, err := LoadProfile(path, nil)
	require.NoError(t, err)
	require.Len(t, p.Rules(), 1)
	assert.Equal(t, "no_17", p.Rules()[0].Name())

	issues, err := p.Check(context.Background(), raw.NewBuilder("1.7").AddPage(raw.Dict()).Build())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "too new", issues[0].Description)
}

func TestLoadProfileWithNestedScriptFile(t *testing.T) {
	dir := t.TempDir()
	script := `function checkDocument(doc) { return doc.version === "1.7" ? ["too new"] : []; }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "no_17.js"), []byte(script), 0o644))
	profile := `
name: nested
rules:
  - rule: pdfx_versions
    args:
      house:
        - {rule: script, args: {file: no_17.js}}
`
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	p, err := LoadProfile(path, nil)
	require.NoError(t, err)

	info := raw.Dict().Set("Title", raw.Str("x"))
	issues, err := p.Check(context.Background(), raw.NewBuilder("1.7").Info(info).AddPage(raw.Dict()).Build())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Invalid file for house", issues[0].Description)

	info = raw.Dict().Set("Title", raw.Str("x"))
	issues, err = p.Check(context.Background(), raw.NewBuilder("1.4").Info(info).AddPage(raw.Dict()).Build())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLoadProfileMissingScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: s\nrules: [{rule: script, args: {file: gone.js}}]"), 0o644))
	_, err := LoadProfile(path, nil)
	assert.ErrorIs(t, err, compliance.ErrConfiguration)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 500*time.Millisecond, s.Watch.Debounce)
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preflight.yaml")
	content := `
log_level: debug
concurrency: 4
format: html
nats:
  url: nats://localhost:4222
watch:
  debounce: 2s
limits:
  max_pages: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 4, s.Concurrency)
	assert.Equal(t, "html", s.Format)
	assert.Equal(t, "preflight.reports", s.NATS.Subject, "default subject is kept")
	assert.Equal(t, 2*time.Second, s.Watch.Debounce)
	assert.Equal(t, []string{"*.pdf"}, s.Watch.Patterns)

	limits := s.Limits.Security()
	assert.Equal(t, 50, limits.MaxPages)
	assert.Equal(t, security.DefaultLimits().MaxStreamLength, limits.MaxStreamLength)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"log level", func(s *Settings) { s.LogLevel = "loud" }},
		{"concurrency", func(s *Settings) { s.Concurrency = 0 }},
		{"format", func(s *Settings) { s.Format = "pdf" }},
		{"subject", func(s *Settings) { s.NATS.URL = "nats://x"; s.NATS.Subject = "" }},
		{"debounce", func(s *Settings) { s.Watch.Debounce = -time.Second }},
		{"limits", func(s *Settings) { s.Limits.MaxPages = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}
