// Package config loads profile definitions and CLI settings.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/pdfx"
	"github.com/wudi/preflight/compliance/registry"
)

//go:embed profile.schema.json
var profileSchema []byte

const schemaURL = "https://github.com/wudi/preflight/schema/profile.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(profileSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ProfileDef is the data form of a profile.
type ProfileDef struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Extends     string          `yaml:"extends,omitempty" json:"extends,omitempty"`
	Rules       []registry.Spec `yaml:"rules,omitempty" json:"rules,omitempty"`

	// dir resolves script files named relative to the definition.
	dir string
}

// ParseProfile decodes and validates a YAML profile definition.
func ParseProfile(data []byte) (*ProfileDef, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &compliance.ConfigError{Rule: "profile", Msg: "parse yaml", Err: err}
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	var def ProfileDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &compliance.ConfigError{Rule: "profile", Msg: "decode", Err: err}
	}
	return &def, nil
}

// validate checks a decoded YAML document against the profile schema. The
// document goes through JSON so that the validator sees JSON types.
func validate(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return &compliance.ConfigError{Rule: "profile", Msg: "profile is not representable as JSON", Err: err}
	}
	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return &compliance.ConfigError{Rule: "profile", Msg: "schema validation failed", Err: err}
	}
	return nil
}

// LoadProfileDef reads a profile definition from path.
func LoadProfileDef(path string) (*ProfileDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	def, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.dir = filepath.Dir(path)
	return def, nil
}

// LoadProfile reads a profile definition and builds it with reg. A nil reg
// means registry.Default().
func LoadProfile(path string, reg *registry.Registry, opts ...compliance.Option) (*compliance.Profile, error) {
	def, err := LoadProfileDef(path)
	if err != nil {
		return nil, err
	}
	return def.Build(reg, opts...)
}

// Build constructs the profile. Rules of an extended profile come first.
func (d *ProfileDef) Build(reg *registry.Registry, opts ...compliance.Option) (*compliance.Profile, error) {
	if reg == nil {
		reg = registry.Default()
	}
	var base []compliance.Rule
	switch d.Extends {
	case "":
	case pdfx.BaseProfileName:
		base = pdfx.BaseRules()
	default:
		return nil, compliance.Configf("profile", "cannot extend unknown profile %q", d.Extends)
	}

	specs := make([]registry.Spec, len(d.Rules))
	for i, s := range d.Rules {
		resolved, err := d.resolveScript(s)
		if err != nil {
			return nil, err
		}
		specs[i] = resolved
	}
	rules, err := reg.BuildAll(specs)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", d.Name, err)
	}
	return compliance.NewProfile(d.Name, append(base, rules...), opts...)
}

// resolveScript replaces a script rule's file argument with the file's
// contents. Rule lists nested in arguments, such as pdfx_versions
// candidates, are resolved as well.
func (d *ProfileDef) resolveScript(s registry.Spec) (registry.Spec, error) {
	if len(s.Args) > 0 {
		args := make(registry.Args, len(s.Args))
		for k, v := range s.Args {
			r, err := d.resolveNested(v)
			if err != nil {
				return s, err
			}
			args[k] = r
		}
		s.Args = args
	}
	file, ok := s.Args["file"].(string)
	if s.Rule != "script" || !ok {
		return s, nil
	}
	if _, dup := s.Args["source"]; dup {
		return s, compliance.Configf("script", "file and source are mutually exclusive")
	}
	if !filepath.IsAbs(file) && d.dir != "" {
		file = filepath.Join(d.dir, file)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return s, &compliance.ConfigError{Rule: "script", Msg: "read " + file, Err: err}
	}
	args := make(registry.Args, len(s.Args))
	for k, v := range s.Args {
		if k != "file" {
			args[k] = v
		}
	}
	args["source"] = string(src)
	if _, named := args["name"]; !named {
		args["name"] = trimExt(filepath.Base(file))
	}
	return registry.Spec{Rule: s.Rule, Args: args}, nil
}

// resolveNested copies v, resolving every {rule, args} mapping it contains.
func (d *ProfileDef) resolveNested(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if name, ok := x["rule"].(string); ok {
			args, _ := x["args"].(map[string]any)
			spec, err := d.resolveScript(registry.Spec{Rule: name, Args: registry.Args(args)})
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(x))
			for k, val := range x {
				out[k] = val
			}
			if spec.Args != nil {
				out["args"] = map[string]any(spec.Args)
			}
			return out, nil
		}
		out := make(map[string]any, len(x))
		for k, val := range x {
			r, err := d.resolveNested(val)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			r, err := d.resolveNested(val)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
