package rules

import (
	"fmt"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/colorspace"
	"github.com/wudi/preflight/observability"
	"github.com/wudi/preflight/resources"
)

// maxIndexedDepth bounds Indexed-of-Indexed chains.
const maxIndexedDepth = 4

// ImageColorspace restricts the colour spaces images may use. An empty allow
// list accepts every space; the blacklist is still applied.
type ImageColorspace struct {
	allowed   map[string]bool
	allow     []string
	blacklist []string
	sigs      []colorspace.Signature
	log       observability.Logger
}

// ImageOption configures ImageColorspace.
type ImageOption func(*ImageColorspace)

// WithBlacklist rejects images that name one of the profiles, whatever the
// allow list says.
func WithBlacklist(profiles ...string) ImageOption {
	return func(r *ImageColorspace) { r.blacklist = append(r.blacklist, profiles...) }
}

// WithSignatures replaces the ICC identification table.
func WithSignatures(sigs []colorspace.Signature) ImageOption {
	return func(r *ImageColorspace) { r.sigs = sigs }
}

func WithImageLogger(l observability.Logger) ImageOption {
	return func(r *ImageColorspace) { r.log = l }
}

func NewImageColorspace(allow []string, opts ...ImageOption) *ImageColorspace {
	r := &ImageColorspace{
		allowed: make(map[string]bool, len(allow)),
		allow:   append([]string(nil), allow...),
		log:     observability.NopLogger{},
	}
	for _, a := range allow {
		r.allowed[a] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ImageColorspace) Name() string { return "image_colorspace" }

// Allowed returns the configured allow list.
func (r *ImageColorspace) Allowed() []string { return append([]string(nil), r.allow...) }

func (r *ImageColorspace) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	xobjs, err := page.XObjects()
	if err != nil {
		return nil, err
	}
	res := colorspace.NewResolver(page.Source(), colorspace.Options{
		Signatures: r.sigs,
		Logger:     r.log,
		Limits:     page.Limits(),
	})

	var issues []compliance.Issue
	for _, x := range xobjs {
		if x.Subtype() != "Image" {
			continue
		}
		if is, ok := r.checkImage(res, page, x); ok {
			issues = append(issues, is)
		}
	}
	return issues, nil
}

// checkImage returns at most one issue per image. Errors are reported as
// issues so one broken image does not hide its siblings.
func (r *ImageColorspace) checkImage(res *colorspace.Resolver, page *resources.Page, x resources.XObject) (compliance.Issue, bool) {
	failed := func(err error) (compliance.Issue, bool) {
		r.log.Debug("image classification failed",
			observability.String("image", x.Name), observability.Error("error", err))
		return compliance.NewIssue(fmt.Sprintf("Error processing image '%s': %v", x.Name, err), r,
			map[string]any{"page": page.Number, "image": x.Name, "error": err.Error()}), true
	}

	if len(r.blacklist) > 0 {
		payloads, err := res.ProfilePayloads(x.Dict)
		if err != nil {
			return failed(err)
		}
		for _, name := range r.blacklist {
			for _, p := range payloads {
				if colorspace.Mentions(res.Signatures(), name, p) {
					return compliance.NewIssue(
						fmt.Sprintf("Image '%s' uses blacklisted ICC profile '%s'", x.Name, name), r,
						map[string]any{"page": page.Number, "image": x.Name, "profile": name}), true
				}
			}
		}
	}

	info, err := res.Resolve(x.Dict)
	if err != nil {
		return failed(err)
	}
	ok, err := r.acceptable(res, info, 0)
	if err != nil {
		return failed(err)
	}
	if ok {
		return compliance.Issue{}, false
	}
	return compliance.NewIssue(fmt.Sprintf("Image '%s' has invalid color space: %s", x.Name, info), r,
		map[string]any{
			"page":       page.Number,
			"image":      x.Name,
			"colorspace": info.BaseType.String(),
			"message":    "invalid color space",
		}), true
}

func (r *ImageColorspace) acceptable(res *colorspace.Resolver, info colorspace.Info, depth int) (bool, error) {
	if len(r.allowed) == 0 {
		return true, nil
	}
	switch info.BaseType.Kind() {
	case colorspace.Indexed:
		if depth >= maxIndexedDepth {
			return false, fmt.Errorf("indexed colour space nested more than %d levels", maxIndexedDepth)
		}
		base, err := res.ResolveSpace(info.IndexedBase)
		if err != nil {
			return false, err
		}
		return r.acceptable(res, base, depth+1)
	case colorspace.DeviceN:
		return r.allowed[string(colorspace.DeviceN)], nil
	}
	if r.allowed[info.BaseType.String()] {
		return true, nil
	}
	if info.ICCProfile != "" && r.allowed[info.ICCProfile] {
		return true, nil
	}
	return info.FromICC && r.allowed[string(colorspace.ICCBased)], nil
}

// NoRGB rejects images whose colour space is RGB based: DeviceRGB, CalRGB,
// three channel ICC profiles, and Indexed spaces over any of these.
type NoRGB struct{}

func NewNoRGB() NoRGB { return NoRGB{} }

func (NoRGB) Name() string { return "no_rgb" }

func (r NoRGB) CheckPage(_ compliance.Context, page *resources.Page) ([]compliance.Issue, error) {
	xobjs, err := page.XObjects()
	if err != nil {
		return nil, err
	}
	res := colorspace.NewResolver(page.Source(), colorspace.Options{Limits: page.Limits()})
	var issues []compliance.Issue
	for _, x := range xobjs {
		if x.Subtype() != "Image" {
			continue
		}
		info, err := res.Resolve(x.Dict)
		if err == nil {
			for depth := 0; info.BaseType.Kind() == colorspace.Indexed && depth < maxIndexedDepth && err == nil; depth++ {
				info, err = res.ResolveSpace(info.IndexedBase)
			}
		}
		if err != nil {
			issues = append(issues, compliance.NewIssue(fmt.Sprintf("Error processing image '%s': %v", x.Name, err), r,
				map[string]any{"page": page.Number, "image": x.Name, "error": err.Error()}))
			continue
		}
		if isRGB(info) {
			issues = append(issues, compliance.NewIssue("RGB image detected", r,
				map[string]any{"page": page.Number, "image": x.Name, "colorspace": info.BaseType.String()}))
		}
	}
	return issues, nil
}

func isRGB(info colorspace.Info) bool {
	switch info.BaseType.Kind() {
	case colorspace.DeviceRGB, "CalRGB":
		return true
	case colorspace.ICCBased:
		return info.Components == 3
	}
	return false
}
