package colorspace

import (
	"fmt"

	"seehuhn.de/go/icc"

	"github.com/wudi/preflight/cmm"
	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/observability"
	"github.com/wudi/preflight/security"
)

// Options configure a Resolver.
type Options struct {
	// Signatures replaces DefaultSignatures when non-nil.
	Signatures []Signature
	Logger     observability.Logger
	Limits     security.Limits
}

// Resolver classifies image colour spaces of one document.
type Resolver struct {
	src    raw.Provider
	sigs   []Signature
	log    observability.Logger
	limits security.Limits
}

func NewResolver(src raw.Provider, opts Options) *Resolver {
	r := &Resolver{
		src:    src,
		sigs:   opts.Signatures,
		log:    opts.Logger,
		limits: opts.Limits.WithDefaults(),
	}
	if r.sigs == nil {
		r.sigs = DefaultSignatures
	}
	if r.log == nil {
		r.log = observability.NopLogger{}
	}
	return r
}

// Signatures returns the identification table in use.
func (r *Resolver) Signatures() []Signature { return r.sigs }

// Resolve classifies the colour space of an image dictionary. On failure
// the returned Info is empty.
func (r *Resolver) Resolve(image raw.Dictionary) (Info, error) {
	cs, err := raw.Get(r.src, image, "ColorSpace")
	if err != nil {
		return Info{}, err
	}
	info, err := r.classify(cs)
	if err != nil {
		return Info{}, err
	}

	bpc, err := raw.Get(r.src, image, "BitsPerComponent")
	if err != nil {
		return Info{}, err
	}
	if n, ok := raw.IntOf(bpc); ok {
		info.BitDepth = int(n)
	}
	intent, err := raw.Get(r.src, image, "Intent")
	if err != nil {
		return Info{}, err
	}
	info.RenderingIntent, _ = raw.NameOf(intent)

	if info.HasAlpha, err = r.hasAlpha(image); err != nil {
		return Info{}, err
	}
	r.log.Debug("colour space classified", observability.String("info", info.String()))
	return info, nil
}

// ResolveSpace classifies a bare colour space operand, such as the base of
// an Indexed space.
func (r *Resolver) ResolveSpace(cs raw.Object) (Info, error) {
	obj, err := r.src.Resolve(cs)
	if err != nil {
		return Info{}, fmt.Errorf("resolve colour space: %w", err)
	}
	return r.classify(obj)
}

func (r *Resolver) classify(cs raw.Object) (Info, error) {
	switch v := cs.(type) {
	case raw.Name:
		k := Kind(v.Value())
		return Info{BaseType: Structural(k), Components: DeviceComponents[k]}, nil
	case raw.Array:
		return r.classifyArray(v)
	}
	return Info{BaseType: Structural(Unknown)}, nil
}

func (r *Resolver) classifyArray(arr raw.Array) (Info, error) {
	if arr.Len() == 0 {
		return Info{BaseType: Structural(Unknown)}, nil
	}
	first, _ := arr.Get(0)
	first, err := r.src.Resolve(first)
	if err != nil {
		return Info{}, fmt.Errorf("resolve colour space family: %w", err)
	}
	family, ok := raw.NameOf(first)
	if !ok {
		return Info{BaseType: Structural(Unknown)}, nil
	}
	operand, _ := arr.Get(1)

	switch Kind(family) {
	case ICCBased:
		return r.classifyICC(operand)
	case Indexed:
		return Info{BaseType: Structural(Indexed), Components: 1, IndexedBase: operand}, nil
	case Separation:
		return Info{BaseType: Structural(Separation), Components: 1}, nil
	case DeviceN:
		names, err := r.src.Resolve(operand)
		if err != nil {
			return Info{}, fmt.Errorf("resolve DeviceN colorants: %w", err)
		}
		n := 0
		if a, ok := names.(raw.Array); ok {
			n = a.Len()
		}
		return Info{BaseType: Structural(DeviceN), Components: n}, nil
	case Lab:
		return Info{BaseType: Structural(Lab), Components: 3}, nil
	}
	return Info{BaseType: Structural(Kind(family))}, nil
}

func (r *Resolver) classifyICC(operand raw.Object) (Info, error) {
	obj, err := r.src.Resolve(operand)
	if err != nil {
		return Info{}, fmt.Errorf("resolve ICC stream: %w", err)
	}
	stm, ok := obj.(raw.Stream)
	if !ok {
		return Info{}, fmt.Errorf("ICCBased colour space refers to %s, not a stream", describe(obj))
	}
	info := Info{BaseType: Structural(ICCBased), FromICC: true}

	data, err := r.limits.ReadStream(stm)
	if err != nil {
		return Info{}, fmt.Errorf("read ICC profile: %w", err)
	}
	n, err := raw.Get(r.src, stm.Dictionary(), "N")
	if err != nil {
		return Info{}, err
	}
	if v, ok := raw.IntOf(n); ok {
		info.Components = int(v)
	} else if p, err := icc.Decode(data); err == nil {
		info.Components = p.ColorSpace.NumComponents()
	}

	meta, err := r.metadata(stm.Dictionary())
	if err != nil {
		return Info{}, err
	}

	name, found := profileNameFromMetadata(meta)
	if found {
		r.log.Debug("ICC profile named by metadata", observability.String("profile", name))
	} else {
		var desc []byte
		if p, err := cmm.NewICCProfile(data); err == nil {
			desc = []byte(p.Name())
		}
		name, found = Identify(r.sigs, data, stripNUL(data), desc, meta)
		if found {
			r.log.Debug("ICC profile named by signature", observability.String("profile", name))
		}
	}

	if found {
		info.ICCProfile = name
		info.BaseType = NamedProfile(name)
		return info, nil
	}
	if k, ok := deviceByComponents[info.Components]; ok {
		info.BaseType = Structural(k)
	}
	return info, nil
}

// metadata returns the decoded /Metadata stream of d, or nil.
func (r *Resolver) metadata(d raw.Dictionary) ([]byte, error) {
	stm, err := raw.GetStream(r.src, d, "Metadata")
	if err != nil || stm == nil {
		return nil, err
	}
	data, err := r.limits.ReadStream(stm)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return data, nil
}

func (r *Resolver) hasAlpha(image raw.Dictionary) (bool, error) {
	smask, err := raw.Get(r.src, image, "SMask")
	if err != nil {
		return false, err
	}
	if _, ok := smask.(raw.Stream); ok {
		return true, nil
	}
	mask, err := raw.Get(r.src, image, "Mask")
	if err != nil {
		return false, err
	}
	switch m := mask.(type) {
	case raw.Array:
		return m.Len() > 0, nil
	case raw.Stream:
		return true, nil
	}
	return false, nil
}

// ProfilePayloads returns the byte sources in which an image can name an
// embedded profile: its own metadata, the metadata of its ICC stream and
// the ICC profile bytes. Indexed spaces are followed to their base.
func (r *Resolver) ProfilePayloads(image raw.Dictionary) ([][]byte, error) {
	var out [][]byte
	meta, err := r.metadata(image)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		out = append(out, meta)
	}
	cs, err := raw.Get(r.src, image, "ColorSpace")
	if err != nil {
		return nil, err
	}
	stm, err := r.iccStream(cs, 0)
	if err != nil || stm == nil {
		return out, err
	}
	if meta, err = r.metadata(stm.Dictionary()); err != nil {
		return nil, err
	}
	if meta != nil {
		out = append(out, meta)
	}
	data, err := r.limits.ReadStream(stm)
	if err != nil {
		return nil, fmt.Errorf("read ICC profile: %w", err)
	}
	out = append(out, data)
	if plain := stripNUL(data); plain != nil {
		out = append(out, plain)
	}
	return out, nil
}

// iccStream finds the ICC stream behind cs, looking through Indexed bases.
func (r *Resolver) iccStream(cs raw.Object, depth int) (raw.Stream, error) {
	if depth > 4 {
		return nil, nil
	}
	arr, ok := cs.(raw.Array)
	if !ok || arr.Len() < 2 {
		return nil, nil
	}
	first, _ := arr.Get(0)
	first, err := r.src.Resolve(first)
	if err != nil {
		return nil, err
	}
	family, _ := raw.NameOf(first)
	operand, _ := arr.Get(1)
	operand, err = r.src.Resolve(operand)
	if err != nil {
		return nil, err
	}
	switch Kind(family) {
	case ICCBased:
		stm, _ := operand.(raw.Stream)
		return stm, nil
	case Indexed:
		return r.iccStream(operand, depth+1)
	}
	return nil, nil
}
