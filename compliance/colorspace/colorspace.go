// Package colorspace classifies the colour space of image XObjects.
//
// A classification is derived from the image dictionary alone: device
// spaces map to fixed channel counts, ICC based spaces are named from their
// metadata or profile bytes where possible, and the remaining array forms
// (Indexed, Separation, DeviceN, Lab) are reported structurally.
package colorspace

import (
	"fmt"
	"strings"

	"github.com/wudi/preflight/ir/raw"
)

// Kind is a structural colour space family.
type Kind string

const (
	DeviceRGB  Kind = "DeviceRGB"
	DeviceCMYK Kind = "DeviceCMYK"
	DeviceGray Kind = "DeviceGray"
	ICCBased   Kind = "ICCBased"
	Indexed    Kind = "Indexed"
	Separation Kind = "Separation"
	DeviceN    Kind = "DeviceN"
	Lab        Kind = "Lab"
	Unknown    Kind = "Unknown"
)

// DeviceComponents maps the device families to their channel count.
var DeviceComponents = map[Kind]int{
	DeviceGray: 1,
	DeviceRGB:  3,
	DeviceCMYK: 4,
}

// deviceByComponents is the generic device space for an ICC channel count.
var deviceByComponents = map[int]Kind{
	1: DeviceGray,
	3: DeviceRGB,
	4: DeviceCMYK,
}

// BaseType is either a structural Kind or the name of a recognised ICC
// profile. The zero value reads as Unknown.
type BaseType struct {
	kind    Kind
	profile string
}

// Structural returns the base type for a colour space family.
func Structural(k Kind) BaseType { return BaseType{kind: k} }

// NamedProfile returns the base type for an identified ICC profile.
func NamedProfile(name string) BaseType { return BaseType{kind: ICCBased, profile: name} }

// Kind returns the structural family. Named profiles report ICCBased.
func (b BaseType) Kind() Kind {
	if b.kind == "" {
		return Unknown
	}
	return b.kind
}

// Profile returns the profile name when b is a named profile.
func (b BaseType) Profile() (string, bool) {
	return b.profile, b.profile != ""
}

// String returns the profile name for named profiles and the family name
// otherwise.
func (b BaseType) String() string {
	if b.profile != "" {
		return b.profile
	}
	return string(b.Kind())
}

// Info is the classification of one image's colour space.
type Info struct {
	BaseType BaseType
	// ICCProfile is the identified profile name; empty unless identified.
	ICCProfile string
	// FromICC is set when the space was declared as ICCBased, including
	// spaces that fell back to a device equivalent.
	FromICC         bool
	Components      int
	BitDepth        int
	RenderingIntent string
	HasAlpha        bool
	// IndexedBase is the base space of an Indexed space, unresolved.
	IndexedBase raw.Object
}

func (i Info) String() string {
	details := []string{"Type: " + i.BaseType.String()}
	if i.ICCProfile != "" {
		details = append(details, "ICC Profile: "+i.ICCProfile)
	}
	if i.Components > 0 {
		details = append(details, fmt.Sprintf("Components: %d", i.Components))
	}
	if i.BitDepth > 0 {
		details = append(details, fmt.Sprintf("Bits/Component: %d", i.BitDepth))
	}
	if i.RenderingIntent != "" {
		details = append(details, "Rendering Intent: "+i.RenderingIntent)
	}
	if i.HasAlpha {
		details = append(details, "Has Alpha Channel")
	}
	if i.IndexedBase != nil {
		details = append(details, "Indexed Base: "+describe(i.IndexedBase))
	}
	return strings.Join(details, ", ")
}

// describe renders a colour space operand without resolving it.
func describe(obj raw.Object) string {
	switch v := obj.(type) {
	case raw.Name:
		return v.Value()
	case raw.Reference:
		return v.Ref().String()
	case raw.Array:
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, _ := v.Get(i)
			parts = append(parts, describe(item))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case raw.Stream:
		return "stream"
	}
	if obj == nil {
		return "null"
	}
	return obj.Type()
}
