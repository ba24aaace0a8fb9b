package raw

import (
	"errors"
	"fmt"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object. Keys returns the keys in
// ascending lexical order so that iteration is deterministic.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
}

// Stream represents a PDF stream. Data returns the decoded stream bytes.
type Stream interface {
	Object
	Dictionary() Dictionary
	Data() ([]byte, error)
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object. Every Object satisfies it, so use
// IsNull to test for null.
type Null interface{ Object }

// IsNull reports whether obj is the PDF null object.
func IsNull(obj Object) bool { return obj != nil && obj.Type() == "null" }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// ErrUnresolved is returned when a reference points at an object the
// provider does not hold.
var ErrUnresolved = errors.New("unresolved object reference")

// Provider is the read-only view of a parsed document that checks consume.
// Implementations resolve cross references; they never expose PDF syntax.
type Provider interface {
	// Trailer returns the trailer dictionary.
	Trailer() Dictionary
	// Resolve follows indirect references until a direct object is reached.
	// Direct objects are returned unchanged; nil resolves to nil.
	Resolve(obj Object) (Object, error)
	// Version is the effective PDF version, e.g. "1.4".
	Version() string
	// Encrypted reports whether the file declares an encryption dictionary.
	Encrypted() bool
}
