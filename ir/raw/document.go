package raw

import "fmt"

// Document is an in-memory Provider holding a fully materialised object
// graph. Objects may refer to each other through RefObj values.
type Document struct {
	Objects     map[ObjectRef]Object
	TrailerObj  Dictionary
	PDFVersion  string // e.g., "1.7"
	IsEncrypted bool
}

// NewDocument returns an empty document with the given header version.
func NewDocument(version string) *Document {
	return &Document{
		Objects:    make(map[ObjectRef]Object),
		TrailerObj: Dict(),
		PDFVersion: version,
	}
}

// Add stores obj as indirect object num and returns a reference to it.
func (d *Document) Add(num int, obj Object) RefObj {
	if d.Objects == nil {
		d.Objects = make(map[ObjectRef]Object)
	}
	ref := ObjectRef{Num: num}
	d.Objects[ref] = obj
	return RefObj{R: ref}
}

func (d *Document) Trailer() Dictionary {
	if d.TrailerObj == nil {
		return Dict()
	}
	return d.TrailerObj
}

func (d *Document) Version() string { return d.PDFVersion }

func (d *Document) Encrypted() bool { return d.IsEncrypted }

// maxRefChain bounds reference-to-reference chains.
const maxRefChain = 32

func (d *Document) Resolve(obj Object) (Object, error) {
	for i := 0; i < maxRefChain; i++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		target, found := d.Objects[ref.Ref()]
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnresolved, ref.Ref())
		}
		obj = target
	}
	return nil, fmt.Errorf("reference chain longer than %d", maxRefChain)
}
