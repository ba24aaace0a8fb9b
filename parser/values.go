package parser

import (
	"fmt"
	"io"
	"reflect"

	"rsc.io/pdf"

	"github.com/wudi/preflight/ir/raw"
	"github.com/wudi/preflight/security"
)

// objectRef returns the indirect object a value was loaded from.
// rsc.io/pdf resolves references transparently and keeps the containing
// object's number in an unexported field; reading it lets the adapter
// report references so that walks over cyclic graphs terminate.
func objectRef(v pdf.Value) raw.ObjectRef {
	ptr := reflect.ValueOf(v).FieldByName("ptr")
	if !ptr.IsValid() || ptr.Kind() != reflect.Struct || ptr.NumField() < 2 {
		return raw.ObjectRef{}
	}
	id, gen := ptr.Field(0), ptr.Field(1)
	if !isUint(id.Kind()) || !isUint(gen.Kind()) {
		return raw.ObjectRef{}
	}
	return raw.ObjectRef{Num: int(id.Uint()), Gen: int(gen.Uint())}
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// access runs f with the reader locked. A panic inside rsc.io/pdf, which
// it raises on malformed objects, leaves f's results at their zero values.
func (d *Document) access(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() { _ = recover() }()
	f()
}

// child wraps a value read out of a container loaded from object parent.
// A value from a different indirect object becomes a reference.
func (d *Document) child(v pdf.Value, parent raw.ObjectRef) raw.Object {
	if v.Kind() == pdf.Null {
		return nil
	}
	if r := objectRef(v); r != parent && r.Num != 0 {
		return refValue{r: r, target: v}
	}
	return d.direct(v, parent)
}

func (d *Document) direct(v pdf.Value, self raw.ObjectRef) raw.Object {
	switch v.Kind() {
	case pdf.Bool:
		return raw.Bool(v.Bool())
	case pdf.Integer:
		return raw.NumberInt(v.Int64())
	case pdf.Real:
		return raw.NumberFloat(v.Float64())
	case pdf.String:
		return raw.StringObj{Bytes: []byte(v.RawString())}
	case pdf.Name:
		return raw.NameLiteral(v.Name())
	case pdf.Dict:
		return d.dict(v, self)
	case pdf.Array:
		return arrayValue{doc: d, v: v, self: self}
	case pdf.Stream:
		return streamValue{doc: d, v: v, self: self}
	}
	return raw.NullObj{}
}

func (d *Document) dict(v pdf.Value, self raw.ObjectRef) dictValue {
	return dictValue{doc: d, v: v, self: self}
}

type refValue struct {
	r      raw.ObjectRef
	target pdf.Value
}

func (refValue) Type() string         { return "ref" }
func (refValue) IsIndirect() bool     { return true }
func (r refValue) Ref() raw.ObjectRef { return r.r }

type dictValue struct {
	doc  *Document
	v    pdf.Value
	self raw.ObjectRef
}

func (dictValue) Type() string     { return "dict" }
func (dictValue) IsIndirect() bool { return false }

func (d dictValue) Get(key raw.Name) (raw.Object, bool) {
	if key == nil {
		return nil, false
	}
	var v pdf.Value
	d.doc.access(func() { v = d.v.Key(key.Value()) })
	obj := d.doc.child(v, d.self)
	return obj, obj != nil
}

func (d dictValue) Keys() []raw.Name {
	var keys []string
	d.doc.access(func() { keys = d.v.Keys() })
	out := make([]raw.Name, len(keys))
	for i, k := range keys {
		out[i] = raw.NameLiteral(k)
	}
	return out
}

func (d dictValue) Len() int { return len(d.Keys()) }

type arrayValue struct {
	doc  *Document
	v    pdf.Value
	self raw.ObjectRef
}

func (arrayValue) Type() string     { return "array" }
func (arrayValue) IsIndirect() bool { return false }

func (a arrayValue) Get(i int) (raw.Object, bool) {
	if i < 0 || i >= a.Len() {
		return nil, false
	}
	var v pdf.Value
	a.doc.access(func() { v = a.v.Index(i) })
	obj := a.doc.child(v, a.self)
	if obj == nil {
		return raw.NullObj{}, true
	}
	return obj, true
}

func (a arrayValue) Len() (n int) {
	a.doc.access(func() { n = a.v.Len() })
	return n
}

type streamValue struct {
	doc  *Document
	v    pdf.Value
	self raw.ObjectRef
}

func (streamValue) Type() string     { return "stream" }
func (streamValue) IsIndirect() bool { return false }

func (s streamValue) Dictionary() raw.Dictionary {
	return dictValue{doc: s.doc, v: s.v, self: s.self}
}

// Data decodes the stream. rsc.io/pdf panics on filters it does not
// implement; that is reported as an error.
func (s streamValue) Data() (data []byte, err error) {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("decode stream: %v", rec)
		}
	}()
	rc := s.v.Reader()
	defer rc.Close()
	limit := s.doc.limits.MaxStreamLength
	data, err = io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("decode stream: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, security.ErrStreamTooLarge
	}
	return data, nil
}
