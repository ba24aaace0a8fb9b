package raw

import "sort"

// Concrete in-memory implementations of the raw object interfaces.

// Name object
type NameObj struct{ Val string }

func (n NameObj) Type() string     { return "name" }
func (n NameObj) IsIndirect() bool { return false }
func (n NameObj) Value() string    { return n.Val }

// Number object
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string     { return "number" }
func (n NumberObj) IsIndirect() bool { return false }
func (n NumberObj) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }

// Boolean object
type BoolObj struct{ V bool }

func (b BoolObj) Type() string     { return "boolean" }
func (b BoolObj) IsIndirect() bool { return false }
func (b BoolObj) Value() bool      { return b.V }

// Null object
type NullObj struct{}

func (n NullObj) Type() string     { return "null" }
func (n NullObj) IsIndirect() bool { return false }

// String object
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string     { return "string" }
func (s StringObj) IsIndirect() bool { return false }
func (s StringObj) Value() []byte    { return s.Bytes }
func (s StringObj) IsHex() bool      { return s.Hex }

// Array object
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) IsIndirect() bool { return false }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// Dictionary object
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string     { return "dict" }
func (d *DictObj) IsIndirect() bool { return false }
func (d *DictObj) Get(key Name) (Object, bool) {
	if d == nil || key == nil {
		return nil, false
	}
	o, ok := d.KV[key.Value()]
	return o, ok
}

// Set stores value under key and returns d, so fixtures can be chained.
func (d *DictObj) Set(key string, value Object) *DictObj {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
	return d
}

func (d *DictObj) Keys() []Name {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.KV))
	for k := range d.KV {
		names = append(names, k)
	}
	sort.Strings(names)
	keys := make([]Name, len(names))
	for i, k := range names {
		keys[i] = NameObj{Val: k}
	}
	return keys
}

func (d *DictObj) Len() int {
	if d == nil {
		return 0
	}
	return len(d.KV)
}

// Stream object holding already decoded bytes.
type StreamObj struct {
	Dict *DictObj
	Raw  []byte
	Err  error // returned by Data, simulates an undecodable stream
}

func (s *StreamObj) Type() string     { return "stream" }
func (s *StreamObj) IsIndirect() bool { return false }
func (s *StreamObj) Dictionary() Dictionary {
	if s.Dict == nil {
		return Dict()
	}
	return s.Dict
}
func (s *StreamObj) Data() ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Raw, nil
}

// Reference object
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string     { return "ref" }
func (r RefObj) IsIndirect() bool { return true }
func (r RefObj) Ref() ObjectRef   { return r.R }

// Helpers
func NameLiteral(v string) NameObj    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj { return NumberObj{F: f, IsInt: false} }
func Bool(v bool) BoolObj             { return BoolObj{V: v} }
func Str(s string) StringObj          { return StringObj{Bytes: []byte(s)} }
func NewArray(items ...Object) *ArrayObj {
	return &ArrayObj{Items: items}
}
func Dict() *DictObj { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj {
	return &StreamObj{Dict: dict, Raw: data}
}
func Ref(num, gen int) RefObj { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }

// Numbers builds an array of numeric objects, typically a page box.
func Numbers(vals ...float64) *ArrayObj {
	arr := &ArrayObj{Items: make([]Object, len(vals))}
	for i, v := range vals {
		if v == float64(int64(v)) {
			arr.Items[i] = NumberInt(int64(v))
		} else {
			arr.Items[i] = NumberFloat(v)
		}
	}
	return arr
}

// Names builds an array of name objects.
func Names(vals ...string) *ArrayObj {
	arr := &ArrayObj{Items: make([]Object, len(vals))}
	for i, v := range vals {
		arr.Items[i] = NameLiteral(v)
	}
	return arr
}
