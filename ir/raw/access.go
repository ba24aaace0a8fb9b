package raw

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Lookup returns the entry stored under key, without resolving it.
func Lookup(d Dictionary, key string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	obj, ok := d.Get(NameLiteral(key))
	if !ok || obj == nil {
		return nil, false
	}
	if IsNull(obj) {
		return nil, false
	}
	return obj, true
}

// Get resolves the entry stored under key. A missing entry yields nil, nil.
func Get(src Provider, d Dictionary, key string) (Object, error) {
	obj, ok := Lookup(d, key)
	if !ok {
		return nil, nil
	}
	res, err := src.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /%s: %w", key, err)
	}
	if IsNull(res) {
		return nil, nil
	}
	return res, nil
}

// GetDict resolves key and reports whether it holds a dictionary. Stream
// dictionaries do not count.
func GetDict(src Provider, d Dictionary, key string) (Dictionary, error) {
	obj, err := Get(src, d, key)
	if err != nil || obj == nil {
		return nil, err
	}
	dict, _ := obj.(Dictionary)
	return dict, nil
}

// GetArray resolves key and returns it when it is an array.
func GetArray(src Provider, d Dictionary, key string) (Array, error) {
	obj, err := Get(src, d, key)
	if err != nil || obj == nil {
		return nil, err
	}
	arr, _ := obj.(Array)
	return arr, nil
}

// GetStream resolves key and returns it when it is a stream.
func GetStream(src Provider, d Dictionary, key string) (Stream, error) {
	obj, err := Get(src, d, key)
	if err != nil || obj == nil {
		return nil, err
	}
	stm, _ := obj.(Stream)
	return stm, nil
}

// NameOf returns the value of a name object.
func NameOf(obj Object) (string, bool) {
	n, ok := obj.(Name)
	if !ok {
		return "", false
	}
	return n.Value(), true
}

// NumberOf returns the value of a numeric object.
func NumberOf(obj Object) (float64, bool) {
	n, ok := obj.(Number)
	if !ok {
		return 0, false
	}
	return n.Float(), true
}

// IntOf returns the value of an integer object.
func IntOf(obj Object) (int64, bool) {
	n, ok := obj.(Number)
	if !ok {
		return 0, false
	}
	return n.Int(), true
}

// TextOf renders a string, name, number or boolean object as text. PDF text
// strings carrying a UTF-16BE or UTF-8 byte order mark are decoded; other
// strings are read as PDFDocEncoding, approximated by Latin-1.
func TextOf(obj Object) (string, bool) {
	switch v := obj.(type) {
	case String:
		return DecodeText(v.Value()), true
	case Name:
		return v.Value(), true
	case Number:
		if v.IsInteger() {
			return fmt.Sprintf("%d", v.Int()), true
		}
		return fmt.Sprintf("%g", v.Float()), true
	case Boolean:
		return fmt.Sprintf("%t", v.Value()), true
	}
	return "", false
}

// DecodeText decodes the bytes of a PDF text string.
func DecodeText(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		return string(b[3:])
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
