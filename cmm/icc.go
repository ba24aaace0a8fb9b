package cmm

import (
	"bytes"
	"encoding/binary"
	"errors"

	"golang.org/x/text/encoding/unicode"
)

const (
	headerSize   = 128
	tagEntrySize = 12
	maxTagCount  = 1024
)

var (
	errShortProfile = errors.New("invalid ICC profile data")
	errBadMagic     = errors.New("ICC profile lacks 'acsp' signature")
)

// ICCProfile implements Profile for ICC data.
type ICCProfile struct {
	data []byte
	desc string
}

// NewICCProfile creates a new ICCProfile from bytes. Only the header and the
// profile description tag are interpreted.
func NewICCProfile(data []byte) (*ICCProfile, error) {
	if len(data) < headerSize+4 {
		return nil, errShortProfile
	}
	if string(data[36:40]) != "acsp" {
		return nil, errBadMagic
	}
	p := &ICCProfile{data: data}
	p.desc = p.readDescription()
	return p, nil
}

// Name returns the text of the 'desc' tag, or "" when none is readable.
func (p *ICCProfile) Name() string { return p.desc }

func (p *ICCProfile) ColorSpace() string { return string(p.data[16:20]) }

func (p *ICCProfile) Class() string { return string(p.data[12:16]) }

func (p *ICCProfile) Components() int { return componentsBySignature[p.ColorSpace()] }

func (p *ICCProfile) Data() []byte { return p.data }

func (p *ICCProfile) readDescription() string {
	tag, ok := p.tag("desc")
	if !ok || len(tag) < 12 {
		return ""
	}
	switch string(tag[0:4]) {
	case "desc":
		n := int(binary.BigEndian.Uint32(tag[8:12]))
		if n <= 0 || 12+n > len(tag) {
			return ""
		}
		return string(bytes.TrimRight(tag[12:12+n], "\x00"))
	case "mluc":
		return readMLUC(tag)
	}
	return ""
}

// tag returns the bytes of the tag with the given signature.
func (p *ICCProfile) tag(sig string) ([]byte, bool) {
	count := int(binary.BigEndian.Uint32(p.data[headerSize : headerSize+4]))
	if count > maxTagCount {
		return nil, false
	}
	for i := 0; i < count; i++ {
		off := headerSize + 4 + i*tagEntrySize
		if off+tagEntrySize > len(p.data) {
			return nil, false
		}
		if string(p.data[off:off+4]) != sig {
			continue
		}
		start := int(binary.BigEndian.Uint32(p.data[off+4 : off+8]))
		size := int(binary.BigEndian.Uint32(p.data[off+8 : off+12]))
		if start < 0 || size < 0 || start+size > len(p.data) {
			return nil, false
		}
		return p.data[start : start+size], true
	}
	return nil, false
}

// readMLUC returns the first record of a multiLocalizedUnicodeType tag,
// preferring English.
func readMLUC(tag []byte) string {
	if len(tag) < 16 {
		return ""
	}
	n := int(binary.BigEndian.Uint32(tag[8:12]))
	recSize := int(binary.BigEndian.Uint32(tag[12:16]))
	if recSize < 12 {
		return ""
	}
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	var first string
	for i := 0; i < n; i++ {
		rec := 16 + i*recSize
		if rec+12 > len(tag) {
			break
		}
		length := int(binary.BigEndian.Uint32(tag[rec+4 : rec+8]))
		offset := int(binary.BigEndian.Uint32(tag[rec+8 : rec+12]))
		if offset < 0 || length < 0 || offset+length > len(tag) {
			continue
		}
		text, err := dec.Bytes(tag[offset : offset+length])
		if err != nil {
			continue
		}
		s := string(bytes.TrimRight(text, "\x00"))
		if string(tag[rec:rec+2]) == "en" {
			return s
		}
		if first == "" {
			first = s
		}
	}
	return first
}
