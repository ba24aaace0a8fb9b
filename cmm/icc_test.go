package cmm

import (
	"encoding/binary"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

// buildProfile assembles a minimal ICC profile with one 'desc' tag.
func buildProfile(space string, tag []byte) []byte {
	data := make([]byte, 128+4+12)
	binary.BigEndian.PutUint32(data[12:16], 0x6D6E7472) // mntr
	copy(data[16:20], space)
	copy(data[36:40], "acsp")
	binary.BigEndian.PutUint32(data[128:132], 1)
	copy(data[132:136], "desc")
	binary.BigEndian.PutUint32(data[136:140], uint32(len(data)))
	binary.BigEndian.PutUint32(data[140:144], uint32(len(tag)))
	data = append(data, tag...)
	binary.BigEndian.PutUint32(data[0:4], uint32(len(data)))
	return data
}

func textDescription(s string) []byte {
	tag := make([]byte, 12)
	copy(tag, "desc")
	binary.BigEndian.PutUint32(tag[8:12], uint32(len(s)+1))
	tag = append(tag, s...)
	return append(tag, 0)
}

func multiLocalized(lang, s string) []byte {
	enc, _ := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	tag := make([]byte, 28)
	copy(tag, "mluc")
	binary.BigEndian.PutUint32(tag[8:12], 1)
	binary.BigEndian.PutUint32(tag[12:16], 12)
	copy(tag[16:18], lang)
	copy(tag[18:20], "US")
	binary.BigEndian.PutUint32(tag[20:24], uint32(len(enc)))
	binary.BigEndian.PutUint32(tag[24:28], 28)
	return append(tag, enc...)
}

func TestICCProfileParse(t *testing.T) {
	data := make([]byte, 132)
	binary.BigEndian.PutUint32(data[0:4], 132)
	binary.BigEndian.PutUint32(data[12:16], 0x6D6E7472) // mntr
	binary.BigEndian.PutUint32(data[16:20], 0x52474220) // RGB
	binary.BigEndian.PutUint32(data[36:40], 0x61637370) // acsp
	binary.BigEndian.PutUint32(data[128:132], 0)

	p, err := NewICCProfile(data)
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}

	if p.Class() != "mntr" {
		t.Errorf("expected class 'mntr', got '%s'", p.Class())
	}
	if p.ColorSpace() != "RGB " {
		t.Errorf("expected color space 'RGB ', got '%s'", p.ColorSpace())
	}
	if p.Components() != 3 {
		t.Errorf("expected 3 components, got %d", p.Components())
	}
	if p.Name() != "" {
		t.Errorf("expected empty description, got %q", p.Name())
	}
}

func TestICCProfileDescription(t *testing.T) {
	tests := []struct {
		name  string
		space string
		tag   []byte
		want  string
		n     int
	}{
		{"v2 desc", "CMYK", textDescription("U.S. Web Coated (SWOP) v2"), "U.S. Web Coated (SWOP) v2", 4},
		{"v4 mluc", "RGB ", multiLocalized("en", "sRGB IEC61966-2.1"), "sRGB IEC61966-2.1", 3},
		{"v4 mluc other language", "GRAY", multiLocalized("de", "Graustufen"), "Graustufen", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewICCProfile(buildProfile(tt.space, tt.tag))
			if err != nil {
				t.Fatalf("NewICCProfile failed: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.want)
			}
			if p.Components() != tt.n {
				t.Errorf("Components() = %d, want %d", p.Components(), tt.n)
			}
		})
	}
}

func TestICCProfileRejectsGarbage(t *testing.T) {
	if _, err := NewICCProfile([]byte("short")); err == nil {
		t.Error("expected error for short data")
	}
	if _, err := NewICCProfile(make([]byte, 200)); err == nil {
		t.Error("expected error for missing acsp magic")
	}
}

func TestICCProfileTruncatedTagTable(t *testing.T) {
	data := buildProfile("RGB ", textDescription("Display P3"))
	binary.BigEndian.PutUint32(data[128:132], 50) // claims more tags than present
	p, err := NewICCProfile(data[:150])
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}
	if p.Name() != "" {
		t.Errorf("truncated profile should have no description, got %q", p.Name())
	}
}
