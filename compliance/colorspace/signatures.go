package colorspace

import (
	"bytes"
	"regexp"
)

// Signature identifies an ICC profile by a pattern found in its bytes or in
// its metadata. Signatures are tried in order and the first match wins.
type Signature struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultSignatures covers common RGB, CMYK and gray working spaces.
var DefaultSignatures = []Signature{
	{Name: "Adobe RGB (1998)", Pattern: regexp.MustCompile(`(?i)Adobe ?RGB ?\(?1998`)},
	{Name: "sRGB", Pattern: regexp.MustCompile(`(?i)sRGB|IEC.*61966`)},
	{Name: "ProPhoto RGB", Pattern: regexp.MustCompile(`(?i)ProPhoto|ROMM`)},
	{Name: "Display P3", Pattern: regexp.MustCompile(`(?i)Display.*P3`)},
	{Name: "Adobe CMYK", Pattern: regexp.MustCompile(`(?i)U\.S\. Web Coated \(SWOP\)|Coated FOGRA`)},
	{Name: "Dot Gain 20%", Pattern: regexp.MustCompile(`(?i)Dot Gain 20%`)},
	{Name: "Gray Gamma 2.2", Pattern: regexp.MustCompile(`(?i)Gr[ae]y Gamma 2\.2`)},
	{Name: "Generic Gray", Pattern: regexp.MustCompile(`(?i)Generic Gr[ae]y`)},
}

// Identify returns the name of the first signature matching any of the
// payloads. Payloads are tried one after the other.
func Identify(sigs []Signature, payloads ...[]byte) (string, bool) {
	for _, p := range payloads {
		if len(p) == 0 {
			continue
		}
		for _, s := range sigs {
			if s.Pattern.Match(p) {
				return s.Name, true
			}
		}
	}
	return "", false
}

// Mentions reports whether payload names the profile. A signature carrying
// the same name also counts as a mention.
func Mentions(sigs []Signature, name string, payload []byte) bool {
	if name == "" || len(payload) == 0 {
		return false
	}
	if bytes.Contains(bytes.ToLower(payload), bytes.ToLower([]byte(name))) {
		return true
	}
	for _, s := range sigs {
		if s.Name == name && s.Pattern.Match(payload) {
			return true
		}
	}
	return false
}

// stripNUL removes zero bytes so that UTF-16 text inside ICC tags can be
// matched as ASCII.
func stripNUL(b []byte) []byte {
	if bytes.IndexByte(b, 0) < 0 {
		return nil
	}
	return bytes.ReplaceAll(b, []byte{0}, nil)
}
