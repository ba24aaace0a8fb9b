package colorspace

import (
	"bytes"
	"regexp"
	"strings"

	"seehuhn.de/go/xmp"
)

type photoshopSchema struct {
	_          xmp.Namespace `xmp:"http://ns.adobe.com/photoshop/1.0/"`
	_          xmp.Prefix    `xmp:"photoshop"`
	ICCProfile xmp.Text
}

type basicSchema struct {
	_          xmp.Namespace `xmp:"http://ns.adobe.com/xap/1.0/"`
	_          xmp.Prefix    `xmp:"xmp"`
	ICCProfile xmp.Text
}

// profileNamePatterns are the textual forms a profile name takes in
// metadata, in priority order.
var profileNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`photoshop:ICCProfile="([^"]*)"`),
	regexp.MustCompile(`iccProfile>([^<]*)</iccProfile>`),
	regexp.MustCompile(`xmp:ICCProfile="([^"]*)"`),
	regexp.MustCompile(`photoshop:ICCProfile>([^<]*)<`),
}

// profileNameFromMetadata extracts an ICC profile name from an XMP packet.
// Well formed packets are decoded; anything else is scanned textually.
func profileNameFromMetadata(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	if packet, err := xmp.Read(bytes.NewReader(data)); err == nil {
		ps := &photoshopSchema{}
		packet.Get(ps)
		if name := strings.TrimSpace(ps.ICCProfile.V); name != "" {
			return name, true
		}
		basic := &basicSchema{}
		packet.Get(basic)
		if name := strings.TrimSpace(basic.ICCProfile.V); name != "" {
			return name, true
		}
	}
	for _, re := range profileNamePatterns {
		if m := re.FindSubmatch(data); m != nil {
			if name := strings.TrimSpace(string(m[1])); name != "" {
				return name, true
			}
		}
	}
	return "", false
}
