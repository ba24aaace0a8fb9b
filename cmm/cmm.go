package cmm

// Profile represents a color profile (e.g., ICC).
type Profile interface {
	// Name returns the profile description or name.
	Name() string
	// ColorSpace returns the color space signature (e.g., "RGB ", "CMYK").
	ColorSpace() string
	// Class returns the profile class (e.g., "mntr", "prtr").
	Class() string
	// Components returns the channel count implied by the color space
	// signature, or 0 when it is not a space PDF can carry.
	Components() int
	// Data returns the raw profile bytes.
	Data() []byte
}

// componentsBySignature maps ICC data color space signatures to channel counts.
var componentsBySignature = map[string]int{
	"GRAY": 1,
	"RGB ": 3,
	"CMYK": 4,
	"Lab ": 3,
}
