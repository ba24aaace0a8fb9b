package security

// Limits defines resource boundaries applied while walking a document.
// They protect the checks against hostile files (deep page trees, zip bombs
// hidden in metadata streams).
type Limits struct {
	// Maximum page tree depth. Default: 100.
	MaxIndirectDepth int

	// Maximum number of pages visited. Default: 100,000.
	MaxPages int

	// Maximum decoded bytes read from a metadata or ICC stream. Default: 16 MB.
	MaxStreamLength int64

	// Maximum objects visited by a whole-document walk. Default: 1,000,000.
	MaxObjects int
}

// DefaultLimits returns a Limits struct with safe default values.
func DefaultLimits() Limits {
	return Limits{
		MaxIndirectDepth: 100,
		MaxPages:         100000,
		MaxStreamLength:  16 * 1024 * 1024, // 16 MB
		MaxObjects:       1000000,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxIndirectDepth <= 0 {
		l.MaxIndirectDepth = d.MaxIndirectDepth
	}
	if l.MaxPages <= 0 {
		l.MaxPages = d.MaxPages
	}
	if l.MaxStreamLength <= 0 {
		l.MaxStreamLength = d.MaxStreamLength
	}
	if l.MaxObjects <= 0 {
		l.MaxObjects = d.MaxObjects
	}
	return l
}
