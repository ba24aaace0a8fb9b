package security

import (
	"errors"

	"github.com/wudi/preflight/ir/raw"
)

// ErrEncrypted reports a document whose encryption prevents inspection.
// It is raised before any rule runs.
var ErrEncrypted = errors.New("can't preflight an encrypted PDF")

// ErrStreamTooLarge is returned when a stream exceeds Limits.MaxStreamLength.
var ErrStreamTooLarge = errors.New("stream exceeds size limit")

// ErrObjectGraph is returned when a document walk nests deeper than
// Limits.MaxIndirectDepth or visits more than Limits.MaxObjects objects.
var ErrObjectGraph = errors.New("object graph exceeds limits")

// LimitsOf returns the limits src was opened with, or the defaults.
func LimitsOf(src raw.Provider) Limits {
	if l, ok := src.(interface{ Limits() Limits }); ok {
		return l.Limits().WithDefaults()
	}
	return DefaultLimits()
}

// CheckEncryption returns ErrEncrypted when src declares encryption.
func CheckEncryption(src raw.Provider) error {
	if src.Encrypted() {
		return ErrEncrypted
	}
	if _, ok := raw.Lookup(src.Trailer(), "Encrypt"); ok {
		return ErrEncrypted
	}
	return nil
}

// ReadStream returns the decoded bytes of stm, bounded by the limits.
func (l Limits) ReadStream(stm raw.Stream) ([]byte, error) {
	data, err := stm.Data()
	if err != nil {
		return nil, err
	}
	if limit := l.WithDefaults().MaxStreamLength; int64(len(data)) > limit {
		return nil, ErrStreamTooLarge
	}
	return data, nil
}
