package compliance

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks programmer misuse: wrong argument shapes given to a
// rule, a profile or the registry. It is never used for document defects.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigError describes a configuration mistake for a named rule or profile.
type ConfigError struct {
	Rule string
	Msg  string
	Err  error
}

// Configf builds a ConfigError with a formatted message.
func Configf(rule, format string, args ...any) *ConfigError {
	return &ConfigError{Rule: rule, Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Rule != "" {
		msg = e.Rule + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigError) Unwrap() error { return e.Err }
