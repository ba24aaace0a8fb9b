// Command preflight checks PDF files against prepress profiles.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

const (
	Version = "0.3.0"
	appName = "preflight"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(3)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

// exitError carries a process exit status without an error message.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

var errNotCompliant = &exitError{code: 1, msg: "one or more files are not compliant"}
