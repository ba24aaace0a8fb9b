// Package scripting runs preflight rules written in JavaScript.
package scripting

import (
	"context"
	"errors"

	"github.com/dop251/goja"
)

// Engine wraps a goja runtime. It is not safe for concurrent use.
type Engine struct {
	vm *goja.Runtime
}

func NewEngine() *Engine {
	return &Engine{vm: goja.New()}
}

// Execute runs script in the global scope and returns the exported result.
func (e *Engine) Execute(ctx context.Context, script string) (interface{}, error) {
	val, err := e.guard(ctx, func() (goja.Value, error) { return e.vm.RunString(script) })
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

// Has reports whether the global scope defines a function called name.
func (e *Engine) Has(name string) bool {
	_, ok := goja.AssertFunction(e.vm.Get(name))
	return ok
}

// Call invokes the global function name with args converted to JavaScript
// values.
func (e *Engine) Call(ctx context.Context, name string, args ...interface{}) (goja.Value, error) {
	fn, ok := goja.AssertFunction(e.vm.Get(name))
	if !ok {
		return nil, errors.New("scripting: " + name + " is not a function")
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = e.vm.ToValue(a)
	}
	return e.guard(ctx, func() (goja.Value, error) { return fn(goja.Undefined(), vals...) })
}

// guard interrupts the runtime when ctx is done.
func (e *Engine) guard(ctx context.Context, run func() (goja.Value, error)) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer e.vm.ClearInterrupt()
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := run()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause := interrupted.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}
