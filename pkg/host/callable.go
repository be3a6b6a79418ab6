package host

import (
	"fmt"
	"runtime/debug"
)

// Callable is an opaque host object invoked with positional arguments.
type Callable interface {
	Call(args ...any) error
}

// Func adapts an ordinary function to Callable.
type Func func(args ...any) error

// Call implements Callable.
func (f Func) Call(args ...any) error {
	return f(args...)
}

// PanicError reports a panic raised inside a Callable.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("host: callable panicked: %v", e.Value)
}

// Invoke calls c and converts a panic inside it into a *PanicError.
func Invoke(c Callable, args ...any) (err error) {
	if c == nil {
		return fmt.Errorf("host: nil callable")
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return c.Call(args...)
}
