package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/thesyncim/libgocapture/pkg/host"
)

// CallbackSet is the pair of host callables a session reports to. It is
// shared read-only with the session goroutine and never mutated after New.
//
// OnFrame is called with (bufferPointer uintptr, bufferLength int,
// width uint32, height uint32, stop *StopSignal, timestamp time.Duration).
// The address is for foreign callables; Go callables built with FrameFunc
// receive the buffer as a slice instead. OnClosed is called with no arguments.
type CallbackSet struct {
	OnFrame  host.Callable
	OnClosed host.Callable

	// Runtime owns the execution lock taken around every callback.
	// Nil uses host.Default().
	Runtime *host.Runtime
}

// StopSignal is the per-frame flag a frame callback sets to end the session
// after the current frame. A fresh signal is passed to every call.
type StopSignal struct {
	set bool

	// pixels is the frame buffer for the duration of one frame callback.
	pixels []byte
}

// Stop requests that capture end after the current frame.
func (s *StopSignal) Stop() { s.set = true }

// Requested reports whether Stop was called.
func (s *StopSignal) Requested() bool { return s.set }

// FrameView is a decoded frame callback invocation. Pixels aliases engine
// memory: tightly packed BGRA rows, valid only until the callback returns.
type FrameView struct {
	Pixels    []byte
	Width     uint32
	Height    uint32
	Timestamp time.Duration
}

// ErrNoPixels is returned by a FrameFunc callable invoked with a non-empty
// buffer whose pixels were not attached to the stop signal.
var ErrNoPixels = errors.New("capture: frame pixels not attached to stop signal")

// FrameFunc adapts a typed Go function to the positional frame callback
// contract. The pixels come from the stop signal the bridge attaches them
// to; the address argument is only checked against them.
func FrameFunc(fn func(FrameView, *StopSignal) error) host.Callable {
	return host.Func(func(args ...any) error {
		if len(args) != 6 {
			return fmt.Errorf("capture: frame callback expects 6 arguments, got %d", len(args))
		}
		ptr, ok1 := args[0].(uintptr)
		n, ok2 := args[1].(int)
		w, ok3 := args[2].(uint32)
		h, ok4 := args[3].(uint32)
		stop, ok5 := args[4].(*StopSignal)
		ts, ok6 := args[5].(time.Duration)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
			return fmt.Errorf("capture: frame callback argument types %T %T %T %T %T %T",
				args[0], args[1], args[2], args[3], args[4], args[5])
		}

		if stop == nil {
			return fmt.Errorf("capture: frame callback got a nil stop signal")
		}

		pixels := stop.pixels
		if ptr != 0 && n > 0 && len(pixels) != n {
			return fmt.Errorf("%w: length %d, attached %d", ErrNoPixels, n, len(pixels))
		}
		return fn(FrameView{Pixels: pixels, Width: w, Height: h, Timestamp: ts}, stop)
	})
}

// ClosedFunc adapts a Go function to the closed callback contract.
func ClosedFunc(fn func() error) host.Callable {
	return host.Func(func(args ...any) error {
		if len(args) != 0 {
			return fmt.Errorf("capture: closed callback expects no arguments, got %d", len(args))
		}
		return fn()
	})
}
