package capture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilEngine is returned by New when no engine is given.
	ErrNilEngine = errors.New("capture: nil engine")

	// ErrNilCallback is returned by New when a callback is missing.
	ErrNilCallback = errors.New("capture: nil callback")

	// ErrAlreadyStarted is returned when a Capture is started a second time.
	ErrAlreadyStarted = errors.New("capture: session already started")
)

// AmbiguousTargetError reports that more than one target field was set.
type AmbiguousTargetError struct {
	Fields []string
}

func (e *AmbiguousTargetError) Error() string {
	return fmt.Sprintf("capture: ambiguous target: only one of %s may be set", strings.Join(e.Fields, ", "))
}

// TargetNotFoundError reports that the requested target does not currently exist.
type TargetNotFoundError struct {
	Target Target
	// Err is the enumeration failure, if any.
	Err error
}

func (e *TargetNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s not found: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("capture: %s not found", e.Target)
}

func (e *TargetNotFoundError) Unwrap() error { return e.Err }

// SessionStartError reports that the engine could not initialize capture.
type SessionStartError struct {
	Err error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("capture: session failed to start: %v", e.Err)
}

func (e *SessionStartError) Unwrap() error { return e.Err }

// Callback names used in CallbackError.
const (
	CallbackOnFrame  = "on_frame"
	CallbackOnClosed = "on_closed"
)

// CallbackError reports that a host callback failed.
type CallbackError struct {
	Callback string
	Err      error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("capture: %s callback failed: %v", e.Callback, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// InterruptError reports that a host interrupt was pending at frame delivery.
type InterruptError struct {
	Err error
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("capture: interrupted: %v", e.Err)
}

func (e *InterruptError) Unwrap() error { return e.Err }

// FrameError reports that a frame buffer could not be mapped.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("capture: frame buffer unavailable: %v", e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// JoinError wraps the error that ended a detached session.
type JoinError struct {
	Err error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("capture: failed to join the capture session: %v", e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// PanicError reports a panic on a detached session goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("capture: session goroutine panicked: %v", e.Value)
}
