// Package engine defines the contract between capture sessions and the native
// capture engines that drive them, plus two engines implementing it.
//
// An engine enumerates monitors and windows and runs a capture loop for one
// Source, delivering frames to a Handler. The engine guarantees:
//
//   - OnFrame calls for one Run are strictly sequential.
//   - The frame buffer is valid only while OnFrame runs.
//   - After the loop ends (natural closure, Control.Stop, context cancellation,
//     or the first OnFrame error) OnClosed is invoked exactly once.
//   - If capture resources cannot be initialized, Run returns an *InitError and
//     neither callback is invoked.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/thesyncim/libgocapture/pkg/frame"
)

var (
	// ErrNotSupported is returned when an engine cannot serve a request on this platform.
	ErrNotSupported = errors.New("engine: not supported")

	// ErrClosed is returned by a FrameSource when the captured item went away.
	ErrClosed = errors.New("engine: capture item closed")

	// ErrInvalidSource is returned when a Source is not usable by the engine.
	ErrInvalidSource = errors.New("engine: invalid source")
)

// InitError reports a failure to initialize capture resources.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("engine: failed to initialize capture: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Engine is a native capture engine.
type Engine interface {
	// Monitors lists monitors in engine order. Index is 1-based.
	Monitors() ([]Monitor, error)

	// Windows lists capturable windows in engine order.
	Windows() ([]Window, error)

	// Run captures src until the session ends and blocks meanwhile.
	// Cancelling ctx requests the loop to end like Control.Stop does.
	Run(ctx context.Context, src Source, settings Settings, h Handler) error
}

// Handler receives frames and the end-of-session notification.
type Handler interface {
	OnFrame(f *frame.Frame, c Control) error
	OnClosed() error
}

// Control lets a frame handler end the capture loop.
type Control interface {
	// Stop asks the engine to end its loop after the current frame.
	// It never blocks.
	Stop()
}

// Source is the item a session captures: a Monitor or a Window.
type Source interface {
	fmt.Stringer
	isSource()
}

// Monitor is an enumerated display.
type Monitor struct {
	// Index is the 1-based position in engine enumeration order.
	Index  int
	Name   string
	Handle uintptr
	Bounds image.Rectangle
}

func (Monitor) isSource() {}

// String returns a description for logs.
func (m Monitor) String() string {
	if m.Name != "" {
		return fmt.Sprintf("monitor #%d (%s)", m.Index, m.Name)
	}
	return fmt.Sprintf("monitor #%d", m.Index)
}

// Window is an enumerated top-level window.
type Window struct {
	Handle uintptr
	Title  string
}

func (Window) isSource() {}

// String returns a description for logs.
func (w Window) String() string {
	if w.Title != "" {
		return fmt.Sprintf("window %#x (%q)", w.Handle, w.Title)
	}
	return fmt.Sprintf("window %#x", w.Handle)
}
