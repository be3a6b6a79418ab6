// Package testutil provides shared test utilities for libgocapture tests.
package testutil

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/thesyncim/libgocapture/internal/ffi"
	"github.com/thesyncim/libgocapture/pkg/engine"
	"github.com/thesyncim/libgocapture/pkg/frame"
)

// RequireShim fails the test if the capture shim library is not available.
func RequireShim(tb testing.TB) {
	tb.Helper()
	if err := ffi.LoadLibrary(); err != nil {
		tb.Fatalf("shim library required: %v", err)
	}
}

// CreateTestFrame creates a BGRA frame with a diagonal gradient pattern.
func CreateTestFrame(width, height uint32, timestamp time.Duration) *frame.Frame {
	data := make([]byte, int(width)*int(height)*frame.BytesPerPixel)
	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			i := (y*int(width) + x) * frame.BytesPerPixel
			data[i] = byte((x + y) % 256) // B
			data[i+1] = byte(x % 256)     // G
			data[i+2] = byte(y % 256)     // R
			data[i+3] = 0xFF              // A
		}
	}
	return frame.New(width, height, timestamp, data)
}

// Run records one call to Engine.Run.
type Run struct {
	Source   engine.Source
	Settings engine.Settings
}

// Engine is a scripted engine.Engine. It serves the configured monitors and
// windows and delivers Frames frames per run before closing naturally.
type Engine struct {
	MonitorList []engine.Monitor
	WindowList  []engine.Window
	MonitorsErr error
	WindowsErr  error

	// Frames is the number of frames delivered before the item closes.
	// A negative value delivers frames until the loop is stopped.
	Frames int
	Width  uint32
	Height uint32
	// Interval paces frame delivery. Zero delivers as fast as possible.
	Interval time.Duration

	// StartErr makes Run fail with an *engine.InitError before any callback.
	StartErr error
	// BadFrameAt delivers a frame with a short buffer at that 1-based position.
	BadFrameAt int
	// PanicValue makes Run panic after recording the call.
	PanicValue any

	mu   sync.Mutex
	runs []Run
}

var _ engine.Engine = (*Engine)(nil)

// NewEngine returns a scripted engine with n 1920x1080 monitors side by side.
func NewEngine(n, frames int) *Engine {
	e := &Engine{Frames: frames, Width: 4, Height: 2}
	for i := 0; i < n; i++ {
		e.MonitorList = append(e.MonitorList, engine.Monitor{
			Index:  i + 1,
			Name:   fmt.Sprintf("fake%d", i),
			Handle: uintptr(0x100 + i),
			Bounds: image.Rect(i*1920, 0, (i+1)*1920, 1080),
		})
	}
	return e
}

// Monitors implements engine.Engine.
func (e *Engine) Monitors() ([]engine.Monitor, error) {
	if e.MonitorsErr != nil {
		return nil, e.MonitorsErr
	}
	return append([]engine.Monitor(nil), e.MonitorList...), nil
}

// Windows implements engine.Engine.
func (e *Engine) Windows() ([]engine.Window, error) {
	if e.WindowsErr != nil {
		return nil, e.WindowsErr
	}
	return append([]engine.Window(nil), e.WindowList...), nil
}

// Run implements engine.Engine.
func (e *Engine) Run(ctx context.Context, src engine.Source, s engine.Settings, h engine.Handler) error {
	e.mu.Lock()
	e.runs = append(e.runs, Run{Source: src, Settings: s})
	e.mu.Unlock()

	if e.PanicValue != nil {
		panic(e.PanicValue)
	}
	if e.StartErr != nil {
		return &engine.InitError{Err: e.StartErr}
	}

	n := 0
	return engine.Drive(ctx, h, func(ctx context.Context) (*frame.Frame, error) {
		if e.Frames >= 0 && n >= e.Frames {
			return nil, engine.ErrClosed
		}
		if e.Interval > 0 && n > 0 {
			t := time.NewTimer(e.Interval)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		n++
		ts := time.Duration(n) * time.Millisecond
		if n == e.BadFrameAt {
			return frame.New(e.Width, e.Height, ts, make([]byte, 1)), nil
		}
		return CreateTestFrame(e.Width, e.Height, ts), nil
	})
}

// Runs returns the calls made to Run so far.
func (e *Engine) Runs() []Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Run(nil), e.runs...)
}
