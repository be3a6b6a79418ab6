package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/thesyncim/libgocapture/internal/ffi"
	"github.com/thesyncim/libgocapture/pkg/frame"
)

// shimTick is the unit of shim timestamps (100ns system-relative ticks).
const shimTick = 100 * time.Nanosecond

// Native drives the OS capture API through the capture shim library.
type Native struct{}

// NewNative loads the capture shim (from shimPath, or the default search
// locations when empty) and returns an engine backed by it.
func NewNative(shimPath string) (*Native, error) {
	if err := ffi.LoadLibraryFrom(shimPath); err != nil {
		return nil, err
	}
	if err := ffi.CheckVersion(); err != nil {
		return nil, err
	}
	return &Native{}, nil
}

// Monitors implements Engine.
func (n *Native) Monitors() ([]Monitor, error) {
	infos, err := ffi.EnumerateMonitors()
	if err != nil {
		return nil, err
	}
	out := make([]Monitor, len(infos))
	for i, m := range infos {
		out[i] = Monitor{Index: i + 1, Name: m.Name, Handle: m.Handle, Bounds: m.Bounds}
	}
	return out, nil
}

// Windows implements Engine.
func (n *Native) Windows() ([]Window, error) {
	infos, err := ffi.EnumerateWindows()
	if err != nil {
		return nil, err
	}
	out := make([]Window, len(infos))
	for i, w := range infos {
		out[i] = Window{Handle: w.Handle, Title: w.Title}
	}
	return out, nil
}

// Run implements Engine. The shim drives the loop on the calling goroutine.
func (n *Native) Run(ctx context.Context, src Source, settings Settings, h Handler) error {
	params, err := nativeParams(src, settings)
	if err != nil {
		return &InitError{Err: err}
	}

	onFrame := func(buf []byte, width, height uint32, timestamp int64) (bool, error) {
		f := frame.New(width, height, time.Duration(timestamp)*shimTick, buf)
		ctl := &StopFlag{}
		err := h.OnFrame(f, ctl)
		f.Release()
		return ctl.Stopped(), err
	}
	sess, err := ffi.NewCaptureSession(params, onFrame, h.OnClosed)
	if err != nil {
		return &InitError{Err: err}
	}

	// External stop: forward ctx cancellation to the shim.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			sess.Stop()
		case <-watchDone:
		}
	}()

	err = sess.Run()
	// The shim always closes a loop it started, so a failure with no frames
	// and no closed notification means capture never began.
	if err != nil && !sess.ClosedInvoked() && sess.Frames() == 0 {
		return &InitError{Err: err}
	}
	return err
}

func nativeParams(src Source, s Settings) (ffi.CaptureParams, error) {
	p := ffi.CaptureParams{
		CursorCapture:    triState(s.CursorCapture == CursorCaptureWith, s.CursorCapture == CursorCaptureWithout),
		DrawBorder:       triState(s.DrawBorder == DrawBorderWith, s.DrawBorder == DrawBorderWithout),
		SecondaryWindows: triState(s.SecondaryWindows == SecondaryWindowsInclude, s.SecondaryWindows == SecondaryWindowsExclude),
		DirtyRegion:      triState(s.DirtyRegion == DirtyRegionReportAndRender, s.DirtyRegion == DirtyRegionReportOnly),
	}
	if d, ok := s.UpdateInterval.Custom(); ok {
		p.MinUpdateInterval = d
	}

	switch v := src.(type) {
	case Monitor:
		if v.Handle == 0 {
			return p, fmt.Errorf("%w: monitor #%d has no native handle", ErrInvalidSource, v.Index)
		}
		p.Handle = v.Handle
	case Window:
		if v.Handle == 0 {
			return p, fmt.Errorf("%w: null window handle", ErrInvalidSource)
		}
		p.Window = true
		p.Handle = v.Handle
	default:
		return p, fmt.Errorf("%w: %T", ErrInvalidSource, src)
	}
	return p, nil
}

// triState encodes a setting for the shim: 0 = default, 1 = on, 2 = off.
func triState(on, off bool) int32 {
	switch {
	case on:
		return 1
	case off:
		return 2
	default:
		return 0
	}
}
