package capture

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/thesyncim/libgocapture/pkg/engine"
)

// Options is the user-facing capture configuration. Nil pointer fields are
// absent and fall back to engine defaults.
//
// At most one of WindowHandle, WindowName and MonitorIndex may be set. When
// none is set the first monitor is captured.
type Options struct {
	CursorCapture         *bool
	DrawBorder            *bool
	SecondaryWindow       *bool
	MinimumUpdateInterval *time.Duration
	// DirtyRegion true reports and renders dirty regions; false only reports them.
	DirtyRegion *bool

	MonitorIndex *int
	WindowName   *string
	WindowHandle *uintptr

	// Logger receives session lifecycle events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Ptr returns a pointer to v, for filling optional Options fields.
func Ptr[T any](v T) *T {
	return &v
}

// Target is the single resolved source of a session.
type Target interface {
	fmt.Stringer
	isTarget()
}

// MonitorTarget captures the monitor at a 1-based enumeration index.
type MonitorTarget struct {
	Index int
}

// WindowNameTarget captures the first window whose title contains Name.
type WindowNameTarget struct {
	Name string
}

// WindowHandleTarget captures the window with a raw native handle.
type WindowHandleTarget struct {
	Handle uintptr
}

func (MonitorTarget) isTarget()      {}
func (WindowNameTarget) isTarget()   {}
func (WindowHandleTarget) isTarget() {}

func (t MonitorTarget) String() string      { return fmt.Sprintf("monitor #%d", t.Index) }
func (t WindowNameTarget) String() string   { return fmt.Sprintf("window matching %q", t.Name) }
func (t WindowHandleTarget) String() string { return fmt.Sprintf("window %#x", t.Handle) }

// Resolve turns opts into exactly one target and one settings set.
// It performs no I/O; target existence is checked when a session starts.
func Resolve(opts Options) (Target, engine.Settings, error) {
	var set []string
	if opts.WindowHandle != nil {
		set = append(set, "window_handle")
	}
	if opts.WindowName != nil {
		set = append(set, "window_name")
	}
	if opts.MonitorIndex != nil {
		set = append(set, "monitor_index")
	}
	if len(set) > 1 {
		return nil, engine.Settings{}, &AmbiguousTargetError{Fields: set}
	}

	var target Target
	switch {
	case opts.WindowHandle != nil:
		target = WindowHandleTarget{Handle: *opts.WindowHandle}
	case opts.WindowName != nil:
		target = WindowNameTarget{Name: *opts.WindowName}
	case opts.MonitorIndex != nil:
		target = MonitorTarget{Index: *opts.MonitorIndex}
	default:
		target = MonitorTarget{Index: 1}
	}

	s := engine.Settings{
		CursorCapture: cursorCapture(opts.CursorCapture),
		DrawBorder:    drawBorder(opts.DrawBorder),
		ColorFormat:   engine.ColorFormatBGRA8,
	}
	// The engine honors the remaining settings only for monitors.
	if _, ok := target.(MonitorTarget); ok {
		s.SecondaryWindows = secondaryWindows(opts.SecondaryWindow)
		s.UpdateInterval = updateInterval(opts.MinimumUpdateInterval)
		s.DirtyRegion = dirtyRegion(opts.DirtyRegion)
	}
	return target, s, nil
}

func cursorCapture(v *bool) engine.CursorCapture {
	switch {
	case v == nil:
		return engine.CursorCaptureDefault
	case *v:
		return engine.CursorCaptureWith
	default:
		return engine.CursorCaptureWithout
	}
}

func drawBorder(v *bool) engine.DrawBorder {
	switch {
	case v == nil:
		return engine.DrawBorderDefault
	case *v:
		return engine.DrawBorderWith
	default:
		return engine.DrawBorderWithout
	}
}

func secondaryWindows(v *bool) engine.SecondaryWindows {
	switch {
	case v == nil:
		return engine.SecondaryWindowsDefault
	case *v:
		return engine.SecondaryWindowsInclude
	default:
		return engine.SecondaryWindowsExclude
	}
}

func updateInterval(v *time.Duration) engine.UpdateInterval {
	if v == nil {
		return engine.DefaultUpdateInterval()
	}
	return engine.CustomUpdateInterval(*v)
}

func dirtyRegion(v *bool) engine.DirtyRegion {
	switch {
	case v == nil:
		return engine.DirtyRegionDefault
	case *v:
		return engine.DirtyRegionReportAndRender
	default:
		return engine.DirtyRegionReportOnly
	}
}
