package engine

import (
	"fmt"
	"time"
)

// CursorCapture controls whether the cursor is drawn into frames.
type CursorCapture int

const (
	CursorCaptureDefault CursorCapture = iota
	CursorCaptureWith
	CursorCaptureWithout
)

// String returns the string representation of the cursor setting.
func (c CursorCapture) String() string {
	switch c {
	case CursorCaptureDefault:
		return "default"
	case CursorCaptureWith:
		return "with_cursor"
	case CursorCaptureWithout:
		return "without_cursor"
	default:
		return "unknown"
	}
}

// DrawBorder controls the capture highlight border.
type DrawBorder int

const (
	DrawBorderDefault DrawBorder = iota
	DrawBorderWith
	DrawBorderWithout
)

// String returns the string representation of the border setting.
func (b DrawBorder) String() string {
	switch b {
	case DrawBorderDefault:
		return "default"
	case DrawBorderWith:
		return "with_border"
	case DrawBorderWithout:
		return "without_border"
	default:
		return "unknown"
	}
}

// SecondaryWindows controls whether secondary windows are included.
// Only honored for monitor sources.
type SecondaryWindows int

const (
	SecondaryWindowsDefault SecondaryWindows = iota
	SecondaryWindowsInclude
	SecondaryWindowsExclude
)

// String returns the string representation of the secondary window setting.
func (s SecondaryWindows) String() string {
	switch s {
	case SecondaryWindowsDefault:
		return "default"
	case SecondaryWindowsInclude:
		return "include"
	case SecondaryWindowsExclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// DirtyRegion controls dirty-region reporting. Only honored for monitor sources.
type DirtyRegion int

const (
	DirtyRegionDefault DirtyRegion = iota
	DirtyRegionReportOnly
	DirtyRegionReportAndRender
)

// String returns the string representation of the dirty region setting.
func (d DirtyRegion) String() string {
	switch d {
	case DirtyRegionDefault:
		return "default"
	case DirtyRegionReportOnly:
		return "report_only"
	case DirtyRegionReportAndRender:
		return "report_and_render"
	default:
		return "unknown"
	}
}

// UpdateInterval is the minimum time between two frames.
// The zero value means the engine default.
type UpdateInterval struct {
	custom   bool
	interval time.Duration
}

// DefaultUpdateInterval leaves the pacing to the engine.
func DefaultUpdateInterval() UpdateInterval { return UpdateInterval{} }

// CustomUpdateInterval requests at most one frame per d.
func CustomUpdateInterval(d time.Duration) UpdateInterval {
	return UpdateInterval{custom: true, interval: d}
}

// Custom returns the requested interval and whether one was requested.
func (u UpdateInterval) Custom() (time.Duration, bool) {
	return u.interval, u.custom
}

// IsDefault reports whether no custom interval was requested.
func (u UpdateInterval) IsDefault() bool { return !u.custom }

// String returns the string representation of the interval setting.
func (u UpdateInterval) String() string {
	if !u.custom {
		return "default"
	}
	return u.interval.String()
}

// ColorFormat is the pixel format requested from the engine.
type ColorFormat int

const (
	// ColorFormatBGRA8 is the only format this package requests.
	ColorFormatBGRA8 ColorFormat = iota
)

// Settings is the resolved, immutable set of engine toggles for one session.
type Settings struct {
	CursorCapture    CursorCapture
	DrawBorder       DrawBorder
	SecondaryWindows SecondaryWindows
	UpdateInterval   UpdateInterval
	DirtyRegion      DirtyRegion
	ColorFormat      ColorFormat
}

// String returns a compact representation for logs.
func (s Settings) String() string {
	return fmt.Sprintf("cursor=%s border=%s secondary=%s interval=%s dirty=%s",
		s.CursorCapture, s.DrawBorder, s.SecondaryWindows, s.UpdateInterval, s.DirtyRegion)
}
