package ffi

import (
	"unsafe"
)

// Item kinds understood by shim_capture_run.
const (
	itemKindMonitor int32 = 0
	itemKindWindow  int32 = 1
)

// Color formats understood by shim_capture_run.
const (
	colorFormatBGRA8 int32 = 0
)

// shimMonitorInfo matches ShimMonitorInfo in capture_shim.h
type shimMonitorInfo struct {
	handle uintptr
	name   [128]byte
	left   int32
	top    int32
	right  int32
	bottom int32
}

// shimWindowInfo matches ShimWindowInfo in capture_shim.h
type shimWindowInfo struct {
	handle uintptr
	title  [256]byte
}

// shimCaptureParams matches ShimCaptureParams in capture_shim.h
type shimCaptureParams struct {
	ItemKind            int32
	_                   [4]byte // padding
	ItemHandle          uintptr
	CursorCapture       int32
	DrawBorder          int32
	SecondaryWindows    int32
	DirtyRegion         int32
	MinUpdateIntervalUs int64 // 0 = engine default
	ColorFormat         int32
	_                   [4]byte // padding
	FrameCallback       uintptr
	ClosedCallback      uintptr
	Ctx                 uintptr
}

// Ptr returns a pointer to the params as uintptr for FFI calls.
func (p *shimCaptureParams) Ptr() uintptr {
	return uintptr(unsafe.Pointer(p))
}

// Int32Ptr returns a uintptr to an int32 variable.
func Int32Ptr(p *int32) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// GoString converts a null-terminated C string to a Go string.
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// CStringToGo converts a null-terminated C string to a Go string.
func CStringToGo(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
