package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Capture shim function pointers, populated by registerFunctions.
var (
	shimCaptureVersion           func() uintptr
	shimCaptureEnumerateMonitors func(out uintptr, maxMonitors int32, outCount uintptr) int32
	shimCaptureEnumerateWindows  func(out uintptr, maxWindows int32, outCount uintptr) int32
	shimCaptureRun               func(params uintptr) int32
	shimCaptureRequestStop       func(ctx uintptr)
)

func registerFunctions() error {
	bindings := []struct {
		fptr any
		name string
	}{
		{&shimCaptureVersion, "shim_capture_version"},
		{&shimCaptureEnumerateMonitors, "shim_capture_enumerate_monitors"},
		{&shimCaptureEnumerateWindows, "shim_capture_enumerate_windows"},
		{&shimCaptureRun, "shim_capture_run"},
		{&shimCaptureRequestStop, "shim_capture_request_stop"},
	}

	// RegisterLibFunc panics on a missing symbol, so look it up first.
	for _, b := range bindings {
		if _, err := shimSymbol(libHandle, b.name); err != nil {
			return fmt.Errorf("capture_shim: missing symbol %s: %w", b.name, err)
		}
		purego.RegisterLibFunc(b.fptr, libHandle, b.name)
	}
	return nil
}
