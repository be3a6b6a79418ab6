//go:build windows

package engine

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Win32 DLL procs (lazy loaded)
var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procIsWindow             = user32.NewProc("IsWindow")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
)

// EnumWindows callbacks cannot capture state, so results go through a
// package-level slice guarded by enumMu.
var (
	enumMu       sync.Mutex
	enumResult   []Window
	enumCallback = windows.NewCallback(enumWindowsProc)
)

func enumWindowsProc(hwnd uintptr, _ uintptr) uintptr {
	if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
		return 1
	}
	title := windowTitle(hwnd)
	if title == "" {
		return 1
	}
	enumResult = append(enumResult, Window{Handle: hwnd, Title: title})
	return 1
}

func enumerateWindows() ([]Window, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumResult = nil
	ok, _, err := procEnumWindows.Call(enumCallback, 0)
	if ok == 0 {
		return nil, fmt.Errorf("engine: EnumWindows failed: %w", err)
	}
	out := enumResult
	enumResult = nil
	return out, nil
}

func windowTitle(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func isWindow(hwnd uintptr) bool {
	if hwnd == 0 {
		return false
	}
	ok, _, _ := procIsWindow.Call(hwnd)
	return ok != 0
}

func windowBounds(hwnd uintptr) (image.Rectangle, error) {
	var r windows.Rect
	ok, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return image.Rectangle{}, fmt.Errorf("engine: GetWindowRect failed: %w", err)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}
