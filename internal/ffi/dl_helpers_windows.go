//go:build windows

package ffi

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// openShim loads the shim DLL. Absolute paths use the altered search order so
// the capture runtime DLLs shipped next to the shim are found first.
func openShim(path string) (uintptr, error) {
	var flags uintptr
	if filepath.IsAbs(path) {
		flags = windows.LOAD_WITH_ALTERED_SEARCH_PATH
	}
	handle, err := windows.LoadLibraryEx(path, 0, flags)
	if err != nil {
		return 0, fmt.Errorf("LoadLibraryEx %s: %w", path, err)
	}
	return uintptr(handle), nil
}

func shimSymbol(handle uintptr, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(handle), name)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress(%s): %w", name, err)
	}
	return addr, nil
}

func closeShim(handle uintptr) error {
	if err := windows.FreeLibrary(windows.Handle(handle)); err != nil {
		return fmt.Errorf("FreeLibrary: %w", err)
	}
	return nil
}
