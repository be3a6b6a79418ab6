//go:build !windows

package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// The shim's callbacks must resolve eagerly; a lazy bind failing inside a
// capture thread cannot be reported.
const shimOpenMode = purego.RTLD_NOW | purego.RTLD_GLOBAL

func openShim(path string) (uintptr, error) {
	handle, err := purego.Dlopen(path, shimOpenMode)
	if err != nil {
		return 0, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return handle, nil
}

func shimSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeShim(handle uintptr) error {
	return purego.Dlclose(handle)
}
