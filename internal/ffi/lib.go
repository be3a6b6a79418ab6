// Package ffi provides purego bindings to the native capture shim library.
// The shim wraps the OS capture engine behind a small C ABI.
package ffi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrLibraryNotLoaded is returned when the shim library hasn't been loaded.
	ErrLibraryNotLoaded = errors.New("capture_shim library not loaded")

	// ErrLibraryNotFound is returned when the shim library cannot be found.
	ErrLibraryNotFound = errors.New("capture_shim library not found")

	// FFI error sentinels - these match shim error codes and support errors.Is().
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrInitFailed      = errors.New("initialization failed")
	ErrOutOfMemory     = errors.New("out of memory")
	ErrNotSupported    = errors.New("not supported")
	ErrBufferTooSmall  = errors.New("buffer too small")
	ErrNotFound        = errors.New("not found")
	ErrCallbackFailed  = errors.New("callback failed")
	ErrFrameMapFailed  = errors.New("frame buffer mapping failed")
	ErrSessionRunning  = errors.New("capture session already running")
	ErrSessionFinished = errors.New("capture session already finished")
)

// Error codes from shim (int32 to match C int)
const (
	ShimOK                int32 = 0
	ShimErrInvalidParam   int32 = -1
	ShimErrInitFailed     int32 = -2
	ShimErrOutOfMemory    int32 = -3
	ShimErrNotSupported   int32 = -4
	ShimErrBufferTooSmall int32 = -5
	ShimErrNotFound       int32 = -6
	ShimErrCallbackFailed int32 = -7
	ShimErrFrameMapFailed int32 = -8
)

const envShimPath = "LIBCAPTURE_SHIM_PATH"

var (
	libHandle uintptr
	libLoaded atomic.Bool // Use atomic for lock-free reads
	libMu     sync.Mutex  // Still used for load/unload operations
)

// LoadLibrary loads the capture shim shared library.
// It searches in the following locations:
// 1. Path specified by LIBCAPTURE_SHIM_PATH environment variable
// 2. ./lib/{os}_{arch}/ relative to the executable and working directory
// 3. System library paths
func LoadLibrary() error {
	return LoadLibraryFrom("")
}

// LoadLibraryFrom loads the shim from path, falling back to the LoadLibrary
// search order when path is empty.
func LoadLibraryFrom(path string) error {
	libMu.Lock()
	defer libMu.Unlock()

	if libLoaded.Load() {
		return nil
	}

	libPath := path
	if libPath == "" {
		if found, ok := findLocalLibrary(); ok {
			libPath = found
		} else {
			libPath = getLibraryName()
		}
	}

	handle, err := openShim(libPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLibraryNotFound, err)
	}

	libHandle = handle
	if err := registerFunctions(); err != nil {
		_ = closeShim(handle)
		libHandle = 0
		return err
	}

	libLoaded.Store(true)
	return nil
}

// IsLoaded returns true if the shim library is loaded.
// Thread-safe due to atomic.Bool.
func IsLoaded() bool {
	return libLoaded.Load()
}

// Close unloads the shim library.
func Close() error {
	libMu.Lock()
	defer libMu.Unlock()

	if !libLoaded.Load() {
		return nil
	}

	if err := closeShim(libHandle); err != nil {
		return err
	}

	libLoaded.Store(false)
	libHandle = 0
	return nil
}

// ExpectedShimVersion is the shim API version this Go code expects.
const ExpectedShimVersion = "1.0.0"

// ErrVersionMismatch is returned when the shim version doesn't match.
var ErrVersionMismatch = errors.New("shim version mismatch")

// ShimVersion returns the shim library version.
// Returns empty string if library is not loaded.
func ShimVersion() string {
	if !libLoaded.Load() {
		return ""
	}
	ptr := shimCaptureVersion()
	if ptr == 0 {
		return ""
	}
	return GoString(unsafe.Pointer(ptr))
}

// CheckVersion verifies the shim version matches what this Go code expects.
func CheckVersion() error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	if v := ShimVersion(); v != ExpectedShimVersion {
		return fmt.Errorf("%w: shim version %q, expected %q", ErrVersionMismatch, v, ExpectedShimVersion)
	}
	return nil
}

func findLocalLibrary() (string, bool) {
	// Check environment variable first
	if path := os.Getenv(envShimPath); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	libName := getLibraryName()
	platformDir := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)

	var searchPaths []string

	// Check relative to executable
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		searchPaths = append(searchPaths,
			filepath.Join(execDir, libName),
			filepath.Join(execDir, "lib", platformDir, libName),
		)
	}

	// Check working directory
	if wd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(wd, "lib", platformDir, libName),
			filepath.Join(wd, "..", "lib", platformDir, libName),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			return absPath, true
		}
	}

	return "", false
}

func getLibraryName() string {
	return getLibraryNameFor(runtime.GOOS)
}

func getLibraryNameFor(goos string) string {
	switch goos {
	case "darwin":
		return "libcapture_shim.dylib"
	case "windows":
		return "capture_shim.dll"
	default:
		return "libcapture_shim.so"
	}
}

// ShimError converts a shim error code to a Go error.
// Returns sentinel errors that support errors.Is() comparisons.
func ShimError(code int32) error {
	switch code {
	case ShimOK:
		return nil
	case ShimErrInvalidParam:
		return ErrInvalidParam
	case ShimErrInitFailed:
		return ErrInitFailed
	case ShimErrOutOfMemory:
		return ErrOutOfMemory
	case ShimErrNotSupported:
		return ErrNotSupported
	case ShimErrBufferTooSmall:
		return ErrBufferTooSmall
	case ShimErrNotFound:
		return ErrNotFound
	case ShimErrCallbackFailed:
		return ErrCallbackFailed
	case ShimErrFrameMapFailed:
		return ErrFrameMapFailed
	default:
		return fmt.Errorf("unknown shim error: %d", code)
	}
}
