package ffi

import (
	"errors"
	"testing"
	"unsafe"
)

// --- Error Code Tests ---

func TestShimErrorCodes(t *testing.T) {
	tests := []struct {
		code    int32
		wantErr error
		errMsg  string
	}{
		{ShimOK, nil, ""},
		{ShimErrInvalidParam, ErrInvalidParam, "invalid parameter"},
		{ShimErrInitFailed, ErrInitFailed, "initialization failed"},
		{ShimErrOutOfMemory, ErrOutOfMemory, "out of memory"},
		{ShimErrNotSupported, ErrNotSupported, "not supported"},
		{ShimErrBufferTooSmall, ErrBufferTooSmall, "buffer too small"},
		{ShimErrNotFound, ErrNotFound, "not found"},
		{ShimErrCallbackFailed, ErrCallbackFailed, "callback failed"},
		{ShimErrFrameMapFailed, ErrFrameMapFailed, "frame buffer mapping failed"},
		{-999, nil, "unknown shim error: -999"},
	}

	for _, tt := range tests {
		err := ShimError(tt.code)
		if tt.errMsg == "" {
			if err != nil {
				t.Errorf("ShimError(%d) = %v, want nil", tt.code, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("ShimError(%d) = nil, want error", tt.code)
			continue
		}
		if err.Error() != tt.errMsg {
			t.Errorf("ShimError(%d) = %q, want %q", tt.code, err.Error(), tt.errMsg)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("ShimError(%d) is not %v", tt.code, tt.wantErr)
		}
	}
}

func TestLibraryNameFor(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "libcapture_shim.dylib"},
		{"windows", "capture_shim.dll"},
		{"linux", "libcapture_shim.so"},
		{"freebsd", "libcapture_shim.so"},
	}
	for _, tt := range tests {
		if got := getLibraryNameFor(tt.goos); got != tt.want {
			t.Errorf("getLibraryNameFor(%q) = %q, want %q", tt.goos, got, tt.want)
		}
	}
}

// --- Type Helper Tests ---

func TestCStringToGo(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"terminated", []byte("Display 1\x00garbage"), "Display 1"},
		{"leading nul", []byte{0, 'a', 'b'}, ""},
		{"unterminated", []byte("abc"), "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CStringToGo(tt.in); got != tt.want {
				t.Errorf("CStringToGo(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGoString(t *testing.T) {
	if got := GoString(nil); got != "" {
		t.Errorf("GoString(nil) = %q, want empty", got)
	}
	b := []byte("1.0.0\x00")
	if got := GoString(unsafe.Pointer(&b[0])); got != "1.0.0" {
		t.Errorf("GoString = %q, want %q", got, "1.0.0")
	}
}

func TestShimCaptureParamsLayout(t *testing.T) {
	var p shimCaptureParams
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout offsets assume a 64-bit platform")
	}
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"ItemKind", unsafe.Offsetof(p.ItemKind), 0},
		{"ItemHandle", unsafe.Offsetof(p.ItemHandle), 8},
		{"CursorCapture", unsafe.Offsetof(p.CursorCapture), 16},
		{"DirtyRegion", unsafe.Offsetof(p.DirtyRegion), 28},
		{"MinUpdateIntervalUs", unsafe.Offsetof(p.MinUpdateIntervalUs), 32},
		{"ColorFormat", unsafe.Offsetof(p.ColorFormat), 40},
		{"FrameCallback", unsafe.Offsetof(p.FrameCallback), 48},
		{"ClosedCallback", unsafe.Offsetof(p.ClosedCallback), 56},
		{"Ctx", unsafe.Offsetof(p.Ctx), 64},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("offset of %s = %d, want %d", o.name, o.got, o.want)
		}
	}
	if got := unsafe.Sizeof(p); got != 72 {
		t.Errorf("sizeof(shimCaptureParams) = %d, want 72", got)
	}
}

// --- Not Loaded ---

func TestNotLoaded(t *testing.T) {
	if IsLoaded() {
		t.Skip("shim library is loaded")
	}
	if _, err := EnumerateMonitors(); !errors.Is(err, ErrLibraryNotLoaded) {
		t.Errorf("EnumerateMonitors err = %v, want ErrLibraryNotLoaded", err)
	}
	if _, err := EnumerateWindows(); !errors.Is(err, ErrLibraryNotLoaded) {
		t.Errorf("EnumerateWindows err = %v, want ErrLibraryNotLoaded", err)
	}
	_, err := NewCaptureSession(CaptureParams{}, func([]byte, uint32, uint32, int64) (bool, error) {
		return false, nil
	}, func() error { return nil })
	if !errors.Is(err, ErrLibraryNotLoaded) {
		t.Errorf("NewCaptureSession err = %v, want ErrLibraryNotLoaded", err)
	}
	if err := CheckVersion(); !errors.Is(err, ErrLibraryNotLoaded) {
		t.Errorf("CheckVersion err = %v, want ErrLibraryNotLoaded", err)
	}
	if v := ShimVersion(); v != "" {
		t.Errorf("ShimVersion = %q, want empty", v)
	}
}

func TestLoadLibraryFromMissingPath(t *testing.T) {
	if IsLoaded() {
		t.Skip("shim library is loaded")
	}
	err := LoadLibraryFrom("/nonexistent/libcapture_shim.so")
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("LoadLibraryFrom err = %v, want ErrLibraryNotFound", err)
	}
	if IsLoaded() {
		t.Fatal("library reported loaded after failed load")
	}
}
