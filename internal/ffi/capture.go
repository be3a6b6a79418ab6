package ffi

import (
	"fmt"
	"image"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"
)

// MonitorInfo describes a monitor enumerated by the shim.
type MonitorInfo struct {
	Handle uintptr
	Name   string
	Bounds image.Rectangle
}

// WindowInfo describes a window enumerated by the shim.
type WindowInfo struct {
	Handle uintptr
	Title  string
}

// CaptureParams configures one shim capture session.
// Setting values follow the shim enums: 0 = default, 1 = on, 2 = off.
type CaptureParams struct {
	Window            bool
	Handle            uintptr
	CursorCapture     int32
	DrawBorder        int32
	SecondaryWindows  int32
	DirtyRegion       int32
	MinUpdateInterval time.Duration // 0 = engine default
}

// FrameHandler receives one frame. buf aliases shim memory and is only valid
// until the handler returns. Returning stop=true ends the capture loop.
type FrameHandler func(buf []byte, width, height uint32, timestamp int64) (stop bool, err error)

// ClosedHandler is called once when the capture loop has ended.
type ClosedHandler func() error

// Frame callback results returned to the shim.
const (
	frameContinue uintptr = 0
	frameStop     uintptr = 1
	frameFailed           = ^uintptr(0) // -1
)

const (
	closedOK     uintptr = 0
	closedFailed         = ^uintptr(0)
)

// PanicError reports a panic recovered inside a shim callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in capture callback: %v", e.Value)
}

// CaptureSession is one run of the shim capture loop.
type CaptureSession struct {
	id       uintptr
	params   CaptureParams
	onFrame  FrameHandler
	onClosed ClosedHandler

	mu      sync.Mutex
	running bool
	done    bool

	stopRequested atomic.Bool
	closed        atomic.Bool
	frames        atomic.Uint64

	// err is the first callback failure. Only touched from shim callbacks,
	// which the shim serializes, and read after shimCaptureRun returns.
	err error
}

// Global session registry for mapping shim callbacks to Go sessions.
// Needed because purego callbacks can't capture closure state directly.
var (
	sessionRegistry   = make(map[uintptr]*CaptureSession)
	sessionRegistryMu sync.RWMutex
	nextSessionID     atomic.Uintptr

	// purego callback function pointers (must be kept alive)
	callbacksOnce     sync.Once
	frameCallbackPtr  uintptr
	closedCallbackPtr uintptr
)

// Typed entry points over the raw shim symbols. Go memory is converted to
// addresses only here, in the call expression.
var (
	enumerateMonitors = func(out []shimMonitorInfo, count *int32) int32 {
		return shimCaptureEnumerateMonitors(uintptr(unsafe.Pointer(&out[0])), int32(len(out)), Int32Ptr(count))
	}
	enumerateWindows = func(out []shimWindowInfo, count *int32) int32 {
		return shimCaptureEnumerateWindows(uintptr(unsafe.Pointer(&out[0])), int32(len(out)), Int32Ptr(count))
	}
	runCapture = func(params *shimCaptureParams) int32 {
		result := shimCaptureRun(params.Ptr())
		// Keep params alive until after the FFI call completes
		runtime.KeepAlive(params)
		return result
	}
)

// EnumerateMonitors returns the monitors known to the shim, in shim order.
func EnumerateMonitors() ([]MonitorInfo, error) {
	if !libLoaded.Load() {
		return nil, ErrLibraryNotLoaded
	}

	const maxMonitors = 64
	monitors := make([]shimMonitorInfo, maxMonitors)
	var count int32

	result := enumerateMonitors(monitors, &count)
	if err := ShimError(result); err != nil {
		return nil, err
	}

	out := make([]MonitorInfo, count)
	for i := int32(0); i < count; i++ {
		m := monitors[i]
		out[i] = MonitorInfo{
			Handle: m.handle,
			Name:   CStringToGo(m.name[:]),
			Bounds: image.Rect(int(m.left), int(m.top), int(m.right), int(m.bottom)),
		}
	}
	return out, nil
}

// EnumerateWindows returns the capturable windows known to the shim, in shim order.
func EnumerateWindows() ([]WindowInfo, error) {
	if !libLoaded.Load() {
		return nil, ErrLibraryNotLoaded
	}

	const maxWindows = 1024
	windows := make([]shimWindowInfo, maxWindows)
	var count int32

	result := enumerateWindows(windows, &count)
	if err := ShimError(result); err != nil {
		return nil, err
	}

	out := make([]WindowInfo, count)
	for i := int32(0); i < count; i++ {
		out[i] = WindowInfo{
			Handle: windows[i].handle,
			Title:  CStringToGo(windows[i].title[:]),
		}
	}
	return out, nil
}

// NewCaptureSession prepares a capture session. Nothing runs until Run.
func NewCaptureSession(params CaptureParams, onFrame FrameHandler, onClosed ClosedHandler) (*CaptureSession, error) {
	if !libLoaded.Load() {
		return nil, ErrLibraryNotLoaded
	}
	if onFrame == nil || onClosed == nil {
		return nil, fmt.Errorf("%w: nil capture handler", ErrInvalidParam)
	}
	return &CaptureSession{
		id:       nextSessionID.Add(1),
		params:   params,
		onFrame:  onFrame,
		onClosed: onClosed,
	}, nil
}

func initCallbacks() {
	callbacksOnce.Do(func() {
		frameCallbackPtr = purego.NewCallback(captureFrameBridge)
		closedCallbackPtr = purego.NewCallback(captureClosedBridge)
	})
}

// Run executes the shim capture loop on the calling goroutine and blocks until
// it ends. The first callback failure takes precedence over the shim result.
func (s *CaptureSession) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	if s.done {
		s.mu.Unlock()
		return ErrSessionFinished
	}
	s.running = true
	s.mu.Unlock()

	sessionRegistryMu.Lock()
	sessionRegistry[s.id] = s
	sessionRegistryMu.Unlock()

	defer func() {
		sessionRegistryMu.Lock()
		delete(sessionRegistry, s.id)
		sessionRegistryMu.Unlock()

		s.mu.Lock()
		s.running = false
		s.done = true
		s.mu.Unlock()
	}()

	initCallbacks()

	result := runCapture(s.rawParams())

	if s.err != nil {
		return s.err
	}
	return ShimError(result)
}

// Stop requests the capture loop to end. It never blocks.
func (s *CaptureSession) Stop() {
	s.stopRequested.Store(true)

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if running && libLoaded.Load() {
		shimCaptureRequestStop(s.id)
	}
}

// ClosedInvoked reports whether the shim delivered the closed notification.
func (s *CaptureSession) ClosedInvoked() bool {
	return s.closed.Load()
}

// Frames reports how many frames were delivered to the frame handler.
func (s *CaptureSession) Frames() uint64 {
	return s.frames.Load()
}

func (s *CaptureSession) rawParams() *shimCaptureParams {
	kind := itemKindMonitor
	if s.params.Window {
		kind = itemKindWindow
	}
	return &shimCaptureParams{
		ItemKind:            kind,
		ItemHandle:          s.params.Handle,
		CursorCapture:       s.params.CursorCapture,
		DrawBorder:          s.params.DrawBorder,
		SecondaryWindows:    s.params.SecondaryWindows,
		DirtyRegion:         s.params.DirtyRegion,
		MinUpdateIntervalUs: s.params.MinUpdateInterval.Microseconds(),
		ColorFormat:         colorFormatBGRA8,
		FrameCallback:       frameCallbackPtr,
		ClosedCallback:      closedCallbackPtr,
		Ctx:                 s.id,
	}
}

func (s *CaptureSession) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func lookupSession(ctx uintptr) *CaptureSession {
	sessionRegistryMu.RLock()
	defer sessionRegistryMu.RUnlock()
	return sessionRegistry[ctx]
}

// safeCall runs fn and converts a panic into an error. Panics must never
// unwind into shim frames.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// captureFrameBridge is the C-callable frame callback that dispatches to Go.
// All arguments are uintptr-sized so the same signature works with the
// Windows callback ABI.
func captureFrameBridge(ctx, buf, length, width, height, timestamp uintptr) uintptr {
	s := lookupSession(ctx)
	if s == nil {
		return frameFailed
	}

	var view []byte
	var mapErr error
	switch {
	case buf == 0 && length != 0:
		mapErr = ErrFrameMapFailed
	case length > 0:
		// buf is shim memory, never the Go heap.
		view = unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(length))
	}
	return s.deliverFrame(view, mapErr, uint32(width), uint32(height), int64(timestamp))
}

// deliverFrame runs the frame handler for one mapped frame and returns the
// result code for the shim.
func (s *CaptureSession) deliverFrame(view []byte, mapErr error, width, height uint32, timestamp int64) uintptr {
	if s.err != nil {
		return frameFailed
	}
	if s.stopRequested.Load() {
		return frameStop
	}
	if mapErr != nil {
		s.fail(mapErr)
		return frameFailed
	}

	var stop bool
	err := safeCall(func() error {
		var err error
		stop, err = s.onFrame(view, width, height, timestamp)
		return err
	})
	s.frames.Add(1)
	if err != nil {
		s.fail(err)
		return frameFailed
	}
	if stop {
		s.stopRequested.Store(true)
		return frameStop
	}
	return frameContinue
}

// captureClosedBridge is the C-callable closed callback that dispatches to Go.
func captureClosedBridge(ctx uintptr) uintptr {
	s := lookupSession(ctx)
	if s == nil {
		return closedFailed
	}
	if s.closed.Swap(true) {
		// The shim must only close once; ignore repeats.
		return closedOK
	}
	if err := safeCall(s.onClosed); err != nil {
		s.fail(err)
		return closedFailed
	}
	return closedOK
}
