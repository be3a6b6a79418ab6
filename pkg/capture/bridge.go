package capture

import (
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/thesyncim/libgocapture/pkg/engine"
	"github.com/thesyncim/libgocapture/pkg/frame"
	"github.com/thesyncim/libgocapture/pkg/host"
)

// bridge relays engine callbacks into the host callables of one session.
//
// The engine serializes OnFrame calls and calls OnClosed after the last one,
// so fatal and closedErr need no locking; result reads them after Run returns.
type bridge struct {
	cbs    CallbackSet
	rt     *host.Runtime
	logger *slog.Logger

	frames atomic.Uint64

	fatal     error
	closedErr error
}

var _ engine.Handler = (*bridge)(nil)

func newBridge(cbs CallbackSet, rt *host.Runtime, logger *slog.Logger) *bridge {
	return &bridge{cbs: cbs, rt: rt, logger: logger}
}

// OnFrame implements engine.Handler.
func (b *bridge) OnFrame(f *frame.Frame, ctl engine.Control) error {
	buf, err := f.Buffer()
	if err != nil {
		return b.fail(&FrameError{Err: err})
	}

	tok := b.rt.Acquire()
	defer tok.Release()

	if err := b.rt.CheckInterrupt(); err != nil {
		return b.fail(&InterruptError{Err: err})
	}

	var ptr uintptr
	if len(buf) > 0 {
		ptr = uintptr(unsafe.Pointer(&buf[0]))
	}
	stop := &StopSignal{pixels: buf}
	err = host.Invoke(b.cbs.OnFrame, ptr, len(buf), f.Width(), f.Height(), stop, f.Timestamp())
	stop.pixels = nil
	runtime.KeepAlive(buf)
	if err != nil {
		return b.fail(&CallbackError{Callback: CallbackOnFrame, Err: err})
	}
	b.frames.Add(1)

	if stop.Requested() {
		b.logger.Debug("capture.frame.stop_requested", "frames", b.frames.Load())
		ctl.Stop()
	}
	return nil
}

// OnClosed implements engine.Handler.
func (b *bridge) OnClosed() error {
	tok := b.rt.Acquire()
	err := host.Invoke(b.cbs.OnClosed)
	tok.Release()

	if err != nil {
		b.closedErr = &CallbackError{Callback: CallbackOnClosed, Err: err}
		return b.closedErr
	}
	return nil
}

func (b *bridge) fail(err error) error {
	if b.fatal == nil {
		b.fatal = err
	}
	return err
}

// result maps the engine's return value to the session's terminal error.
// The first fatal error wins; a closed-callback failure after it is joined
// behind it, and a closed-callback failure alone is returned as is.
func (b *bridge) result(runErr error) error {
	var initErr *engine.InitError
	if errors.As(runErr, &initErr) {
		return &SessionStartError{Err: runErr}
	}

	first := b.fatal
	if first == nil && runErr != nil && !errors.Is(runErr, b.closedErr) {
		first = runErr
	}

	switch {
	case first != nil && b.closedErr != nil:
		b.logger.Warn("capture.closed_callback.failed", "error", b.closedErr, "cause", first)
		return errors.Join(first, b.closedErr)
	case first != nil:
		return first
	default:
		return b.closedErr
	}
}
