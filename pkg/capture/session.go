// Package capture runs capture sessions against an engine and relays frames
// and the closed notification to host callables.
//
// A Capture is built from Options, which resolve to one Target and one
// engine.Settings. Start runs the session on the calling goroutine.
// StartDetached runs it on a dedicated goroutine and returns a Control for
// waiting on or stopping it.
//
// Every host callback runs with the host runtime's execution lock held. A
// goroutine that holds the lock must not call Start, and must pass its token
// to Control.Wait or Control.Stop so the lock is released while it blocks.
package capture

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/thesyncim/libgocapture/pkg/engine"
	"github.com/thesyncim/libgocapture/pkg/host"
)

// Capture is one configured capture session.
type Capture struct {
	eng      engine.Engine
	cbs      CallbackSet
	rt       *host.Runtime
	target   Target
	settings engine.Settings
	logger   *slog.Logger

	started atomic.Bool
}

// New validates opts and prepares a session. Nothing is captured until Start
// or StartDetached.
func New(eng engine.Engine, cbs CallbackSet, opts Options) (*Capture, error) {
	if eng == nil {
		return nil, ErrNilEngine
	}
	if cbs.OnFrame == nil || cbs.OnClosed == nil {
		return nil, ErrNilCallback
	}

	target, settings, err := Resolve(opts)
	if err != nil {
		return nil, err
	}

	rt := cbs.Runtime
	if rt == nil {
		rt = host.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Capture{
		eng:      eng,
		cbs:      cbs,
		rt:       rt,
		target:   target,
		settings: settings,
		logger:   logger,
	}, nil
}

// Target returns the resolved capture target.
func (c *Capture) Target() Target { return c.target }

// Settings returns the resolved engine settings.
func (c *Capture) Settings() engine.Settings { return c.settings }

// Start runs the session on the calling goroutine and returns when it ends.
// Cancelling ctx stops the session cooperatively, which is not an error.
//
// It returns *TargetNotFoundError or *SessionStartError when capture cannot
// begin, otherwise the error that ended the session, if any.
func (c *Capture) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	src, err := c.source()
	if err != nil {
		return err
	}
	return c.run(ctx, src, false)
}

// StartDetached runs the session on a new goroutine and returns once that
// goroutine is running. Target lookup failures are returned directly; engine
// start failures are reported by the first Control.Wait or Control.Stop.
func (c *Capture) StartDetached() (*Control, error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	src, err := c.source()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctl := newControl(cancel, c.rt, c.logger)
	started := make(chan struct{})

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
				c.logger.Error("capture.session.panic", "panic", r)
			}
			cancel()
			ctl.finish(err)
		}()

		// Native capture APIs deliver frames on the thread that started them.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		close(started)
		err = c.run(ctx, src, true)
	}()

	<-started
	return ctl, nil
}

// source looks up the engine item for the resolved target.
func (c *Capture) source() (engine.Source, error) {
	switch t := c.target.(type) {
	case MonitorTarget:
		monitors, err := c.eng.Monitors()
		if err != nil {
			return nil, &TargetNotFoundError{Target: t, Err: err}
		}
		if t.Index < 1 || t.Index > len(monitors) {
			return nil, &TargetNotFoundError{Target: t}
		}
		return monitors[t.Index-1], nil

	case WindowNameTarget:
		windows, err := c.eng.Windows()
		if err != nil {
			return nil, &TargetNotFoundError{Target: t, Err: err}
		}
		// First match in engine enumeration order wins.
		for _, w := range windows {
			if strings.Contains(w.Title, t.Name) {
				return w, nil
			}
		}
		return nil, &TargetNotFoundError{Target: t}

	case WindowHandleTarget:
		// Handles are checked by the engine when capture begins.
		return engine.Window{Handle: t.Handle}, nil

	default:
		return nil, &TargetNotFoundError{Target: t}
	}
}

func (c *Capture) run(ctx context.Context, src engine.Source, detached bool) error {
	logger := c.logger.With(
		slog.String("session_id", uuid.NewString()),
		slog.String("source", src.String()),
	)
	logger.Info("capture.session.start",
		"target", c.target.String(),
		"settings", c.settings.String(),
		"detached", detached,
	)

	b := newBridge(c.cbs, c.rt, logger)
	err := b.result(c.eng.Run(ctx, src, c.settings, b))

	if err != nil {
		logger.Error("capture.session.end", "frames", b.frames.Load(), "error", err)
	} else {
		logger.Info("capture.session.end", "frames", b.frames.Load())
	}
	return err
}
