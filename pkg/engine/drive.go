package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/thesyncim/libgocapture/pkg/frame"
)

// FrameSource produces the next frame for Drive. It returns ErrClosed when the
// captured item is gone, or ctx.Err() when ctx was cancelled while waiting.
type FrameSource func(ctx context.Context) (*frame.Frame, error)

// StopFlag is a Control backed by an atomic flag.
type StopFlag struct {
	stopped atomic.Bool
}

// Stop implements Control.
func (s *StopFlag) Stop() { s.stopped.Store(true) }

// Stopped reports whether Stop was called.
func (s *StopFlag) Stopped() bool { return s.stopped.Load() }

// Drive runs the capture loop for pull-based engines: it feeds frames from
// next to h until the source closes, h stops the loop, ctx is cancelled, or h
// fails. OnClosed is then called exactly once.
//
// The returned error is the first OnFrame failure or source failure; a
// closed-callback failure is returned only when nothing failed before it.
func Drive(ctx context.Context, h Handler, next FrameSource) error {
	ctl := &StopFlag{}

	var runErr error
	for !ctl.Stopped() && ctx.Err() == nil {
		f, err := next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
				break
			}
			runErr = err
			break
		}
		if f == nil {
			continue
		}

		err = h.OnFrame(f, ctl)
		f.Release()
		if err != nil {
			runErr = err
			break
		}
	}

	closeErr := h.OnClosed()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
