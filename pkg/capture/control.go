package capture

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/thesyncim/libgocapture/pkg/host"
)

// Control is the caller's handle on a detached session.
//
// The session can be joined once. The first Wait or Stop blocks until the
// session goroutine has finished and reports its error; every later call
// returns nil immediately.
type Control struct {
	cancel context.CancelFunc
	done   chan struct{}
	armed  atomic.Bool
	rt     *host.Runtime
	logger *slog.Logger

	// err is written once before done is closed.
	err error
}

func newControl(cancel context.CancelFunc, rt *host.Runtime, logger *slog.Logger) *Control {
	c := &Control{cancel: cancel, done: make(chan struct{}), rt: rt, logger: logger}
	c.armed.Store(true)
	return c
}

func (c *Control) finish(err error) {
	c.err = err
	close(c.done)
}

// IsFinished reports whether the session goroutine has completed. It never
// blocks.
func (c *Control) IsFinished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the session ends. If tok holds the execution lock it is
// released while waiting and re-acquired before Wait returns. A nil tok means
// the caller holds no lock. If the lock is busy when Wait is called without a
// held token, a warning is logged: a caller that holds the lock but did not
// pass its token blocks the session forever.
//
// The error that ended the session is returned wrapped in *JoinError.
func (c *Control) Wait(tok *host.Token) error {
	if !c.armed.CompareAndSwap(true, false) {
		return nil
	}

	if !tok.Held() && !c.IsFinished() {
		if t, ok := c.rt.TryAcquire(); ok {
			t.Release()
		} else {
			c.logger.Warn("capture.control.wait_without_token",
				"detail", "execution lock is held; pass the holder's token to Wait or Stop")
		}
	}

	tok.Suspend(func() { <-c.done })

	if c.err != nil {
		return &JoinError{Err: c.err}
	}
	return nil
}

// Stop asks the session to end after the current frame, then waits like Wait.
func (c *Control) Stop(tok *host.Token) error {
	c.cancel()
	return c.Wait(tok)
}
