// Package host models the runtime that owns the frame and closed callbacks.
//
// A host runtime serializes every call into its code behind a single
// execution lock. Callers obtain a Token immediately before invoking a
// Callable and release it immediately afterwards. Code that is about to block
// on another goroutine which may itself need the lock must Suspend its token
// for the duration of the wait.
package host

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// ErrInterrupted is returned by CheckInterrupt when an interrupt is pending.
var ErrInterrupted = errors.New("host: interrupt requested")

// Runtime owns one execution lock and one pending-interrupt flag.
// The zero value is ready to use.
type Runtime struct {
	mu          sync.Mutex
	interrupted atomic.Bool
}

var defaultRuntime = &Runtime{}

// Default returns the process-wide runtime.
func Default() *Runtime {
	return defaultRuntime
}

// New returns a runtime with its own execution lock. Mostly useful in tests
// that must not contend on the process-wide lock.
func New() *Runtime {
	return &Runtime{}
}

// Acquire blocks until the execution lock is held and returns the token
// representing that hold.
func (r *Runtime) Acquire() *Token {
	r.mu.Lock()
	return &Token{rt: r, held: true}
}

// TryAcquire acquires the execution lock only if it is free.
func (r *Runtime) TryAcquire() (*Token, bool) {
	if !r.mu.TryLock() {
		return nil, false
	}
	return &Token{rt: r, held: true}, true
}

// Interrupt marks an interrupt as pending. The next CheckInterrupt consumes it.
func (r *Runtime) Interrupt() {
	r.interrupted.Store(true)
}

// CheckInterrupt reports and clears a pending interrupt.
// Callers are expected to hold the execution lock.
func (r *Runtime) CheckInterrupt() error {
	if r.interrupted.Swap(false) {
		return ErrInterrupted
	}
	return nil
}

// NotifySignals routes the given OS signals into Interrupt until the returned
// function is called.
func (r *Runtime) NotifySignals(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				r.Interrupt()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Token is one hold of a runtime's execution lock.
// A Token must not be shared between goroutines.
type Token struct {
	rt   *Runtime
	held bool
}

// Held reports whether the token still holds the lock.
// A nil token never holds it.
func (t *Token) Held() bool {
	return t != nil && t.held
}

// Release gives up the lock. Releasing twice is a no-op.
func (t *Token) Release() {
	if t == nil || !t.held {
		return
	}
	t.held = false
	t.rt.mu.Unlock()
}

// Suspend releases the lock while fn runs and re-acquires it afterwards.
// A nil or released token runs fn directly.
func (t *Token) Suspend(fn func()) {
	if !t.Held() {
		fn()
		return
	}
	t.Release()
	defer func() {
		t.rt.mu.Lock()
		t.held = true
	}()
	fn()
}
