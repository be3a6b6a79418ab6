package capture

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thesyncim/libgocapture/internal/testutil"
	"github.com/thesyncim/libgocapture/pkg/engine"
	"github.com/thesyncim/libgocapture/pkg/host"
)

func TestWaitTwice(t *testing.T) {
	eng := testutil.NewEngine(1, 2)
	c, _ := newTestCapture(t, eng, &recorder{}, Options{})

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if err := waitDone(t, func() error { return ctl.Wait(nil) }); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := ctl.Wait(nil); err != nil {
		t.Errorf("second Wait: %v", err)
	}
	if err := ctl.Stop(nil); err != nil {
		t.Errorf("Stop after Wait: %v", err)
	}
}

func TestIsFinishedTracksSession(t *testing.T) {
	eng := testutil.NewEngine(1, -1)
	release := make(chan struct{})
	rec := &recorder{}
	rec.onFrame = func(FrameView) { <-release }
	c, _ := newTestCapture(t, eng, rec, Options{})

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if ctl.IsFinished() {
		t.Error("IsFinished = true while the session is running")
	}

	close(release)
	if err := waitDone(t, func() error { return ctl.Stop(nil) }); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !ctl.IsFinished() {
		t.Error("IsFinished = false after Stop")
	}
	if rec.closed != 1 {
		t.Errorf("closed = %d, want 1", rec.closed)
	}
}

// A caller holding the execution lock must not starve the session goroutine,
// which needs the lock for every callback.
func TestWaitReleasesExecutionLock(t *testing.T) {
	eng := testutil.NewEngine(1, -1)
	rec := &recorder{stopAt: 3}
	c, rt := newTestCapture(t, eng, rec, Options{})

	tok := rt.Acquire()
	defer tok.Release()

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if err := waitDone(t, func() error { return ctl.Wait(tok) }); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !tok.Held() {
		t.Error("token not re-acquired after Wait")
	}
	if len(rec.frames) != 3 || rec.closed != 1 {
		t.Errorf("frames = %d closed = %d, want 3 and 1", len(rec.frames), rec.closed)
	}
}

func TestStopReleasesExecutionLock(t *testing.T) {
	eng := testutil.NewEngine(1, -1)
	eng.Interval = time.Millisecond
	rec := &recorder{}
	c, rt := newTestCapture(t, eng, rec, Options{})

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	// Let a few frames through before taking the lock.
	deadline := time.Now().Add(5 * time.Second)
	for rec.frameCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	tok := rt.Acquire()
	defer tok.Release()
	if err := waitDone(t, func() error { return ctl.Stop(tok) }); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !tok.Held() {
		t.Error("token not re-acquired after Stop")
	}
	if rec.closed != 1 {
		t.Errorf("closed = %d, want 1", rec.closed)
	}
}

func TestConcurrentWaitJoinsOnce(t *testing.T) {
	boom := errors.New("boom")
	eng := testutil.NewEngine(1, -1)
	eng.Interval = time.Millisecond
	rec := &recorder{failAt: 5, frameErr: boom}
	c, _ := newTestCapture(t, eng, rec, Options{})

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}

	const waiters = 8
	errs := make([]error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ctl.Wait(nil)
		}(i)
	}
	_ = waitDone(t, func() error { wg.Wait(); return nil })

	var joined int
	for _, err := range errs {
		if err != nil {
			var je *JoinError
			if !errors.As(err, &je) || !errors.Is(err, boom) {
				t.Errorf("Wait err = %v, want *JoinError(boom)", err)
			}
			joined++
		}
	}
	if joined != 1 {
		t.Errorf("session error reported %d times, want 1", joined)
	}
}

func TestNilTokenWait(t *testing.T) {
	var tok *host.Token
	eng := testutil.NewEngine(1, 1)
	c, _ := newTestCapture(t, eng, &recorder{}, Options{})

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if err := waitDone(t, func() error { return ctl.Wait(tok) }); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// syncBuffer is a log sink safe for the session goroutine and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLoggedCapture(t *testing.T, eng engine.Engine, rt *host.Runtime, out *syncBuffer) *Capture {
	t.Helper()
	rec := &recorder{}
	c, err := New(eng, rec.callbacks(rt), Options{Logger: slog.New(slog.NewTextHandler(out, nil))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestWaitWithoutTokenWarnsWhenLockBusy(t *testing.T) {
	eng := testutil.NewEngine(1, 1)
	rt := host.New()
	var logs syncBuffer
	c := newLoggedCapture(t, eng, rt, &logs)

	// The lock holder forgets to pass its token, so the session cannot
	// deliver its frame until the lock is given up.
	tok := rt.Acquire()
	ctl, err := c.StartDetached()
	if err != nil {
		tok.Release()
		t.Fatalf("StartDetached: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- ctl.Wait(nil) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(logs.String(), "capture.control.wait_without_token") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	tok.Release()

	if !strings.Contains(logs.String(), "capture.control.wait_without_token") {
		t.Error("no warning logged for Wait without the held token")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Wait did not return after the lock was released")
	}
}

func TestWaitWithoutTokenQuietWhenLockFree(t *testing.T) {
	eng := testutil.NewEngine(1, 1)
	eng.StartErr = errors.New("no device")
	rt := host.New()
	var logs syncBuffer
	c := newLoggedCapture(t, eng, rt, &logs)

	ctl, err := c.StartDetached()
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	var se *SessionStartError
	if err := waitDone(t, func() error { return ctl.Wait(nil) }); !errors.As(err, &se) {
		t.Errorf("Wait err = %v, want *SessionStartError", err)
	}
	if strings.Contains(logs.String(), "capture.control.wait_without_token") {
		t.Error("warning logged although the lock was free")
	}
}
