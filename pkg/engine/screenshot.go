package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/thesyncim/libgocapture/pkg/frame"
)

// DefaultScreenshotInterval paces the screenshot engine when no custom interval is set.
const DefaultScreenshotInterval = time.Second / 60

// Screenshot is a polling engine built on OS screenshot APIs.
//
// It captures monitors on every platform supported by kbinani/screenshot and
// windows on Windows. Cursor, border and dirty-region toggles cannot be honored
// by screen grabs and are ignored.
type Screenshot struct {
	logger *slog.Logger

	numDisplays   func() int
	displayBounds func(int) image.Rectangle
	captureRect   func(image.Rectangle) (*image.RGBA, error)
	listWindows   func() ([]Window, error)
	windowAlive   func(uintptr) bool
	windowRect    func(uintptr) (image.Rectangle, error)

	warnOnce sync.Once
}

// NewScreenshot returns a screenshot engine. A nil logger uses slog.Default().
func NewScreenshot(logger *slog.Logger) *Screenshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Screenshot{
		logger:        logger,
		numDisplays:   screenshot.NumActiveDisplays,
		displayBounds: screenshot.GetDisplayBounds,
		captureRect:   screenshot.CaptureRect,
		listWindows:   enumerateWindows,
		windowAlive:   isWindow,
		windowRect:    windowBounds,
	}
}

// Monitors implements Engine.
func (s *Screenshot) Monitors() ([]Monitor, error) {
	n := s.numDisplays()
	out := make([]Monitor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Monitor{
			Index:  i + 1,
			Name:   fmt.Sprintf("display%d", i),
			Bounds: s.displayBounds(i),
		})
	}
	return out, nil
}

// Windows implements Engine.
func (s *Screenshot) Windows() ([]Window, error) {
	return s.listWindows()
}

// Run implements Engine.
func (s *Screenshot) Run(ctx context.Context, src Source, settings Settings, h Handler) error {
	bounds, err := s.boundsFor(src)
	if err != nil {
		return &InitError{Err: err}
	}

	s.warnOnce.Do(func() {
		if settings.CursorCapture != CursorCaptureDefault ||
			settings.DrawBorder != DrawBorderDefault ||
			settings.DirtyRegion != DirtyRegionDefault {
			s.logger.Debug("engine.screenshot.settings_ignored", "settings", settings.String())
		}
	})

	interval := DefaultScreenshotInterval
	if d, ok := settings.UpdateInterval.Custom(); ok && d > 0 {
		interval = d
	}

	pool := frame.NewPool(2)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	first := true
	next := func(ctx context.Context) (*frame.Frame, error) {
		if !first {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}
		first = false

		r, err := bounds()
		if err != nil {
			return nil, err
		}
		if r.Empty() {
			// Minimized windows have no area; wait for the next tick.
			return nil, nil
		}
		img, err := s.captureRect(r)
		if err != nil {
			return nil, fmt.Errorf("engine: screenshot %v: %w", r, err)
		}
		return pool.FromRGBA(img, time.Since(start)), nil
	}

	return Drive(ctx, h, next)
}

func (s *Screenshot) boundsFor(src Source) (func() (image.Rectangle, error), error) {
	switch v := src.(type) {
	case Monitor:
		n := s.numDisplays()
		if v.Index < 1 || v.Index > n {
			return nil, fmt.Errorf("%w: monitor index %d out of range [1, %d]", ErrInvalidSource, v.Index, n)
		}
		r := s.displayBounds(v.Index - 1)
		return func() (image.Rectangle, error) { return r, nil }, nil
	case Window:
		if !s.windowAlive(v.Handle) {
			return nil, fmt.Errorf("%w: window handle %#x is not a window", ErrInvalidSource, v.Handle)
		}
		return func() (image.Rectangle, error) {
			if !s.windowAlive(v.Handle) {
				return image.Rectangle{}, ErrClosed
			}
			return s.windowRect(v.Handle)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidSource, src)
	}
}
