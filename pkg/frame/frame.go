// Package frame provides the borrowed BGRA frame view handed out by capture engines.
package frame

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

// BytesPerPixel is the size of one BGRA8 pixel.
const BytesPerPixel = 4

var (
	// ErrReleased is returned by Buffer once the engine has reclaimed the frame.
	ErrReleased = errors.New("frame: buffer already released")

	// ErrInvalid is returned by Buffer when the buffer does not match the frame geometry.
	ErrInvalid = errors.New("frame: invalid buffer")
)

// PixelFormat represents the pixel format of a captured frame.
type PixelFormat int

const (
	// PixelFormatBGRA is 32-bit BGRA, row-major, tightly packed.
	// It is the only format engines deliver.
	PixelFormatBGRA PixelFormat = iota
)

// String returns the string representation of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRA:
		return "BGRA8"
	default:
		return "Unknown"
	}
}

// Frame is a transient view of one captured frame.
//
// The pixel buffer is owned by the engine. It is valid only until Release is
// called, which engines do as soon as the frame handler returns. Callers that
// need the pixels afterwards must copy them.
type Frame struct {
	width     uint32
	height    uint32
	timestamp time.Duration
	data      []byte
	released  bool

	// pool is the pool the buffer is returned to on Release (may be nil).
	pool *Pool
}

// New wraps data as a frame. The frame does not copy data.
func New(width, height uint32, timestamp time.Duration, data []byte) *Frame {
	return &Frame{width: width, height: height, timestamp: timestamp, data: data}
}

// Width of the frame in pixels.
func (f *Frame) Width() uint32 { return f.width }

// Height of the frame in pixels.
func (f *Frame) Height() uint32 { return f.height }

// Timestamp is engine-relative and monotonic. It is not wall-clock time.
func (f *Frame) Timestamp() time.Duration { return f.timestamp }

// Format always reports PixelFormatBGRA.
func (f *Frame) Format() PixelFormat { return PixelFormatBGRA }

// Buffer returns the read-only pixel view.
func (f *Frame) Buffer() ([]byte, error) {
	if f.released {
		return nil, ErrReleased
	}
	want := int(f.width) * int(f.height) * BytesPerPixel
	if len(f.data) != want {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, have %d", ErrInvalid, f.width, f.height, want, len(f.data))
	}
	return f.data, nil
}

// Release invalidates the view and hands the buffer back to its pool.
// Calling Release more than once is a no-op.
func (f *Frame) Release() {
	if f.released {
		return
	}
	f.released = true
	data := f.data
	f.data = nil
	if f.pool != nil {
		f.pool.put(data)
	}
}

// Pool recycles frame buffers between captures to reduce allocations.
type Pool struct {
	mu      sync.Mutex
	bufs    [][]byte
	maxSize int
}

// NewPool creates a pool that keeps at most size idle buffers.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{maxSize: size, bufs: make([][]byte, 0, size)}
}

// Get returns a frame with a buffer sized for width x height BGRA pixels.
// The buffer contents are unspecified.
func (p *Pool) Get(width, height uint32, timestamp time.Duration) *Frame {
	n := int(width) * int(height) * BytesPerPixel

	p.mu.Lock()
	var buf []byte
	for i := len(p.bufs) - 1; i >= 0; i-- {
		if cap(p.bufs[i]) >= n {
			buf = p.bufs[i][:n]
			p.bufs = append(p.bufs[:i], p.bufs[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	if buf == nil {
		buf = make([]byte, n)
	}
	return &Frame{width: width, height: height, timestamp: timestamp, data: buf, pool: p}
}

// Idle reports how many buffers are waiting for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bufs)
}

func (p *Pool) put(buf []byte) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bufs) < p.maxSize {
		p.bufs = append(p.bufs, buf)
	}
	// Otherwise let GC handle it
}

// FromRGBA fills a pooled frame with the pixels of img swizzled to BGRA.
// Alpha is forced opaque.
func (p *Pool) FromRGBA(img *image.RGBA, timestamp time.Duration) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := p.Get(uint32(w), uint32(h), timestamp)
	dst := f.data
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*BytesPerPixel]
		out := dst[y*w*BytesPerPixel : (y+1)*w*BytesPerPixel]
		for i := 0; i < len(row); i += BytesPerPixel {
			out[i+0] = row[i+2]
			out[i+1] = row[i+1]
			out[i+2] = row[i+0]
			out[i+3] = 0xFF
		}
	}
	return f
}
