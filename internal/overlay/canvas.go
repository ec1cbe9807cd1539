// Package overlay draws detected hand landmarks onto a transparent canvas
// that sits over the camera preview.
package overlay

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/detector"
)

// Canvas is the overlay surface. Its backing buffer (BGRA) follows the
// video's intrinsic size; its display size follows the on-screen video box.
type Canvas struct {
	mu      sync.Mutex
	buf     gocv.Mat
	display image.Point
	hand    *detector.LandmarkFrame
	closed  bool
}

// NewCanvas creates an empty canvas with no backing buffer.
func NewCanvas() *Canvas {
	return &Canvas{buf: gocv.NewMat()}
}

// Size is the backing buffer size in pixels.
func (c *Canvas) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size()
}

func (c *Canvas) size() image.Point {
	if c.closed || c.buf.Empty() {
		return image.Point{}
	}
	return image.Point{X: c.buf.Cols(), Y: c.buf.Rows()}
}

// DisplaySize is the on-screen box the canvas is stretched to.
func (c *Canvas) DisplaySize() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Hand returns the hand drawn by the last render, nil when the canvas is clear.
func (c *Canvas) Hand() *detector.LandmarkFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hand
}

// Clear erases the canvas without changing its size.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *Canvas) clear() {
	c.hand = nil
	if !c.closed && !c.buf.Empty() {
		c.buf.SetTo(gocv.NewScalar(0, 0, 0, 0))
	}
}

// resize must be called with c.mu held. It reports whether the buffer changed.
func (c *Canvas) resize(size image.Point) bool {
	if c.closed || size.X <= 0 || size.Y <= 0 || c.size() == size {
		return false
	}
	c.buf.Close()
	c.buf = gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC4)
	c.buf.SetTo(gocv.NewScalar(0, 0, 0, 0))
	return true
}

// Close releases the backing buffer. Drawing on a closed canvas does nothing.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.hand = nil
	return c.buf.Close()
}

// drawable must be called with c.mu held.
func (c *Canvas) drawable() bool {
	return !c.closed && !c.buf.Empty()
}
