package app

import (
	"context"
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrPreviewClosed is returned by Next after Close.
var ErrPreviewClosed = errors.New("preview closed")

// Preview holds the latest composited frame as JPEG for the MJPEG stream.
type Preview struct {
	mu       sync.Mutex
	jpeg     []byte
	seq      uint64
	changed  chan struct{}
	watchers int
	closed   bool
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{changed: make(chan struct{})}
}

// Watching reports whether anyone is waiting for frames. Encoding is
// skipped while nobody watches.
func (p *Preview) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watchers > 0
}

// Watch registers a viewer and returns the function that unregisters it.
func (p *Preview) Watch() func() {
	p.mu.Lock()
	p.watchers++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.watchers--
			p.mu.Unlock()
		})
	}
}

// Update encodes img as JPEG and publishes it.
func (p *Preview) Update(img *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return err
	}
	defer buf.Close()

	p.Set(append([]byte(nil), buf.GetBytes()...))
	return nil
}

// Set publishes an already encoded frame.
func (p *Preview) Set(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.jpeg = jpeg
	p.seq++
	close(p.changed)
	p.changed = make(chan struct{})
}

// Latest returns the last frame and its version, nil before the first.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Next blocks until a frame newer than version after is available.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, 0, ErrPreviewClosed
		}
		if p.jpeg != nil && p.seq > after {
			jpeg, seq := p.jpeg, p.seq
			p.mu.Unlock()
			return jpeg, seq, nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-changed:
		}
	}
}

// Close wakes every waiter with ErrPreviewClosed.
func (p *Preview) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.changed)
}
