package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDevices hands out MockStreams that play back pre-recorded frames.
type MockDevices struct {
	mu      sync.Mutex
	frames  []*gocv.Mat
	loop    bool
	err     error
	gate    chan struct{}
	streams []*MockStream
}

// NewMockDevices creates MockDevices playing frames, optionally looping.
func NewMockDevices(frames []*gocv.Mat, loop bool) *MockDevices {
	return &MockDevices{frames: frames, loop: loop}
}

// SetError makes subsequent acquisitions fail with err.
func (d *MockDevices) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Hold makes subsequent acquisitions block until Release is called or
// their context ends, like a permission prompt left unanswered.
func (d *MockDevices) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
}

// Release unblocks held acquisitions.
func (d *MockDevices) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
}

// Acquire returns a new MockStream.
func (d *MockDevices) Acquire(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	s := &MockStream{frames: d.frames, loop: d.loop}
	s.track = &MockTrack{id: fmt.Sprintf("mock-%d", len(d.streams))}
	d.streams = append(d.streams, s)
	return s, nil
}

// Streams returns every stream handed out so far.
func (d *MockDevices) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockStream(nil), d.streams...)
}

// MockStream plays back frames until its track is stopped.
type MockStream struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	index  int
	loop   bool
	size   image.Point
	track  *MockTrack
}

// Tracks returns the stream's single video track.
func (s *MockStream) Tracks() []Track {
	return []Track{s.track}
}

// Track returns the concrete track for assertions.
func (s *MockStream) Track() *MockTrack {
	return s.track
}

// ReadFrame clones the next frame so the originals are never modified.
func (s *MockStream) ReadFrame() (*gocv.Mat, error) {
	if s.track.Stopped() {
		return nil, ErrCameraNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil, errors.New("no frames available")
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, errors.New("no more frames")
		}
		s.index = 0
	}

	frame := s.frames[s.index].Clone()
	s.index++
	s.size = image.Point{X: frame.Cols(), Y: frame.Rows()}

	return &frame, nil
}

// Size returns the size of the last frame read.
func (s *MockStream) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// MockTrack records whether it was stopped.
type MockTrack struct {
	id   string
	mu   sync.Mutex
	done bool
}

func (t *MockTrack) ID() string   { return t.id }
func (t *MockTrack) Kind() string { return "video" }

func (t *MockTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

func (t *MockTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// SyntheticFrames builds n BGR frames of the given size with a distinct
// brightness each, for feeding MockDevices. The caller closes them.
func SyntheticFrames(n int, size image.Point) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC3)
		v := float64(32 + (i*16)%224)
		m.SetTo(gocv.NewScalar(v, v, v, 0))
		frames = append(frames, &m)
	}
	return frames
}

// CloseFrames closes every frame.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
