// Package capture provides camera acquisition and frame scheduling using GoCV (OpenCV).
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a stream whose tracks were stopped.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrPermissionDenied is returned when the OS refuses camera access.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceUnavailable is returned when no usable camera device exists.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
)

// Track is one media track of a live stream. Stopping a track releases the
// hardware behind it; a stopped track cannot be restarted.
type Track interface {
	ID() string
	Kind() string
	Stop()
	Stopped() bool
}

// Stream is a revocable live video stream.
type Stream interface {
	// Tracks enumerates the tracks of the stream.
	Tracks() []Track

	// ReadFrame reads the next frame. The caller is responsible for closing
	// the returned Mat. Returns ErrCameraNotOpen once the tracks are stopped.
	ReadFrame() (*gocv.Mat, error)

	// Size is the intrinsic frame size, zero until the first frame is read.
	Size() image.Point
}

// Devices acquires camera streams. Acquire may block for as long as the
// platform takes to grant access; it returns early when ctx is done.
type Devices interface {
	Acquire(ctx context.Context) (Stream, error)
}

// StopAll stops every track of s. It is safe to call on a nil stream.
func StopAll(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// Config holds capture device settings.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool
}

// DefaultConfig returns a Config for the default device at 640x480.
func DefaultConfig() Config {
	return Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		FPS:    DefaultFPS,
		Mirror: true,
	}
}

type deviceImpl struct {
	config Config
}

// NewDevices returns Devices backed by a local OpenCV video capture device.
// Zero or negative sizes and frame rates fall back to the defaults.
func NewDevices(config Config) Devices {
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	return &deviceImpl{config: config}
}

// Acquire opens the configured device. If ctx ends while the device is
// still opening, the capture is released as soon as it arrives.
func (d *deviceImpl) Acquire(ctx context.Context) (Stream, error) {
	type opened struct {
		capture *gocv.VideoCapture
		err     error
	}

	done := make(chan opened, 1)
	go func() {
		capture, err := gocv.OpenVideoCapture(d.config.DeviceID)
		done <- opened{capture: capture, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if o := <-done; o.capture != nil {
				o.capture.Close()
			}
		}()
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return nil, classifyOpenError(d.config.DeviceID, o.err)
		}
		if !o.capture.IsOpened() {
			o.capture.Close()
			return nil, fmt.Errorf("open camera %d: %w", d.config.DeviceID, ErrDeviceUnavailable)
		}

		o.capture.Set(gocv.VideoCaptureFrameWidth, float64(d.config.Width))
		o.capture.Set(gocv.VideoCaptureFrameHeight, float64(d.config.Height))
		o.capture.Set(gocv.VideoCaptureFPS, float64(d.config.FPS))

		s := &videoStream{capture: o.capture, mirror: d.config.Mirror}
		s.track = &videoTrack{id: fmt.Sprintf("video-%d", d.config.DeviceID), stream: s}
		return s, nil
	}
}

// classifyOpenError maps OpenCV's open failure onto the capture sentinels.
func classifyOpenError(deviceID int, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized") || strings.Contains(msg, "denied") {
		return fmt.Errorf("open camera %d: %w: %v", deviceID, ErrPermissionDenied, err)
	}
	return fmt.Errorf("open camera %d: %w: %v", deviceID, ErrDeviceUnavailable, err)
}

// videoStream is a single-track stream over a gocv.VideoCapture.
type videoStream struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	track   *videoTrack
	mirror  bool
	size    image.Point
}

func (s *videoStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *videoStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	if s.mirror {
		gocv.Flip(mat, &mat, 1)
	}

	s.size = image.Point{X: mat.Cols(), Y: mat.Rows()}
	return &mat, nil
}

func (s *videoStream) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// release closes the capture; it waits for an in-progress read to finish.
func (s *videoStream) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil {
		s.capture.Close()
		s.capture = nil
	}
}

type videoTrack struct {
	id     string
	stream *videoStream
	once   sync.Once
	mu     sync.Mutex
	done   bool
}

func (t *videoTrack) ID() string   { return t.id }
func (t *videoTrack) Kind() string { return "video" }

func (t *videoTrack) Stop() {
	t.once.Do(func() {
		t.stream.release()
		t.mu.Lock()
		t.done = true
		t.mu.Unlock()
	})
}

func (t *videoTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
