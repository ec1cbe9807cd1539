// Package session runs the capture pipeline: camera acquisition, per-frame
// hand detection, overlay rendering and throttled classification, behind a
// small start/stop state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/capture"
	"github.com/ayusman/handsign/internal/classify"
	"github.com/ayusman/handsign/internal/detector"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/overlay"
	"github.com/ayusman/handsign/internal/throttle"
)

var (
	// ErrStartAborted is returned by Start when Stop ran while the camera was
	// still being acquired.
	ErrStartAborted = errors.New("session: start aborted by stop")

	// ErrStreamEnded is the session error when the camera stream ends without Stop.
	ErrStreamEnded = errors.New("session: camera stream ended")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("session: closed")
)

// HandSource yields at most one hand per frame.
type HandSource interface {
	Detect(ctx context.Context, frame *gocv.Mat) (*detector.LandmarkFrame, bool)
}

// Classifier is the classification backend.
type Classifier interface {
	Classify(ctx context.Context, p classify.Payload) classify.Result
	ResetText(ctx context.Context) classify.Result
}

// Config wires a Session. Devices, Driver, Source and Classifier are required.
type Config struct {
	Devices    capture.Devices
	Driver     capture.Driver
	Source     HandSource
	Classifier Classifier

	Renderer *overlay.Renderer
	Canvas   *overlay.Canvas
	Gate     *throttle.Gate
	Display  Display

	// OnState is called with the session lock held after every transition.
	OnState func(state State, err error)

	// OnFrame is called on the driver goroutine after a frame is rendered.
	// frame is only valid for the duration of the call.
	OnFrame func(seq uint64, frame *gocv.Mat, hand *detector.LandmarkFrame)

	// Now is the clock used by the throttle gate.
	Now func() time.Time

	Logger *slog.Logger
}

// Session owns the camera stream for one capture widget. It may be started
// and stopped any number of times.
type Session struct {
	devices    capture.Devices
	driver     capture.Driver
	source     HandSource
	classifier Classifier
	renderer   *overlay.Renderer
	canvas     *overlay.Canvas
	gate       *throttle.Gate
	display    Display
	onState    func(State, error)
	onFrame    func(uint64, *gocv.Mat, *detector.LandmarkFrame)
	now        func() time.Time
	logger     *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	gen       uint64
	closed    bool
	stream    capture.Stream
	cancel    context.CancelFunc
	done      chan struct{}
	viewport  image.Rectangle
	intrinsic image.Point
	rendered  uint64
	applied   uint64
	text      string

	pending sync.WaitGroup
}

// New creates an idle Session.
func New(cfg Config) (*Session, error) {
	switch {
	case cfg.Devices == nil:
		return nil, errors.New("session: camera devices are required")
	case cfg.Driver == nil:
		return nil, errors.New("session: frame driver is required")
	case cfg.Source == nil:
		return nil, errors.New("session: hand source is required")
	case cfg.Classifier == nil:
		return nil, errors.New("session: classifier is required")
	}

	s := &Session{
		devices:    cfg.Devices,
		driver:     cfg.Driver,
		source:     cfg.Source,
		classifier: cfg.Classifier,
		renderer:   cfg.Renderer,
		canvas:     cfg.Canvas,
		gate:       cfg.Gate,
		display:    cfg.Display,
		onState:    cfg.OnState,
		onFrame:    cfg.OnFrame,
		now:        cfg.Now,
		logger:     log.Component(cfg.Logger, "session"),
	}
	if s.renderer == nil {
		s.renderer = overlay.NewRenderer(overlay.DefaultStyle())
	}
	if s.canvas == nil {
		s.canvas = overlay.NewCanvas()
	}
	if s.gate == nil {
		s.gate = throttle.NewGate(throttle.DefaultInterval)
	}
	if s.display == nil {
		s.display = DisplayFunc(func(string) {})
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Start acquires the camera and begins streaming. It blocks while the camera
// is being acquired; cancelling ctx abandons the acquisition but does not
// stop a run that already started. Start on an active session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state.Active() {
		s.mu.Unlock()
		return nil
	}

	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.setState(AcquiringCamera, nil)
	s.mu.Unlock()

	acqCtx, acqCancel := context.WithCancel(runCtx)
	stopAfter := context.AfterFunc(ctx, acqCancel)
	stream, acqErr := s.devices.Acquire(acqCtx)
	stopAfter()
	acqCancel()

	// The stream is released on every path that does not hand it to the driver.
	owned := false
	defer func() {
		if !owned {
			capture.StopAll(stream)
			cancel()
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != AcquiringCamera {
		s.logger.Info("camera acquisition aborted")
		return ErrStartAborted
	}
	if acqErr != nil {
		s.cancel = nil
		s.setState(Error, acqErr)
		s.logger.Warn("camera acquisition failed", "error", acqErr)
		return fmt.Errorf("start capture: %w", acqErr)
	}

	owned = true
	s.stream = stream
	s.gate.Reset()
	s.rendered, s.applied = 0, 0
	s.intrinsic = image.Point{}
	s.done = make(chan struct{})
	s.setState(Streaming, nil)

	go s.run(runCtx, gen, stream, s.done)

	s.logger.Info("capture started")
	return nil
}

// Stop stops every camera track, cancels the frame loop and asks the backend
// to reset its text. Anything still in flight is discarded. Stop during
// acquisition aborts it. Stop on an inactive session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case AcquiringCamera:
		s.gen++
		s.cancel()
		s.cancel = nil
		s.setState(Stopped, nil)
		return
	case Streaming:
	default:
		return
	}

	s.gen++
	gen := s.gen

	capture.StopAll(s.stream)
	s.stream = nil
	s.cancel()
	s.cancel = nil
	s.canvas.Clear()
	s.setState(Stopped, nil)

	s.pending.Add(1)
	go s.resetAfterStop(gen)

	s.logger.Info("capture stopped")
}

// Reset asks the backend to clear its recognized text and displays the
// returned text, if any. It returns the text now displayed.
func (s *Session) Reset(ctx context.Context) string {
	res := s.classifier.ResetText(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.HasText() {
		s.setText(*res.Text)
	}
	return s.text
}

// SetViewport records the on-screen box of the video and resizes the overlay.
func (s *Session) SetViewport(r image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = r
	s.renderer.Resize(s.canvas, s.intrinsic, r)
}

// Close stops the session and waits for its goroutines to finish. Start
// fails with ErrClosed from the moment Close is called.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.pending.Wait()
	return s.canvas.Close()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the reason for the Error state, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Text returns the displayed text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Canvas returns the overlay canvas.
func (s *Session) Canvas() *overlay.Canvas {
	return s.canvas
}

// Renderer returns the overlay renderer.
func (s *Session) Renderer() *overlay.Renderer {
	return s.renderer
}

// setState must be called with s.mu held.
func (s *Session) setState(state State, err error) {
	s.state = state
	s.err = err
	if s.onState != nil {
		s.onState(state, err)
	}
}

// setText must be called with s.mu held.
func (s *Session) setText(text string) {
	s.text = text
	s.display.SetText(text)
}

// current reports whether gen is still the streaming run. s.mu must be held.
func (s *Session) current(gen uint64) bool {
	return gen == s.gen && s.state == Streaming
}

func (s *Session) run(ctx context.Context, gen uint64, stream capture.Stream, done chan struct{}) {
	defer close(done)

	err := s.driver.Run(ctx, stream, func(ctx context.Context, seq uint64, frame *gocv.Mat) {
		s.handleFrame(ctx, gen, stream, seq, frame)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return
	}

	// The stream ended on its own, for example the device was unplugged.
	s.logger.Warn("camera stream ended", "error", err)
	s.gen++
	capture.StopAll(s.stream)
	s.stream = nil
	s.cancel()
	s.cancel = nil
	s.canvas.Clear()
	s.setState(Error, fmt.Errorf("%w: %w", ErrStreamEnded, err))
}

func (s *Session) handleFrame(ctx context.Context, gen uint64, stream capture.Stream, seq uint64, frame *gocv.Mat) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	if size := stream.Size(); size != s.intrinsic {
		s.intrinsic = size
		s.renderer.Resize(s.canvas, size, s.viewport)
	}
	s.mu.Unlock()

	hand, ok := s.source.Detect(ctx, frame)
	if !ok {
		hand = nil
	}

	s.mu.Lock()
	if !s.current(gen) || seq <= s.rendered {
		s.mu.Unlock()
		return
	}
	s.rendered = seq
	s.renderer.Render(s.canvas, s.intrinsic, hand)

	admitted := hand != nil && s.gate.Admit(s.now())
	if admitted {
		s.pending.Add(1)
	}
	s.mu.Unlock()

	if s.onFrame != nil {
		s.onFrame(seq, frame, hand)
	}

	if admitted {
		go s.classify(ctx, gen, seq, classify.NewPayload(hand))
	}
}

func (s *Session) classify(ctx context.Context, gen, seq uint64, p classify.Payload) {
	defer s.pending.Done()

	res := s.classifier.Classify(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		s.logger.Debug("discarding result after stop", "seq", seq)
		return
	}
	if seq < s.applied {
		s.logger.Debug("discarding out of order result", "seq", seq, "applied", s.applied)
		return
	}
	s.applied = seq
	if res.HasText() {
		s.setText(*res.Text)
	}
}

func (s *Session) resetAfterStop(gen uint64) {
	defer s.pending.Done()

	res := s.classifier.ResetText(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !res.HasText() {
		return
	}
	s.setText(*res.Text)
}
