// Package app wires the capture session to its detector, classifier,
// journal and preview outputs.
package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/capture"
	"github.com/ayusman/handsign/internal/classify"
	"github.com/ayusman/handsign/internal/config"
	"github.com/ayusman/handsign/internal/detector"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/session"
	"github.com/ayusman/handsign/internal/store"
	"github.com/ayusman/handsign/internal/throttle"
)

// Config holds configuration options for the application. Only Settings is
// required; the capability fields override the bindings built from it.
type Config struct {
	Settings config.Config
	Store    *store.Store

	Devices    capture.Devices
	Driver     capture.Driver
	Detector   detector.Detector
	Classifier session.Classifier

	// Display also receives every text change, with the session lock held.
	Display session.Display

	Now    func() time.Time
	Logger *slog.Logger
}

// Status is a snapshot of the session for the API and the tray.
type Status struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
	Text  string `json:"text"`
}

// App is the main application: one capture session plus its outputs.
type App struct {
	session  *session.Session
	detector detector.Detector
	store    *store.Store
	journal  *journal
	preview  *Preview
	events   *Broadcaster
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	state session.State
	err   error
	text  string
}

// New creates a new App and its idle session.
func New(cfg Config) (*App, error) {
	logger := log.Or(cfg.Logger)
	settings := cfg.Settings

	a := &App{
		store:   cfg.Store,
		preview: NewPreview(),
		events:  NewBroadcaster(),
		now:     cfg.Now,
		logger:  log.Component(logger, "app"),
	}
	if a.now == nil {
		a.now = time.Now
	}
	if cfg.Store != nil {
		a.journal = newJournal(cfg.Store, a.logger)
	}

	devices := cfg.Devices
	if devices == nil {
		devices = capture.NewDevices(capture.Config{
			DeviceID: settings.Camera.Device,
			Width:    settings.Camera.Width,
			Height:   settings.Camera.Height,
			FPS:      settings.Camera.FPS,
			Mirror:   settings.Camera.Mirror,
		})
	}

	driver := cfg.Driver
	if driver == nil {
		driver = capture.NewTickerDriver(settings.Camera.FPS, logger)
	}

	a.detector = cfg.Detector
	if a.detector == nil {
		detCfg := detector.Config{
			MaxHands:        settings.Detector.MaxHands,
			MinConfidence:   settings.Detector.MinConfidence,
			MinTrackingConf: settings.Detector.MinTrackingConfidence,
		}
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(detCfg); err == nil {
			a.detector = mp
			a.logger.Info("using MediaPipe hand detection")
		} else {
			a.logger.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	classifier := cfg.Classifier
	if classifier == nil {
		classifier = classify.NewGateway(classify.Config{
			BaseURL: settings.Classifier.BaseURL,
			Timeout: settings.Classifier.Timeout,
			Logger:  logger,
		})
	}

	s, err := session.New(session.Config{
		Devices:    devices,
		Driver:     driver,
		Source:     detector.NewSource(a.detector, logger),
		Classifier: classifier,
		Gate:       throttle.NewGate(settings.Classifier.Interval),
		Display:    session.MultiDisplay(session.DisplayFunc(a.onText), cfg.Display),
		OnState:    a.onState,
		OnFrame:    a.onFrame,
		Now:        cfg.Now,
		Logger:     logger,
	})
	if err != nil {
		a.journal.close()
		return nil, err
	}
	a.session = s

	return a, nil
}

// Start begins capturing. See session.Session.Start. The journal holds the
// outcome by the time Start returns.
func (a *App) Start(ctx context.Context) error {
	err := a.session.Start(ctx)
	a.journal.flush()
	return err
}

// Stop halts capturing and waits for the run to be journaled.
func (a *App) Stop() {
	a.session.Stop()
	a.journal.flush()
}

// Reset clears the recognized text on the backend and returns the new text.
func (a *App) Reset(ctx context.Context) string {
	return a.session.Reset(ctx)
}

// SetViewport forwards the preview's on-screen video box to the overlay.
func (a *App) SetViewport(width, height int) {
	a.session.SetViewport(image.Rect(0, 0, width, height))
}

// Status returns the current session state and text.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status()
}

func (a *App) status() Status {
	st := Status{State: a.state.String(), Text: a.text}
	if a.err != nil {
		st.Error = a.err.Error()
	}
	return st
}

// Session returns the capture session.
func (a *App) Session() *session.Session {
	return a.session
}

// Preview returns the composited preview frames.
func (a *App) Preview() *Preview {
	return a.preview
}

// Subscribe returns a stream of pipeline events. See Broadcaster.Subscribe.
func (a *App) Subscribe() (<-chan Event, func()) {
	return a.events.Subscribe()
}

// Store returns the journal, nil when none is configured.
func (a *App) Store() *store.Store {
	return a.store
}

// Close stops the session, drains the journal and releases the detector.
func (a *App) Close() error {
	err := a.session.Close()
	a.journal.close()
	a.preview.Close()
	if a.detector != nil {
		err = errors.Join(err, a.detector.Close())
	}
	return err
}

// onState runs with the session lock held.
func (a *App) onState(state session.State, err error) {
	a.mu.Lock()
	a.state = state
	a.err = err
	a.journalState(state, err)
	st := a.status()
	a.mu.Unlock()

	a.logger.Info("session state changed", "state", state.String(), "error", err)
	a.events.Publish(Event{Type: EventState, State: st.State, Error: st.Error, Text: st.Text})
}

// onText runs with the session lock held.
func (a *App) onText(text string) {
	a.mu.Lock()
	a.text = text
	a.journalText(text)
	st := a.status()
	a.mu.Unlock()

	a.events.Publish(Event{Type: EventText, State: st.State, Text: text})
}

func (a *App) onFrame(seq uint64, frame *gocv.Mat, hand *detector.LandmarkFrame) {
	a.mu.Lock()
	st := a.status()
	a.mu.Unlock()

	if a.events.Subscribers() > 0 {
		a.events.Publish(Event{Type: EventFrame, Seq: seq, State: st.State, Text: st.Text, Hand: handPoints(hand)})
	}

	if !a.preview.Watching() {
		return
	}
	out := a.session.Renderer().Composite(frame, a.session.Canvas(), st.Text)
	defer out.Close()
	if err := a.preview.Update(&out); err != nil {
		a.logger.Debug("preview encode failed", "seq", seq, "error", err)
	}
}
