package detector

import (
	"context"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/log"
)

// Source adapts a Detector to the capture pipeline: per frame it yields
// zero or one validated hand. Errors and malformed results count as "no hand".
type Source struct {
	detector Detector
	logger   *slog.Logger
}

// NewSource wraps d. A nil logger uses the global one.
func NewSource(d Detector, logger *slog.Logger) *Source {
	return &Source{
		detector: d,
		logger:   log.Component(logger, "detector.source"),
	}
}

// Detect runs the capability on frame and returns the first hand if it is well formed.
func (s *Source) Detect(ctx context.Context, frame *gocv.Mat) (*LandmarkFrame, bool) {
	if s == nil || s.detector == nil || frame == nil || frame.Empty() {
		return nil, false
	}
	if ctx.Err() != nil {
		return nil, false
	}

	hands, err := s.detector.Detect(frame)
	if err != nil {
		s.logger.Debug("detection failed", "error", err)
		return nil, false
	}
	if len(hands) == 0 {
		return nil, false
	}

	hand, ok := hands[0].Frame()
	if !ok {
		s.logger.Debug("discarding malformed hand", "points", len(hands[0].Points))
		return nil, false
	}
	return hand, true
}

// Close releases the wrapped detector.
func (s *Source) Close() error {
	if s == nil || s.detector == nil {
		return nil
	}
	return s.detector.Close()
}
