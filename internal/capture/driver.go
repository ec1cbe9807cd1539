package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/log"
)

// FrameFunc handles one frame. seq increases by one per frame delivered in a
// run. The frame is closed after the call returns, so it must not be retained.
type FrameFunc func(ctx context.Context, seq uint64, frame *gocv.Mat)

// Driver schedules frames from a stream. Run blocks until ctx is done or the
// stream's tracks are stopped.
type Driver interface {
	Run(ctx context.Context, stream Stream, fn FrameFunc) error
}

// DefaultMaxReadFailures is how many reads in a row may fail before a
// TickerDriver gives the stream up as lost.
const DefaultMaxReadFailures = 30

// ErrStreamLost is returned by Run when the stream keeps failing to produce
// frames, for example after the camera was unplugged.
var ErrStreamLost = errors.New("camera stream lost")

// TickerDriver reads one frame per tick.
type TickerDriver struct {
	interval    time.Duration
	maxFailures int
	logger      *slog.Logger
}

// NewTickerDriver creates a driver pulling fps frames per second.
// Values less than or equal to 0 use DefaultFPS.
func NewTickerDriver(fps int, logger *slog.Logger) *TickerDriver {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickerDriver{
		interval:    time.Second / time.Duration(fps),
		maxFailures: DefaultMaxReadFailures,
		logger:      log.Component(logger, "capture.driver"),
	}
}

// SetMaxReadFailures sets how many consecutive failed reads end Run.
// Values less than or equal to 0 use DefaultMaxReadFailures.
func (d *TickerDriver) SetMaxReadFailures(n int) {
	if n <= 0 {
		n = DefaultMaxReadFailures
	}
	d.maxFailures = n
}

// Interval returns the time between two frame reads.
func (d *TickerDriver) Interval() time.Duration {
	return d.interval
}

// Run reads frames until ctx is done. A stopped stream ends Run at once with
// ErrCameraNotOpen. Other read errors are skipped until maxFailures happen in
// a row, then Run returns ErrStreamLost wrapping the last one.
func (d *TickerDriver) Run(ctx context.Context, stream Stream, fn FrameFunc) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var seq uint64
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, err := stream.ReadFrame()
		if errors.Is(err, ErrCameraNotOpen) {
			return err
		}
		if err != nil {
			failures++
			if failures >= d.maxFailures {
				d.logger.Warn("giving up on camera stream", "failures", failures, "error", err)
				return fmt.Errorf("%w: %d reads failed: %v", ErrStreamLost, failures, err)
			}
			d.logger.Debug("frame read failed", "failures", failures, "error", err)
			continue
		}
		failures = 0

		seq++
		Deliver(ctx, d.logger, seq, frame, fn)
	}
}

// Deliver calls fn with frame, recovering a panic so one bad frame cannot
// end the loop, and closes the frame afterwards.
func Deliver(ctx context.Context, logger *slog.Logger, seq uint64, frame *gocv.Mat, fn FrameFunc) {
	defer frame.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Or(logger).Error("frame callback panicked", "seq", seq, "panic", r)
		}
	}()

	if ctx.Err() != nil {
		return
	}
	fn(ctx, seq, frame)
}
