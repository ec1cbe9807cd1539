package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results. Safe for concurrent use.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	fn     func(call int) ([]HandLandmarks, error)
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetFunc makes Detect delegate to fn, which receives the 1-based call number.
// It takes precedence over SetHands and SetError.
func (m *MockDetector) SetFunc(fn func(call int) ([]HandLandmarks, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	call, fn, hands, err := m.calls, m.fn, m.hands, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	if err != nil {
		return nil, err
	}
	return hands, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// OpenPalmLandmarks returns a preset right hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	points := make([]Point3D, NumLandmarks)

	points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	points[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	points[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	points[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	points[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	points[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	points[RingTip] = Point3D{X: 0.42, Y: 0.35}

	points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	points[PinkyTip] = Point3D{X: 0.34, Y: 0.42}

	return HandLandmarks{Points: points, Handedness: "Right", Score: 0.95}
}
