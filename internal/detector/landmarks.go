// Package detector wraps the external hand landmark capability used by the capture pipeline.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// HandConnections lists the skeleton edges drawn between landmarks.
var HandConnections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// Point3D is one normalized landmark. X and Y are image-relative in [0,1];
// Z is 0 when the capability does not report depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) finite() bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HandLandmarks is one hand as reported by a Detector, before validation.
// A well-formed result has exactly NumLandmarks points.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// LandmarkFrame is a validated hand: exactly 21 landmarks in detection order.
type LandmarkFrame struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"`
	Score      float64               `json:"score"`
}

// Frame validates h and converts it to a LandmarkFrame.
// It returns false when the point count is wrong or a coordinate is not finite.
func (h HandLandmarks) Frame() (*LandmarkFrame, bool) {
	if len(h.Points) != NumLandmarks {
		return nil, false
	}

	f := &LandmarkFrame{Handedness: h.Handedness, Score: h.Score}
	for i, p := range h.Points {
		if !p.finite() {
			return nil, false
		}
		f.Points[i] = p
	}
	return f, true
}

// Flatten returns the landmarks as x0,y0,z0,x1,y1,z1,... preserving order.
func (f *LandmarkFrame) Flatten() []float64 {
	out := make([]float64, 0, NumLandmarks*3)
	for _, p := range f.Points {
		out = append(out, p.X, p.Y, p.Z)
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the landmarks in the XY plane.
func (f *LandmarkFrame) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range f.Points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Area is the normalized bounding-box area of the hand, used by the
// classifier as a scale signal.
func (f *LandmarkFrame) Area() float64 {
	minX, minY, maxX, maxY := f.Bounds()
	return (maxX - minX) * (maxY - minY)
}
