// Package classify talks to the backend gesture classifier over JSON/HTTP.
package classify

import "github.com/ayusman/handsign/internal/detector"

// Payload is the body of POST /classify.
type Payload struct {
	// Landmarks holds 63 floats: x0,y0,z0,x1,y1,z1,... in detection order.
	Landmarks []float64 `json:"landmarks"`
	// HandArea is the normalized bounding-box area of the hand.
	HandArea float64 `json:"hand_area"`
}

// NewPayload derives the classification payload from a detected hand.
// There is no payload for a missing hand; callers skip the request instead.
func NewPayload(hand *detector.LandmarkFrame) Payload {
	return Payload{
		Landmarks: hand.Flatten(),
		HandArea:  hand.Area(),
	}
}

// Result is what the backend answered. A nil Text means "leave the display
// alone"; a pointer to "" clears it.
type Result struct {
	Text     *string
	Gesture  string
	Accepted bool
}

// HasText reports whether the result carries a display update.
func (r Result) HasText() bool {
	return r.Text != nil
}

// TextResult returns a Result that sets the display to text.
func TextResult(text string) Result {
	return Result{Text: &text}
}
