package app

import (
	"sync"

	"github.com/ayusman/handsign/internal/detector"
)

// Event types pushed to subscribers.
const (
	EventState = "state"
	EventText  = "text"
	EventFrame = "frame"
)

// Point is a landmark in the event payload.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Event is one change of the capture pipeline as seen by the preview UI.
type Event struct {
	Type  string  `json:"type"`
	Seq   uint64  `json:"seq,omitempty"`
	State string  `json:"state"`
	Error string  `json:"error,omitempty"`
	Text  string  `json:"text"`
	Hand  []Point `json:"hand,omitempty"`
}

func handPoints(hand *detector.LandmarkFrame) []Point {
	if hand == nil {
		return nil
	}
	points := make([]Point, len(hand.Points))
	for i, p := range hand.Points {
		points[i] = Point{X: p.X, Y: p.Y, Z: p.Z}
	}
	return points
}

// subscriberBuffer is how many events a slow subscriber may fall behind
// before further events to it are dropped.
const subscriberBuffer = 32

// Broadcaster fans events out to subscribers without blocking the publisher.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events and a function that cancels the
// subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber with room for it.
func (b *Broadcaster) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
