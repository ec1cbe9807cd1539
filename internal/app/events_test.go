package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/handsign/internal/detector"
)

func TestBroadcaster(t *testing.T) {
	t.Run("delivers to every subscriber", func(t *testing.T) {
		b := NewBroadcaster()
		a, cancelA := b.Subscribe()
		defer cancelA()
		c, cancelC := b.Subscribe()
		defer cancelC()

		b.Publish(Event{Type: EventText, Text: "hi"})
		for _, ch := range []<-chan Event{a, c} {
			select {
			case e := <-ch:
				if e.Text != "hi" {
					t.Errorf("Text = %q, want hi", e.Text)
				}
			case <-time.After(time.Second):
				t.Fatal("event not delivered")
			}
		}
	})

	t.Run("slow subscriber does not block", func(t *testing.T) {
		b := NewBroadcaster()
		_, cancel := b.Subscribe()
		defer cancel()

		done := make(chan struct{})
		go func() {
			for i := 0; i < subscriberBuffer*3; i++ {
				b.Publish(Event{Type: EventFrame, Seq: uint64(i)})
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Publish blocked on a full subscriber")
		}
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		b := NewBroadcaster()
		ch, cancel := b.Subscribe()
		cancel()
		cancel()

		if _, ok := <-ch; ok {
			t.Error("channel should be closed")
		}
		if b.Subscribers() != 0 {
			t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
		}
		b.Publish(Event{Type: EventState})
	})
}

func TestHandPoints(t *testing.T) {
	if handPoints(nil) != nil {
		t.Error("nil hand should give no points")
	}

	f, ok := detector.OpenPalmLandmarks().Frame()
	if !ok {
		t.Fatal("open palm preset should be well formed")
	}
	points := handPoints(f)
	if len(points) != detector.NumLandmarks {
		t.Fatalf("len = %d, want %d", len(points), detector.NumLandmarks)
	}
	if points[0].X != f.Points[0].X || points[0].Y != f.Points[0].Y {
		t.Errorf("points[0] = %+v, want %+v", points[0], f.Points[0])
	}
}

func TestPreview(t *testing.T) {
	t.Run("Next waits for a newer frame", func(t *testing.T) {
		p := NewPreview()
		p.Set([]byte("one"))
		_, first := p.Latest()

		got := make(chan string, 1)
		go func() {
			jpeg, _, err := p.Next(context.Background(), first)
			if err != nil {
				got <- err.Error()
				return
			}
			got <- string(jpeg)
		}()

		time.Sleep(10 * time.Millisecond)
		p.Set([]byte("two"))

		select {
		case s := <-got:
			if s != "two" {
				t.Errorf("Next() = %q, want two", s)
			}
		case <-time.After(time.Second):
			t.Fatal("Next() did not wake up")
		}
	})

	t.Run("Next returns the current frame to a new viewer", func(t *testing.T) {
		p := NewPreview()
		p.Set([]byte("frame"))
		jpeg, _, err := p.Next(context.Background(), 0)
		if err != nil || string(jpeg) != "frame" {
			t.Errorf("Next() = %q, %v", jpeg, err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		p := NewPreview()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, _, err := p.Next(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Next() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("Close wakes waiters", func(t *testing.T) {
		p := NewPreview()
		errc := make(chan error, 1)
		go func() {
			_, _, err := p.Next(context.Background(), 0)
			errc <- err
		}()
		time.Sleep(10 * time.Millisecond)
		p.Close()
		p.Close()

		if err := <-errc; !errors.Is(err, ErrPreviewClosed) {
			t.Errorf("Next() error = %v, want ErrPreviewClosed", err)
		}
	})

	t.Run("watchers", func(t *testing.T) {
		p := NewPreview()
		if p.Watching() {
			t.Error("new preview should have no watchers")
		}
		unwatch := p.Watch()
		if !p.Watching() {
			t.Error("Watching() should be true")
		}
		unwatch()
		unwatch()
		if p.Watching() {
			t.Error("Watching() should be false after unwatch")
		}
	})
}
