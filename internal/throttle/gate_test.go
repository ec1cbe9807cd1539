package throttle

import (
	"math/rand"
	"testing"
	"time"
)

func at(base time.Time, ms ...int) []time.Time {
	out := make([]time.Time, len(ms))
	for i, m := range ms {
		out[i] = base.Add(time.Duration(m) * time.Millisecond)
	}
	return out
}

func TestGate_Admit(t *testing.T) {
	base := time.Unix(1700000000, 0)

	tests := []struct {
		name     string
		interval time.Duration
		attempts []int
		want     []int
	}{
		{
			name:     "drops attempts inside the interval",
			interval: 200 * time.Millisecond,
			attempts: []int{0, 50, 150, 210, 400},
			want:     []int{0, 210},
		},
		{
			name:     "admits exactly at the boundary",
			interval: 200 * time.Millisecond,
			attempts: []int{0, 200, 400, 600},
			want:     []int{0, 200, 400, 600},
		},
		{
			name:     "frames every 200ms over 900ms",
			interval: 200 * time.Millisecond,
			attempts: []int{0, 200, 400, 600, 800},
			want:     []int{0, 200, 400, 600, 800},
		},
		{
			name:     "first attempt always admitted",
			interval: time.Hour,
			attempts: []int{5, 10},
			want:     []int{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.interval)

			var got []int
			for i, ts := range at(base, tt.attempts...) {
				if g.Admit(ts) {
					got = append(got, tt.attempts[i])
				}
			}

			if len(got) != len(tt.want) {
				t.Fatalf("admitted %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("admitted %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestGate_NoTwoAdmissionsCloserThanInterval(t *testing.T) {
	interval := 200 * time.Millisecond
	rng := rand.New(rand.NewSource(42))
	base := time.Unix(0, 0)

	for run := 0; run < 50; run++ {
		g := NewGate(interval)
		now := base
		var admitted []time.Time

		for i := 0; i < 200; i++ {
			now = now.Add(time.Duration(rng.Intn(120)) * time.Millisecond)
			if g.Admit(now) {
				admitted = append(admitted, now)
			}
		}

		for i := 1; i < len(admitted); i++ {
			if gap := admitted[i].Sub(admitted[i-1]); gap < interval {
				t.Fatalf("run %d: admissions %d and %d only %s apart", run, i-1, i, gap)
			}
		}
	}
}

func TestGate_Reset(t *testing.T) {
	g := NewGate(time.Second)
	now := time.Now()

	if !g.Admit(now) {
		t.Fatal("first Admit should pass")
	}
	if g.Admit(now.Add(time.Millisecond)) {
		t.Fatal("second Admit inside interval should be rejected")
	}

	g.Reset()

	if !g.Admit(now.Add(2 * time.Millisecond)) {
		t.Error("Admit after Reset should pass")
	}
}

func TestNewGate_DefaultInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"zero", 0, DefaultInterval},
		{"negative", -time.Second, DefaultInterval},
		{"custom", 50 * time.Millisecond, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewGate(tt.interval).Interval(); got != tt.want {
				t.Errorf("Interval() = %s, want %s", got, tt.want)
			}
		})
	}
}
