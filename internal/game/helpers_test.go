package game

import (
	"math"
	"testing"
	"time"
)

// constRand returns the same draw forever. 0.5 disables every proc and
// centers every variance band on 1.0.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func (c constRand) Intn(n int) int {
	i := int(float64(c) * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// scriptRand plays back draws in order, then falls back to 0.5
type scriptRand struct {
	draws []float64
	i     int
}

func (s *scriptRand) Float64() float64 {
	if s.i < len(s.draws) {
		v := s.draws[s.i]
		s.i++
		return v
	}
	return 0.5
}

func (s *scriptRand) Intn(n int) int { return constRand(s.Float64()).Intn(n) }

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

const frame = 1.0 / 60

func testProfiles() (Profile, Profile) {
	return Profile{ID: "east", Name: "Takafuji", Color: "#c0392b", Strength: 1, Technique: 1, Speed: 1, Weight: 150},
		Profile{ID: "west", Name: "Asaryu", Color: "#2980b9", Strength: 1, Technique: 1, Speed: 1, Weight: 150}
}

func newTestEngine(t *testing.T, r Rand, tune func(*Tuning)) (*Engine, *fakeClock) {
	t.Helper()
	tuning := DefaultTuning()
	if tune != nil {
		tune(&tuning)
	}
	clock := newFakeClock()
	p1, p2 := testProfiles()
	return NewEngine(p1, p2, Options{Tuning: tuning, Rand: r, Clock: clock}), clock
}

// fightingEngine returns an engine in FIGHTING with both wrestlers at rest,
// gap units apart around the ring center.
func fightingEngine(t *testing.T, r Rand, gap float64) *Engine {
	t.Helper()
	e, _ := newTestEngine(t, r, nil)
	if !e.ForceStart() {
		t.Fatal("ForceStart refused a fresh engine")
	}
	e.timestamp = 5
	place(e, gap)
	return e
}

func place(e *Engine, gap float64) {
	cx, cy := e.tuning.Center()
	e.p1.X, e.p1.Y, e.p1.VX, e.p1.VY = cx-gap/2, cy, 0, 0
	e.p2.X, e.p2.Y, e.p2.VX, e.p2.VY = cx+gap/2, cy, 0, 0
}

func hasEvent(events []Event, typ EventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
