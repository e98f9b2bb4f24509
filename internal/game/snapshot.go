package game

import "math"

// WrestlerSnapshot is an immutable copy of one wrestler for observers
type WrestlerSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	AvatarSeed  string  `json:"avatarSeed,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Stamina     float64 `json:"stamina"`
	PushCount   int     `json:"pushCount"`
	FalseStarts int     `json:"falseStarts"`
}

// EdgeDanger is distance from center over ring radius, clamped to 1
type EdgeDanger struct {
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
}

// Snapshot is the per-tick value handed to broadcast.
// It shares no memory with the engine.
type Snapshot struct {
	Time       float64          `json:"t"`
	Tick       uint64           `json:"tick"`
	State      State            `json:"state"`
	GameOver   bool             `json:"gameOver"`
	WinnerID   string           `json:"winnerId,omitempty"`
	WinnerName string           `json:"winnerName,omitempty"`
	Countdown  float64          `json:"countdown,omitempty"`
	P1         WrestlerSnapshot `json:"p1"`
	P2         WrestlerSnapshot `json:"p2"`
	Events     []Event          `json:"events"`
	EdgeDanger EdgeDanger       `json:"edgeDanger"`
	RingRadius float64          `json:"ringRadius"`
	CenterX    float64          `json:"centerX"`
	CenterY    float64          `json:"centerY"`
}

func (e *Engine) wrestlerSnapshot(w *Wrestler, side int) WrestlerSnapshot {
	return WrestlerSnapshot{
		ID:          w.ID,
		Name:        w.Name,
		Color:       w.Color,
		AvatarSeed:  w.AvatarSeed,
		X:           w.X,
		Y:           w.Y,
		VX:          w.VX,
		VY:          w.VY,
		Stamina:     w.Stamina,
		PushCount:   w.PushCount,
		FalseStarts: e.falseStarts[side],
	}
}

func (e *Engine) edgeDanger(w *Wrestler) float64 {
	cx, cy := e.tuning.Center()
	return math.Min(1, w.DistanceTo(cx, cy)/e.tuning.RingRadius)
}

// buildSnapshot copies engine state. Caller holds the lock.
func (e *Engine) buildSnapshot() Snapshot {
	events := make([]Event, len(e.pending))
	copy(events, e.pending)

	cx, cy := e.tuning.Center()
	snap := Snapshot{
		Time:       e.timestamp,
		Tick:       e.tickCount,
		State:      e.state,
		GameOver:   e.state == StateGameOver,
		WinnerID:   e.winnerID,
		Countdown:  math.Max(0, e.countdown),
		P1:         e.wrestlerSnapshot(e.p1, 0),
		P2:         e.wrestlerSnapshot(e.p2, 1),
		Events:     events,
		EdgeDanger: EdgeDanger{P1: e.edgeDanger(e.p1), P2: e.edgeDanger(e.p2)},
		RingRadius: e.tuning.RingRadius,
		CenterX:    cx,
		CenterY:    cy,
	}
	if w := e.winner(); w != nil {
		snap.WinnerName = w.Name
	}
	return snap
}
