package game

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the bout state machine position
type State string

const (
	StateWaiting   State = "WAITING"
	StateP1Ready   State = "P1_READY"
	StateP2Ready   State = "P2_READY"
	StateCountdown State = "COUNTDOWN"
	StateFighting  State = "FIGHTING"
	StateRingOut   State = "RING_OUT"
	StateMatta     State = "MATTA"
	StateGameOver  State = "GAME_OVER"
)

// Action is a player input
type Action string

const (
	ActionPush      Action = "PUSH"
	ActionKiai      Action = "KIAI"
	ActionPushLeft  Action = "PUSH_LEFT"
	ActionPushRight Action = "PUSH_RIGHT"
)

// ParseAction normalizes an inbound action string
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionPush, ActionKiai, ActionPushLeft, ActionPushRight:
		return a, true
	}
	return "", false
}

func (a Action) direction() Direction {
	switch a {
	case ActionPushLeft:
		return DirLeft
	case ActionPushRight:
		return DirRight
	}
	return DirNone
}

// starts tachiai: only the non-directional pushes count as a charge
func (a Action) starts() bool {
	return a == ActionPush || a == ActionKiai
}

// Options configures a new engine. Zero values pick defaults.
type Options struct {
	Tuning Tuning
	Rand   Rand
	Clock  Clock
}

// Engine is the authoritative simulation of one bout.
// Tick and HandleInput are the only mutators and are serialized by mu.
type Engine struct {
	mu     sync.Mutex
	tuning Tuning
	rng    Rand
	clock  Clock

	p1, p2 *Wrestler

	state     State
	timestamp float64
	tickCount uint64
	winnerID  string

	// Events raised since the last tick boundary and the ones published by it
	staged  []Event
	pending []Event
	log     []Event

	presses     [2]time.Time // wall clock, tachiai only
	falseStarts [2]int

	countdown      float64
	mattaRemaining float64
	ringOutTicks   int
	fightStart     float64
	fought         bool

	bots [2]*Bot
}

// NewEngine creates a bout between two profiles in the WAITING state
func NewEngine(p1, p2 Profile, opts Options) *Engine {
	t := opts.Tuning
	if t.RingRadius <= 0 {
		t = DefaultTuning()
	}
	if opts.Rand == nil {
		opts.Rand = NewRand(0)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}

	e := &Engine{
		tuning: t,
		rng:    opts.Rand,
		clock:  opts.Clock,
		p1:     newWrestler(p1, t.StaminaMax),
		p2:     newWrestler(p2, t.StaminaMax),
		state:  StateWaiting,
	}
	e.resetPositions()
	return e
}

func (e *Engine) resetPositions() {
	cx, cy := e.tuning.Center()
	e.p1.X, e.p1.Y = cx-e.tuning.StartOffset, cy
	e.p2.X, e.p2.Y = cx+e.tuning.StartOffset, cy
	for _, w := range []*Wrestler{e.p1, e.p2} {
		w.VX, w.VY = 0, 0
		w.LastActionDirection = DirNone
		w.LastActionTime = neverActed
		w.ActionStreakCount = 0
	}
}

// side resolves a player id to 0 (east) or 1 (west)
func (e *Engine) side(playerID string) (int, bool) {
	switch playerID {
	case e.p1.ID:
		return 0, true
	case e.p2.ID:
		return 1, true
	}
	return 0, false
}

func (e *Engine) wrestler(side int) *Wrestler {
	if side == 0 {
		return e.p1
	}
	return e.p2
}

func (e *Engine) winner() *Wrestler {
	switch e.winnerID {
	case "":
		return nil
	case e.p1.ID:
		return e.p1
	}
	return e.p2
}

// HandleInput applies one player action. Bad ids, unknown actions and
// inputs the current state does not accept are absorbed silently.
func (e *Engine) HandleInput(playerID, action string) {
	act, ok := ParseAction(action)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	side, ok := e.side(playerID)
	if !ok {
		log.Debug().Str("player", playerID).Msg("input from unknown wrestler ignored")
		return
	}
	e.handleInputLocked(side, act)
}

func (e *Engine) handleInputLocked(side int, act Action) {
	switch e.state {
	case StateWaiting:
		if act.starts() {
			e.presses[side] = e.clock.Now()
		}
	case StateP1Ready, StateP2Ready:
		ready := 0
		if e.state == StateP2Ready {
			ready = 1
		}
		if side == ready || !act.starts() {
			return
		}
		if e.clock.Now().Sub(e.presses[ready]) <= e.tuning.SyncWindow {
			e.beginFight()
		} else {
			e.callMatta(ready)
		}
	case StateFighting:
		e.resolvePush(side, act)
	}
}

// Tick advances the simulation by dt seconds and returns a value snapshot.
// dt <= 0 publishes staged events without touching wrestler state.
func (e *Engine) Tick(dt float64) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dt > 0 && !math.IsInf(dt, 0) && e.state != StateGameOver {
		e.timestamp += dt
		e.tickCount++
		e.driveBots()
		e.advance(dt)
	}

	e.pending = e.staged
	e.staged = nil
	return e.buildSnapshot()
}

func (e *Engine) advance(dt float64) {
	switch e.state {
	case StateWaiting:
		e.resolveWaiting()

	case StateP1Ready, StateP2Ready:
		ready := 0
		if e.state == StateP2Ready {
			ready = 1
		}
		timeout := e.tuning.ReadyTimeout
		if timeout < e.tuning.SyncWindow {
			timeout = e.tuning.SyncWindow
		}
		if e.clock.Now().Sub(e.presses[ready]) > timeout {
			e.callMatta(ready)
		}

	case StateCountdown:
		before := math.Ceil(e.countdown)
		e.countdown -= dt
		if e.countdown <= 0 {
			e.countdown = 0
			e.beginFight()
			return
		}
		if now := math.Ceil(e.countdown); now < before {
			e.emit(Event{Type: EventCountdown, Timestamp: e.timestamp, Remaining: int(now)})
		}

	case StateMatta:
		e.mattaRemaining -= dt
		if e.mattaRemaining <= 0 {
			e.resetPositions()
			e.presses = [2]time.Time{}
			e.state = StateWaiting
		}

	case StateFighting:
		e.stepPhysics(dt)

	case StateRingOut:
		frames := dt * e.tuning.ReferenceFPS
		for _, w := range []*Wrestler{e.p1, e.p2} {
			w.X += w.VX * frames
			w.Y += w.VY * frames
		}
		e.ringOutTicks--
		if e.ringOutTicks <= 0 {
			e.finish()
		}
	}
}

// resolveWaiting decides between a synchronized tachiai and a lone charge
func (e *Engine) resolveWaiting() {
	a, b := e.presses[0], e.presses[1]
	switch {
	case !a.IsZero() && !b.IsZero():
		gap := a.Sub(b)
		if gap < 0 {
			gap = -gap
		}
		if gap <= e.tuning.SyncWindow {
			e.beginFight()
		} else if a.Before(b) {
			e.callMatta(0)
		} else {
			e.callMatta(1)
		}
	case !a.IsZero():
		e.state = StateP1Ready
	case !b.IsZero():
		e.state = StateP2Ready
	}
}

func (e *Engine) beginFight() {
	e.state = StateFighting
	e.presses = [2]time.Time{}
	e.fightStart = e.timestamp
	e.fought = true
	e.p1.VX += e.tuning.ChargeImpulse
	e.p2.VX -= e.tuning.ChargeImpulse
	e.emit(Event{Type: EventTachiai, Timestamp: e.timestamp, Message: "Hakkeyoi!"})
}

// callMatta charges a false start to side
func (e *Engine) callMatta(side int) {
	w := e.wrestler(side)
	e.falseStarts[side]++
	e.presses = [2]time.Time{}

	ev := e.actorEvent(EventMatta, w)
	ev.Remaining = e.falseStarts[side]
	e.emit(ev)

	if e.falseStarts[side] > e.tuning.MaxFalseStarts {
		other := e.wrestler(1 - side)
		e.winnerID = other.ID
		forfeit := e.actorEvent(EventForfeit, w)
		forfeit.TargetID = other.ID
		e.emit(forfeit)
		e.finish()
		return
	}

	e.state = StateMatta
	e.mattaRemaining = e.tuning.MattaDelay
}

func (e *Engine) enterRingOut(winnerSide int) {
	winner, loser := e.wrestler(winnerSide), e.wrestler(1-winnerSide)
	e.winnerID = winner.ID
	ev := e.actorEvent(EventRingOut, loser)
	ev.TargetID = winner.ID
	e.emit(ev)

	if e.tuning.RingOutTicks <= 0 {
		e.finish()
		return
	}
	e.state = StateRingOut
	e.ringOutTicks = e.tuning.RingOutTicks
}

func (e *Engine) finish() {
	e.state = StateGameOver
	ev := Event{Type: EventGameOver, Timestamp: e.timestamp}
	if w := e.winner(); w != nil {
		ev.WrestlerID = w.ID
		ev.WrestlerName = w.Name
	}
	e.emit(ev)
}

func (e *Engine) canStart() bool {
	switch e.state {
	case StateWaiting, StateP1Ready, StateP2Ready, StateMatta, StateCountdown:
		return true
	}
	return false
}

// StartCountdown begins a timed start, replacing any countdown already running.
// Returns false once the bout is underway.
func (e *Engine) StartCountdown(seconds float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canStart() {
		return false
	}
	e.resetPositions()
	e.presses = [2]time.Time{}
	if seconds <= 0 {
		e.beginFight()
		return true
	}
	e.state = StateCountdown
	e.countdown = seconds
	e.emit(Event{Type: EventCountdown, Timestamp: e.timestamp, Remaining: int(math.Ceil(seconds))})
	return true
}

// ForceStart skips tachiai and goes straight to FIGHTING
func (e *Engine) ForceStart() bool {
	return e.StartCountdown(0)
}

// SetBot hands a side to a bot persona. A nil persona returns control to the player.
func (e *Engine) SetBot(playerID string, p *Persona) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	side, ok := e.side(playerID)
	if !ok {
		return false
	}
	if p == nil {
		e.bots[side] = nil
		return true
	}
	e.bots[side] = newBot(*p)
	return true
}

func (e *Engine) driveBots() {
	for side, b := range e.bots {
		if b == nil {
			continue
		}
		if act, ok := b.decide(e, side); ok {
			e.handleInputLocked(side, act)
		}
	}
}

// Snapshot returns the current state with the events of the last tick
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buildSnapshot()
}

// State returns the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// WinnerID returns the winner, empty until decided
func (e *Engine) WinnerID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winnerID
}

// Has reports whether playerID is one of the two wrestlers
func (e *Engine) Has(playerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.side(playerID)
	return ok
}

// WrestlerIDs returns east and west ids
func (e *Engine) WrestlerIDs() (string, string) {
	return e.p1.ID, e.p2.ID
}

// LogSince returns log entries from index n onwards and the new log length
func (e *Engine) LogSince(n int) ([]Event, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n < 0 || n > len(e.log) {
		n = len(e.log)
	}
	out := make([]Event, len(e.log)-n)
	copy(out, e.log[n:])
	return out, len(e.log)
}
