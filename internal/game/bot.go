package game

// Persona describes how a simulated player mashes
type Persona struct {
	Name         string  `json:"name"`
	InputsPerSec float64 `json:"inputsPerSec"`
	Accuracy     float64 `json:"accuracy"` // chance to pick the tactically right direction
}

// Personas used by demo matches and the simulate command
var Personas = map[string]Persona{
	"pro":       {Name: "Pro Gamer", InputsPerSec: 12, Accuracy: 0.9},
	"casual":    {Name: "Casual", InputsPerSec: 6, Accuracy: 0.6},
	"masher":    {Name: "Button Masher", InputsPerSec: 15, Accuracy: 0.3},
	"strategic": {Name: "Strategic", InputsPerSec: 8, Accuracy: 0.8},
	"newbie":    {Name: "Newbie", InputsPerSec: 4, Accuracy: 0.4},
	"afk":       {Name: "AFK", InputsPerSec: 0, Accuracy: 0},
}

// Bot injects inputs through the same path as a real player
type Bot struct {
	persona Persona
	next    float64
}

func newBot(p Persona) *Bot {
	return &Bot{persona: p}
}

// decide runs under the engine lock
func (b *Bot) decide(e *Engine, side int) (Action, bool) {
	if b.persona.InputsPerSec <= 0 || e.timestamp < b.next {
		return "", false
	}

	switch e.state {
	case StateWaiting, StateP1Ready, StateP2Ready:
		// Charge when the other side is already set, or open the tachiai
		b.next = e.timestamp + 0.5
		return ActionPush, true
	case StateFighting:
	default:
		return "", false
	}

	b.next = e.timestamp + between(e.rng, 0.8, 1.2)/b.persona.InputsPerSec
	me, opp := e.wrestler(side), e.wrestler(1-side)

	if e.rng.Float64() >= b.persona.Accuracy {
		actions := []Action{ActionPush, ActionPushLeft, ActionPushRight, ActionKiai}
		return actions[e.rng.Intn(len(actions))], true
	}

	// Counter a fresh opponent direction, otherwise alternate to dodge the streak penalty
	if opp.LastActionDirection != DirNone && e.timestamp-opp.LastActionTime <= e.tuning.CounterWindow {
		return directional(opp.LastActionDirection.Opposite()), true
	}
	if me.Stamina < e.tuning.StaminaCostPush && e.rng.Float64() < 0.5 {
		return "", false
	}
	if me.ActionStreakCount+1 >= e.tuning.StreakLength {
		return directional(me.LastActionDirection.Opposite()), true
	}
	if me.LastActionDirection == DirNone {
		return ActionPushRight, true
	}
	return directional(me.LastActionDirection), true
}

func directional(d Direction) Action {
	if d == DirLeft {
		return ActionPushLeft
	}
	return ActionPushRight
}
