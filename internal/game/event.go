package game

// EventType classifies transient UI events and match log entries
type EventType string

const (
	EventTachiai   EventType = "tachiai"
	EventMatta     EventType = "matta"
	EventCountdown EventType = "countdown"
	EventCounter   EventType = "counter"
	EventClash     EventType = "clash"
	EventSkill     EventType = "skill"      // flavor kimarite on contact
	EventSkillProc EventType = "skill_proc" // unlocked skill triggered by a push
	EventRebound   EventType = "rebound"
	EventRingOut   EventType = "ring_out"
	EventForfeit   EventType = "forfeit"
	EventGameOver  EventType = "game_over"
)

// Event is both a this-tick UI event and a persistent log entry.
// Fields not relevant to a type are omitted on the wire.
type Event struct {
	Type          EventType `json:"type"`
	Timestamp     float64   `json:"timestamp"`
	WrestlerID    string    `json:"wrestler_id,omitempty"`
	WrestlerName  string    `json:"wrestler_name,omitempty"`
	TargetID      string    `json:"target_id,omitempty"`
	SkillID       string    `json:"skill_id,omitempty"`
	SkillName     string    `json:"skill_name,omitempty"`
	SkillJP       string    `json:"skill_jp,omitempty"`
	Multiplier    float64   `json:"multiplier,omitempty"`
	StaminaDamage float64   `json:"stamina_damage,omitempty"`
	Remaining     int       `json:"remaining,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func (e *Engine) actorEvent(t EventType, w *Wrestler) Event {
	return Event{
		Type:         t,
		Timestamp:    e.timestamp,
		WrestlerID:   w.ID,
		WrestlerName: w.Name,
	}
}

// emit stages a transient event for the next snapshot and appends it to the match log
func (e *Engine) emit(ev Event) {
	e.staged = append(e.staged, ev)
	if ev.Type != EventCountdown {
		e.log = append(e.log, ev)
	}
}
