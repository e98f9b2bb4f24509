package game

import "time"

// SummaryWrestler is one side of a finished bout
type SummaryWrestler struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	PushCount int    `json:"pushCount"`
}

// Summary is written once when a bout ends
type Summary struct {
	MatchID       string          `json:"matchId"`
	P1            SummaryWrestler `json:"p1"`
	P2            SummaryWrestler `json:"p2"`
	WinnerID      string          `json:"winnerId"`
	WinnerName    string          `json:"winnerName"`
	LoserID       string          `json:"loserId"`
	Duration      float64         `json:"duration"`      // simulated seconds since creation
	FightDuration float64         `json:"fightDuration"` // simulated seconds since tachiai
	EndedAt       time.Time       `json:"endedAt"`
	Log           []Event         `json:"log"`
}

// Summary builds the persisted record of the bout
func (e *Engine) Summary(matchID string) Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := make([]Event, len(e.log))
	copy(entries, e.log)

	s := Summary{
		MatchID:  matchID,
		P1:       SummaryWrestler{ID: e.p1.ID, Name: e.p1.Name, Color: e.p1.Color, PushCount: e.p1.PushCount},
		P2:       SummaryWrestler{ID: e.p2.ID, Name: e.p2.Name, Color: e.p2.Color, PushCount: e.p2.PushCount},
		WinnerID: e.winnerID,
		Duration: e.timestamp,
		EndedAt:  e.clock.Now(),
		Log:      entries,
	}
	if e.fought {
		s.FightDuration = e.timestamp - e.fightStart
	}
	if w := e.winner(); w != nil {
		s.WinnerName = w.Name
		if w == e.p1 {
			s.LoserID = e.p2.ID
		} else {
			s.LoserID = e.p1.ID
		}
	}
	return s
}
