package history

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumo-arena/internal/game"
)

func TestRecordsFor(t *testing.T) {
	ended := time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)
	s := game.Summary{
		MatchID:    "m-1",
		P1:         game.SummaryWrestler{ID: "east", PushCount: 14},
		P2:         game.SummaryWrestler{ID: "west", PushCount: 9},
		WinnerID:   "west",
		WinnerName: "Asaryu",
		LoserID:    "east",
		Duration:   24.2,
		EndedAt:    ended,
		Log: []game.Event{
			{Type: game.EventTachiai, Timestamp: 2},
			{Type: game.EventCounter, Timestamp: 9.5, WrestlerID: "west"},
		},
	}

	rec, lines, err := recordsFor(s)
	require.NoError(t, err)

	assert.Equal(t, "m-1", rec.MatchID)
	assert.Equal(t, "west", rec.WinnerID)
	assert.Equal(t, ended, rec.EndedAt)

	var log []game.Event
	require.NoError(t, json.Unmarshal([]byte(rec.EventLog), &log))
	assert.Equal(t, s.Log, log)

	require.Len(t, lines, 2)
	assert.False(t, lines[0].IsWinner)
	assert.True(t, lines[1].IsWinner)
	assert.Equal(t, "west", lines[0].OpponentID)
	assert.Equal(t, 9, lines[1].Pushes)
	assert.Equal(t, ended.Unix(), lines[0].Timestamp)
}
