// Package store is the boundary to persistent wrestler profiles and match results.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

// ErrNotFound is returned when a wrestler id has no profile
var ErrNotFound = eris.New("wrestler not found")

// ResultRecorder persists a finished bout
type ResultRecorder interface {
	RecordMatchResult(ctx context.Context, s game.Summary) error
}

// ProfileStore reads profiles and records results
type ProfileStore interface {
	ResultRecorder
	Get(ctx context.Context, id string) (game.Profile, error)
	Put(ctx context.Context, p game.Profile) error
}

// Record holds the win/loss tally kept next to a profile
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// LeaderboardEntry is one line of the win ranking
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	WrestlerID string `json:"wrestlerId"`
	Wins       int    `json:"wins"`
}

// DefaultLeaderboardSize caps leaderboard reads when no limit is given
const DefaultLeaderboardSize = 10
