package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumo-arena/internal/game"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, 0), s
}

func TestRedisStoreProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	rs, _ := newRedisStore(t)

	want := game.Profile{
		ID:             "hakuho",
		Name:           "Hakuho",
		Color:          "#ffffff",
		AvatarSeed:     "seed-1",
		Strength:       1.4,
		Technique:      1.2,
		Speed:          0.9,
		Weight:         180,
		UnlockedSkills: []string{"str_1", "tech_2"},
	}
	require.NoError(t, rs.Put(ctx, want))

	got, err := rs.Get(ctx, "hakuho")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRedisStoreDefaultsMissingFields(t *testing.T) {
	ctx := context.Background()
	rs, mr := newRedisStore(t)
	mr.HSet(KeyWrestlerPrefix+"bare", "color", "#000000")

	got, err := rs.Get(ctx, "bare")
	require.NoError(t, err)
	assert.Equal(t, "bare", got.Name)
	assert.Equal(t, 1.0, got.Strength)
	assert.Equal(t, game.ReferenceWeight, got.Weight)
	assert.Empty(t, got.UnlockedSkills)
}

func TestRedisStoreNotFound(t *testing.T) {
	rs, _ := newRedisStore(t)

	_, err := rs.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisStoreUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })
	rs := NewRedisStore(rdb, 0)

	_, err := rs.Get(context.Background(), "anyone")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound), "infrastructure errors must not look like a missing wrestler")
}

func TestRedisStoreRecordMatchResult(t *testing.T) {
	ctx := context.Background()
	rs, _ := newRedisStore(t)
	require.NoError(t, rs.Put(ctx, game.Profile{ID: "east", Name: "East"}))
	require.NoError(t, rs.Put(ctx, game.Profile{ID: "west", Name: "West"}))

	sum := game.Summary{
		MatchID:  "m-1",
		P1:       game.SummaryWrestler{ID: "east", Name: "East", PushCount: 12},
		P2:       game.SummaryWrestler{ID: "west", Name: "West", PushCount: 3},
		WinnerID: "east",
		LoserID:  "west",
		Duration: 12.5,
		Log: []game.Event{
			{Type: game.EventTachiai, Timestamp: 1},
			{Type: game.EventRingOut, Timestamp: 12.5, WrestlerID: "west"},
		},
	}
	require.NoError(t, rs.RecordMatchResult(ctx, sum))
	require.NoError(t, rs.RecordMatchResult(ctx, game.Summary{
		MatchID: "m-2", P1: sum.P1, P2: sum.P2, WinnerID: "east", LoserID: "west",
	}))

	stored, ok := rs.Result(ctx, "m-1")
	require.True(t, ok)
	assert.Equal(t, sum.WinnerID, stored.WinnerID)
	assert.Equal(t, sum.P1.PushCount, stored.P1.PushCount)
	assert.Len(t, stored.Log, 2)

	assert.Equal(t, Record{Wins: 2}, rs.Record(ctx, "east"))
	assert.Equal(t, Record{Losses: 2}, rs.Record(ctx, "west"))

	recent, err := rs.RecentMatches(ctx, "west")
	require.NoError(t, err)
	assert.Equal(t, []string{"m-2", "m-1"}, recent)

	// Tallies are kept apart from the profile and survive a profile update
	require.NoError(t, rs.Put(ctx, game.Profile{ID: "east", Name: "East II"}))
	assert.Equal(t, 2, rs.Record(ctx, "east").Wins)
}

func TestRedisStoreLeaderboard(t *testing.T) {
	ctx := context.Background()
	rs, _ := newRedisStore(t)

	board, err := rs.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, board)

	for i, winner := range []string{"east", "west", "east", "east"} {
		require.NoError(t, rs.RecordMatchResult(ctx, game.Summary{
			MatchID: string(rune('a' + i)), WinnerID: winner, LoserID: "north",
		}))
	}
	require.NoError(t, rs.RecordMatchResult(ctx, game.Summary{MatchID: "draw"}))

	board, err = rs.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []LeaderboardEntry{
		{Rank: 1, WrestlerID: "east", Wins: 3},
		{Rank: 2, WrestlerID: "west", Wins: 1},
	}, board)
}

func TestRedisStoreResultNeverCreatesProfiles(t *testing.T) {
	ctx := context.Background()
	rs, _ := newRedisStore(t)

	require.NoError(t, rs.RecordMatchResult(ctx, game.Summary{
		MatchID:  "sim-1",
		P1:       game.SummaryWrestler{ID: "stand-in-1"},
		P2:       game.SummaryWrestler{ID: "stand-in-2"},
		WinnerID: "stand-in-1",
		LoserID:  "stand-in-2",
	}))

	for _, id := range []string{"stand-in-1", "stand-in-2"} {
		_, err := rs.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "results must not make %s look like a real wrestler", id)
	}
	assert.Equal(t, Record{Wins: 1}, rs.Record(ctx, "stand-in-1"))
}

func TestRedisStoreCountersAloneAreNotAProfile(t *testing.T) {
	rs, mr := newRedisStore(t)
	mr.HSet(KeyWrestlerPrefix+"legacy", "wins", "3")

	_, err := rs.Get(context.Background(), "legacy")
	assert.ErrorIs(t, err, ErrNotFound)
}
