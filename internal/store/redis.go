package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

const (
	KeyWrestlerPrefix = "wrestler:"
	KeyMatchPrefix    = "match:"
	KeyRecordPrefix   = "record:"
	KeyLeaderboard    = "leaderboard:wins"
	recentMatches     = 50
)

// RedisStore keeps profiles as hashes and results as JSON documents
type RedisStore struct {
	rdb       *redis.Client
	resultTTL time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps results forever.
func NewRedisStore(rdb *redis.Client, resultTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, resultTTL: resultTTL}
}

// DialRedis connects and pings
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, eris.Wrapf(err, "redis ping %s", addr)
	}
	return rdb, nil
}

func wrestlerKey(id string) string { return KeyWrestlerPrefix + id }

func matchesKey(id string) string { return KeyWrestlerPrefix + id + ":matches" }

func recordKey(id string) string { return KeyRecordPrefix + id }

var profileFields = []string{"name", "color", "avatar_seed", "strength", "technique", "speed", "weight", "unlocked_skills"}

// hasProfile reports whether the hash was written by Put rather than by stray counters
func hasProfile(fields map[string]string) bool {
	for _, f := range profileFields {
		if _, ok := fields[f]; ok {
			return true
		}
	}
	return false
}

// Get loads a profile hash
func (s *RedisStore) Get(ctx context.Context, id string) (game.Profile, error) {
	fields, err := s.rdb.HGetAll(ctx, wrestlerKey(id)).Result()
	if err != nil {
		return game.Profile{}, eris.Wrapf(err, "load wrestler %q", id)
	}
	if !hasProfile(fields) {
		return game.Profile{}, eris.Wrapf(ErrNotFound, "wrestler %q", id)
	}

	p := game.Profile{
		ID:         id,
		Name:       fields["name"],
		Color:      fields["color"],
		AvatarSeed: fields["avatar_seed"],
		Strength:   parseFloat(fields["strength"], 1),
		Technique:  parseFloat(fields["technique"], 1),
		Speed:      parseFloat(fields["speed"], 1),
		Weight:     parseFloat(fields["weight"], game.ReferenceWeight),
	}
	if p.Name == "" {
		p.Name = id
	}
	if raw := fields["unlocked_skills"]; raw != "" {
		p.UnlockedSkills = strings.Split(raw, ",")
	}
	return p, nil
}

// Put writes a profile hash. Tallies live under their own key.
func (s *RedisStore) Put(ctx context.Context, p game.Profile) error {
	if p.ID == "" {
		return eris.New("profile id is required")
	}
	err := s.rdb.HSet(ctx, wrestlerKey(p.ID), map[string]interface{}{
		"name":            p.Name,
		"color":           p.Color,
		"avatar_seed":     p.AvatarSeed,
		"strength":        p.Strength,
		"technique":       p.Technique,
		"speed":           p.Speed,
		"weight":          p.Weight,
		"unlocked_skills": strings.Join(p.UnlockedSkills, ","),
	}).Err()
	return eris.Wrapf(err, "save wrestler %q", p.ID)
}

// RecordMatchResult stores the summary and bumps both tallies in one transaction.
// It never creates a profile.
func (s *RedisStore) RecordMatchResult(ctx context.Context, sum game.Summary) error {
	doc, err := json.Marshal(sum)
	if err != nil {
		return eris.Wrap(err, "encode summary")
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, KeyMatchPrefix+sum.MatchID, doc, s.resultTTL)
		for _, id := range []string{sum.P1.ID, sum.P2.ID} {
			pipe.LPush(ctx, matchesKey(id), sum.MatchID)
			pipe.LTrim(ctx, matchesKey(id), 0, recentMatches-1)
		}
		if sum.WinnerID != "" {
			pipe.HIncrBy(ctx, recordKey(sum.WinnerID), "wins", 1)
			pipe.HIncrBy(ctx, recordKey(sum.LoserID), "losses", 1)
			pipe.ZIncrBy(ctx, KeyLeaderboard, 1, sum.WinnerID)
		}
		return nil
	})
	return eris.Wrapf(err, "record match %s", sum.MatchID)
}

// Result loads a stored summary
func (s *RedisStore) Result(ctx context.Context, matchID string) (game.Summary, bool) {
	var sum game.Summary
	doc, err := s.rdb.Get(ctx, KeyMatchPrefix+matchID).Bytes()
	if err != nil {
		return sum, false
	}
	if err := json.Unmarshal(doc, &sum); err != nil {
		return sum, false
	}
	return sum, true
}

// Record reads the win/loss tally
func (s *RedisStore) Record(ctx context.Context, id string) Record {
	vals, err := s.rdb.HMGet(ctx, recordKey(id), "wins", "losses").Result()
	if err != nil {
		return Record{}
	}
	return Record{Wins: toInt(vals[0]), Losses: toInt(vals[1])}
}

// Leaderboard reads the top wrestlers by wins. Redis orders equal scores
// lexicographically, so ReverseRange ties come out in descending id order.
func (s *RedisStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, KeyLeaderboard, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "read leaderboard")
	}
	entries := make([]LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{Rank: i + 1, WrestlerID: id, Wins: int(z.Score)})
	}
	return entries, nil
}

// RecentMatches lists the latest match ids a wrestler fought in, newest first
func (s *RedisStore) RecentMatches(ctx context.Context, id string) ([]string, error) {
	ids, err := s.rdb.LRange(ctx, matchesKey(id), 0, recentMatches-1).Result()
	return ids, eris.Wrapf(err, "recent matches for %q", id)
}

func parseFloat(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func toInt(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
