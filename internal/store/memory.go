package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

// MemoryStore keeps everything in process. Used when no Redis is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]game.Profile
	records  map[string]Record
	results  map[string]game.Summary
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]game.Profile),
		records:  make(map[string]Record),
		results:  make(map[string]game.Summary),
	}
}

// Get returns a copy of the profile
func (m *MemoryStore) Get(_ context.Context, id string) (game.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return game.Profile{}, eris.Wrapf(ErrNotFound, "wrestler %q", id)
	}
	p.UnlockedSkills = append([]string(nil), p.UnlockedSkills...)
	return p, nil
}

// Put stores or replaces a profile
func (m *MemoryStore) Put(_ context.Context, p game.Profile) error {
	if p.ID == "" {
		return eris.New("profile id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p.UnlockedSkills = append([]string(nil), p.UnlockedSkills...)
	m.profiles[p.ID] = p
	return nil
}

// RecordMatchResult stores the summary and updates the tallies
func (m *MemoryStore) RecordMatchResult(_ context.Context, s game.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[s.MatchID] = s
	if s.WinnerID == "" {
		return nil
	}
	w := m.records[s.WinnerID]
	w.Wins++
	m.records[s.WinnerID] = w
	l := m.records[s.LoserID]
	l.Losses++
	m.records[s.LoserID] = l
	return nil
}

// Result returns a recorded summary
func (m *MemoryStore) Result(_ context.Context, matchID string) (game.Summary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.results[matchID]
	return s, ok
}

// Record returns the tally for a wrestler
func (m *MemoryStore) Record(_ context.Context, id string) Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// Leaderboard ranks wrestlers by wins, ties broken by id
func (m *MemoryStore) Leaderboard(_ context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	m.mu.RLock()
	entries := make([]LeaderboardEntry, 0, len(m.records))
	for id, r := range m.records {
		if r.Wins > 0 {
			entries = append(entries, LeaderboardEntry{WrestlerID: id, Wins: r.Wins})
		}
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].WrestlerID < entries[j].WrestlerID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
