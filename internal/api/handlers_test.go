package api

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumo-arena/internal/game"
	"sumo-arena/internal/history"
	"sumo-arena/internal/match"
	"sumo-arena/internal/store"
)

type testEnv struct {
	registry *match.Registry
	profiles *store.MemoryStore
	tokens   *TokenIssuer
	router   http.Handler
}

type fakeHistory struct {
	rows []history.MatchHistory
}

func (f fakeHistory) History(_ context.Context, id string, page, limit int) ([]history.MatchHistory, error) {
	return f.rows, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	profiles := store.NewMemoryStore()
	for _, p := range []game.Profile{
		{ID: "east", Name: "Takafuji", Color: "#c0392b", Strength: 1, Technique: 1, Speed: 1, Weight: 150},
		{ID: "west", Name: "Asaryu", Color: "#2980b9", Strength: 1, Technique: 1, Speed: 1, Weight: 150},
	} {
		require.NoError(t, profiles.Put(context.Background(), p))
	}

	cfg := match.DefaultConfig()
	cfg.GracePeriod = 10 * time.Millisecond
	registry := match.NewRegistry(cfg, profiles)
	t.Cleanup(registry.Stop)

	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000})
	t.Cleanup(limiter.Stop)

	tokens := NewTokenIssuer("test-secret", time.Hour)
	router := NewRouter(RouterConfig{
		Matches:        registry,
		Tokens:         tokens,
		Records:        profiles,
		Leaderboard:    profiles,
		History:        fakeHistory{rows: []history.MatchHistory{{WrestlerID: "east", MatchID: "m1", IsWinner: true}}},
		RateLimiter:    limiter,
		DisableLogging: true,
	})
	return &testEnv{registry: registry, profiles: profiles, tokens: tokens, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createMatch(t *testing.T) createMatchResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/match", map[string]interface{}{"p1Id": "east", "p2Id": "west"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp createMatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateMatch(t *testing.T) {
	env := newTestEnv(t)
	resp := env.createMatch(t)

	assert.NotEmpty(t, resp.MatchID)
	assert.Equal(t, "ws://example.com/ws/"+resp.MatchID, resp.WSURL)
	assert.Equal(t, "east", resp.P1)
	assert.Equal(t, "west", resp.P2)
	assert.NoError(t, env.tokens.Verify(resp.ControllerToken, resp.MatchID))

	_, ok := env.registry.Get(resp.MatchID)
	assert.True(t, ok)
}

func TestCreateMatchErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"malformed", "not an object", http.StatusBadRequest},
		{"same wrestler", map[string]string{"p1Id": "east", "p2Id": "east"}, http.StatusBadRequest},
		{"unknown wrestler", map[string]string{"p1Id": "east", "p2Id": "ghost"}, http.StatusNotFound},
		{"unknown persona", map[string]string{"p1Id": "east", "p2Id": "west", "p1Bot": "cheater"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/match", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPost, "/api/match", map[string]interface{}{"p1Id": "east", "p2Id": "ghost", "simulation": true})
	assert.Equal(t, http.StatusCreated, rec.Code, "simulation falls back to a synthetic wrestler")
}

func TestGetMatchAndStatus(t *testing.T) {
	env := newTestEnv(t)
	resp := env.createMatch(t)

	rec := env.do(t, http.MethodGet, "/api/match/"+resp.MatchID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Match    match.Info    `json:"match"`
		Snapshot game.Snapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, resp.MatchID, body.Match.ID)
	assert.Equal(t, "east", body.Snapshot.P1.ID)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/match/missing", nil).Code)

	rec = env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 1, status["activeMatches"])
	assert.EqualValues(t, 1, status["maxMatches"])

	rec = env.do(t, http.MethodGet, "/api/matches/active", nil)
	var active []match.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, resp.MatchID, active[0].ID)
}

func TestMatchAction(t *testing.T) {
	env := newTestEnv(t)
	resp := env.createMatch(t)
	path := "/api/match/" + resp.MatchID + "/action"

	rec := env.do(t, http.MethodPost, path, map[string]string{"playerId": "east", "action": "PUSH"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(t, http.MethodPost, path, map[string]string{"playerId": "east", "action": "DANCE"})
	assert.Equal(t, http.StatusAccepted, rec.Code, "unknown actions are absorbed")

	rec = env.do(t, http.MethodPost, "/api/match/missing/action", map[string]string{"playerId": "east", "action": "PUSH"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s, _ := env.registry.Get(resp.MatchID)
	require.Eventually(t, func() bool { return s.Engine().State() != game.StateWaiting }, time.Second, 5*time.Millisecond)
}

func TestFightAction(t *testing.T) {
	env := newTestEnv(t)
	resp := env.createMatch(t)

	rec := env.do(t, http.MethodPost, "/api/fight/action", map[string]string{"wrestlerId": "west", "action": "PUSH"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, resp.MatchID, body["matchId"])

	rec = env.do(t, http.MethodPost, "/api/fight/action", map[string]string{"wrestlerId": "ghost", "action": "PUSH"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/fight/action", map[string]string{"action": "PUSH"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatchControlNeedsToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.createMatch(t)
	other := env.createMatch(t) // evicts the first under the default capacity
	path := "/api/match/" + other.MatchID + "/control"
	body := map[string]interface{}{"command": match.ControlForceStart}

	rec := env.do(t, http.MethodPost, path, body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, path, body, "Authorization", "Bearer "+resp.ControllerToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token of another match")

	rec = env.do(t, http.MethodPost, path, body, "Authorization", "Bearer "+other.ControllerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s, ok := env.registry.Get(other.MatchID)
	require.True(t, ok)
	assert.Equal(t, game.StateFighting, s.Engine().State())

	rec = env.do(t, http.MethodPost, path, body, "Authorization", "Bearer "+other.ControllerToken)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, path, map[string]string{"command": "DANCE"}, "Authorization", "Bearer "+other.ControllerToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearMatches(t *testing.T) {
	env := newTestEnv(t)
	env.createMatch(t)

	rec := env.do(t, http.MethodPost, "/api/matches/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":1}`, rec.Body.String())
	assert.Equal(t, 0, env.registry.Count())
}

func TestMatchFrame(t *testing.T) {
	env := newTestEnv(t)
	resp := env.createMatch(t)

	rec := env.do(t, http.MethodGet, "/api/match/"+resp.MatchID+"/frame.png?w=320", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/match/missing/frame.png", nil).Code)
}

func TestWrestlerRecordAndHistory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.profiles.RecordMatchResult(context.Background(), game.Summary{
		MatchID: "m1", WinnerID: "east", LoserID: "west",
	}))

	rec := env.do(t, http.MethodGet, "/api/wrestlers/east/record", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"wrestlerId":"east","record":{"wins":1,"losses":0}}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/wrestlers/east/history?page=0&limit=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Page    int                    `json:"page"`
		Limit   int                    `json:"limit"`
		Matches []history.MatchHistory `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 20, body.Limit)
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "m1", body.Matches[0].MatchID)
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.profiles.RecordMatchResult(ctx, game.Summary{MatchID: "m1", WinnerID: "east", LoserID: "west"}))
	require.NoError(t, env.profiles.RecordMatchResult(ctx, game.Summary{MatchID: "m2", WinnerID: "east", LoserID: "west"}))
	require.NoError(t, env.profiles.RecordMatchResult(ctx, game.Summary{MatchID: "m3", WinnerID: "west", LoserID: "east"}))

	rec := env.do(t, http.MethodGet, "/api/leaderboard?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"limit":1,"entries":[{"rank":1,"wrestlerId":"east","wins":2}]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit":10`)
	assert.Contains(t, rec.Body.String(), `"wrestlerId":"west"`)
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t)
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	defer limiter.Stop()

	router := NewRouter(RouterConfig{
		Matches:        env.registry,
		Tokens:         env.tokens,
		RateLimiter:    limiter,
		DisableLogging: true,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, uint64(1), limiter.GetStats()["rejected"])

	req := httptest.NewRequest(http.MethodGet, "/api/wrestlers/east/history", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9, 192.0.2.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, "history route is only mounted with an archive")
}
