package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"sumo-arena/internal/game"
	"sumo-arena/internal/match"
	"sumo-arena/internal/render"
	"sumo-arena/internal/store"
)

func (h *routerHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activeMatches": h.matches.Count(),
		"maxMatches":    h.matches.Capacity().MaxConcurrentMatches,
		"observers":     h.hub.ConnectionCount(),
		"rateLimit":     h.limiter.GetStats(),
	})
}

func (h *routerHandlers) handleActiveMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.matches.Active())
}

func (h *routerHandlers) handleClearMatches(w http.ResponseWriter, r *http.Request) {
	n := h.matches.Clear()
	log.Info().Int("cleared", n).Msg("🧹 matches cleared via API")
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

type createMatchRequest struct {
	P1ID       string  `json:"p1Id"`
	P2ID       string  `json:"p2Id"`
	Simulation bool    `json:"simulation"`
	Countdown  float64 `json:"countdown"`
	P1Bot      string  `json:"p1Bot"`
	P2Bot      string  `json:"p2Bot"`
}

type createMatchResponse struct {
	MatchID         string `json:"matchId"`
	WSURL           string `json:"wsUrl"`
	ControllerToken string `json:"controllerToken"`
	P1              string `json:"p1"`
	P2              string `json:"p2"`
	Simulation      bool   `json:"simulation"`
}

func (h *routerHandlers) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	for _, key := range []string{req.P1Bot, req.P2Bot} {
		if _, ok := game.Personas[key]; key != "" && !ok {
			writeError(w, "Unknown bot persona: "+key, http.StatusBadRequest)
			return
		}
	}

	s, err := h.matches.Create(r.Context(), match.CreateRequest{
		P1ID:       req.P1ID,
		P2ID:       req.P2ID,
		Simulation: req.Simulation,
		Countdown:  req.Countdown,
		P1Bot:      req.P1Bot,
		P2Bot:      req.P2Bot,
	})
	if err != nil {
		writeMatchError(w, err)
		return
	}

	token, err := h.tokens.Issue(s.ID)
	if err != nil {
		log.Error().Err(err).Str("match", s.ID).Msg("❌ failed to issue controller token")
		writeError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	p1, p2 := s.Engine().WrestlerIDs()
	writeJSON(w, http.StatusCreated, createMatchResponse{
		MatchID:         s.ID,
		WSURL:           wsURL(r, s.ID),
		ControllerToken: token,
		P1:              p1,
		P2:              p2,
		Simulation:      s.Simulation,
	})
}

func (h *routerHandlers) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.matches.Get(chi.URLParam(r, "matchID"))
	if !ok {
		writeError(w, "Match not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match":    s.Info(),
		"snapshot": s.Engine().Snapshot(),
	})
}

type actionRequest struct {
	PlayerID   string `json:"playerId"`
	WrestlerID string `json:"wrestlerId"`
	Action     string `json:"action"`
}

func (r actionRequest) player() string {
	if r.PlayerID != "" {
		return r.PlayerID
	}
	return r.WrestlerID
}

// handleMatchAction forwards one input. Inputs the engine ignores still get 202.
func (h *routerHandlers) handleMatchAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	matchID := chi.URLParam(r, "matchID")
	if err := h.matches.HandleInput(matchID, req.player(), req.Action); err != nil {
		writeMatchError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true, "matchId": matchID})
}

func (h *routerHandlers) handleFightAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.player() == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	matchID, err := h.matches.HandleWrestlerInput(req.player(), req.Action)
	if err != nil {
		writeMatchError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true, "matchId": matchID})
}

type controlRequest struct {
	Command string  `json:"command"`
	Seconds float64 `json:"seconds"`
}

func (h *routerHandlers) handleMatchControl(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if err := h.tokens.Verify(bearerToken(r), matchID); err != nil {
		RecordConnectionRejected("auth")
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.matches.Control(matchID, req.Command, req.Seconds); err != nil {
		writeMatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "command": req.Command})
}

func (h *routerHandlers) handleMatchFrame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.matches.Get(chi.URLParam(r, "matchID"))
	if !ok {
		writeError(w, "Match not found", http.StatusNotFound)
		return
	}
	opts := render.DefaultOptions()
	opts.Avatars = h.avatars
	if v, err := strconv.Atoi(r.URL.Query().Get("w")); err == nil && v >= 64 && v <= 1920 {
		opts.Width = v
		opts.Height = v * 9 / 16
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePNG(w, s.Engine().Snapshot(), opts); err != nil {
		log.Warn().Err(err).Str("match", s.ID).Msg("frame render failed")
	}
}

func (h *routerHandlers) handleWrestlerRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "wrestlerID")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wrestlerId": id,
		"record":     h.records.Record(r.Context(), id),
	})
}

func (h *routerHandlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = store.DefaultLeaderboardSize
	}
	entries, err := h.ranking.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("❌ leaderboard query failed")
		writeError(w, "Leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"limit":   limit,
		"entries": entries,
	})
}

func (h *routerHandlers) handleWrestlerHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	id := chi.URLParam(r, "wrestlerID")
	rows, err := h.history.History(r.Context(), id, page, limit)
	if err != nil {
		log.Error().Err(err).Str("wrestler", id).Msg("❌ history query failed")
		writeError(w, "History unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wrestlerId": id,
		"page":       page,
		"limit":      limit,
		"matches":    rows,
	})
}

// writeMatchError maps registry and store errors to status codes
func writeMatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		writeError(w, "Match not found", http.StatusNotFound)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, "Wrestler not found", http.StatusNotFound)
	case errors.Is(err, match.ErrInvalidRequest):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, match.ErrControlRejected):
		writeError(w, "Match already started", http.StatusConflict)
	default:
		log.Error().Err(err).Msg("❌ match request failed")
		writeError(w, "Profile store unavailable", http.StatusBadGateway)
	}
}

func wsURL(r *http.Request, matchID string) string {
	scheme := "ws"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + "/ws/" + matchID
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}
