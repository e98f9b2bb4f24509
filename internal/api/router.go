// Package api is the HTTP and WebSocket surface of the match orchestrator.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sumo-arena/internal/history"
	"sumo-arena/internal/match"
	"sumo-arena/internal/render"
	"sumo-arena/internal/store"
)

// Matches is the slice of the match registry the API calls.
// Keep it minimal so tests can run against a real registry with a memory store.
type Matches interface {
	Create(ctx context.Context, req match.CreateRequest) (*match.Session, error)
	Get(id string) (*match.Session, bool)
	Attach(matchID string, obs match.Observer) error
	Detach(matchID string, obs match.Observer)
	HandleInput(matchID, playerID, action string) error
	HandleWrestlerInput(wrestlerID, action string) (string, error)
	Control(matchID, command string, seconds float64) error
	Active() []match.Info
	Clear() int
	Count() int
	Capacity() match.CapacityPolicy
}

// HistoryReader serves archived bouts per wrestler
type HistoryReader interface {
	History(ctx context.Context, wrestlerID string, page, limit int) ([]history.MatchHistory, error)
}

// RecordReader serves win/loss tallies
type RecordReader interface {
	Record(ctx context.Context, id string) store.Record
}

// LeaderboardReader serves the win ranking
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error)
}

// RouterConfig carries every dependency of the router
type RouterConfig struct {
	// Matches is the live match registry (required)
	Matches Matches

	// Tokens signs controller tokens (required)
	Tokens *TokenIssuer

	// History is optional; its route is mounted only when set
	History HistoryReader

	// Records is optional; its route is mounted only when set
	Records RecordReader

	// Leaderboard is optional; its route is mounted only when set
	Leaderboard LeaderboardReader

	// Avatars is optional; frame previews skip faces when nil
	Avatars *render.AvatarCache

	// Hub is optional; a default one is created when nil
	Hub *Hub

	// RateLimiter is optional; one is built from RateLimitConfig when nil
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins also drives the WebSocket origin check. Nil means DefaultOrigins.
	CORSOrigins []string

	// DisableLogging turns off per-request debug logs
	DisableLogging bool
}

type routerHandlers struct {
	matches Matches
	tokens  *TokenIssuer
	history HistoryReader
	records RecordReader
	ranking LeaderboardReader
	avatars *render.AvatarCache
	hub     *Hub
	limiter *IPRateLimiter
}

// NewRouter builds the router. It opens no listeners; the rate limiter's
// cleanup loop is the only goroutine it may start.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(!cfg.DisableLogging))

	limiter := cfg.RateLimiter
	if limiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		limiter = NewIPRateLimiter(rlCfg)
	}

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(cfg.Matches, cfg.Tokens, NewOriginChecker(origins))
	}

	h := &routerHandlers{
		matches: cfg.Matches,
		tokens:  cfg.Tokens,
		history: cfg.History,
		records: cfg.Records,
		ranking: cfg.Leaderboard,
		avatars: cfg.Avatars,
		hub:     hub,
		limiter: limiter,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Get("/status", h.handleStatus)
		r.Get("/matches/active", h.handleActiveMatches)
		r.Post("/matches/clear", h.handleClearMatches)

		r.Post("/match", h.handleCreateMatch)
		r.Route("/match/{matchID}", func(r chi.Router) {
			r.Get("/", h.handleGetMatch)
			r.Post("/action", h.handleMatchAction)
			r.Post("/control", h.handleMatchControl)
			r.Get("/frame.png", h.handleMatchFrame)
		})

		r.Post("/fight/action", h.handleFightAction)

		if h.records != nil {
			r.Get("/wrestlers/{wrestlerID}/record", h.handleWrestlerRecord)
		}
		if h.ranking != nil {
			r.Get("/leaderboard", h.handleLeaderboard)
		}
		if h.history != nil {
			r.Get("/wrestlers/{wrestlerID}/history", h.handleWrestlerHistory)
		}
	})

	// observer connections bypass the request limiter; the hub caps them per IP
	r.Get("/ws/{matchID}", hub.HandleWebSocket)

	return r
}
