package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP API server with observer WebSockets.
// Nothing listens until Start is called.
type Server struct {
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer builds the router from cfg, keeping the limiter and hub for stats and shutdown
func NewServer(cfg RouterConfig) *Server {
	if cfg.RateLimiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		cfg.RateLimiter = NewIPRateLimiter(rlCfg)
	}
	if cfg.Hub == nil {
		origins := cfg.CORSOrigins
		if origins == nil {
			origins = DefaultOrigins
		}
		cfg.Hub = NewHub(cfg.Matches, cfg.Tokens, NewOriginChecker(origins))
	}

	return &Server{
		router:      NewRouter(cfg),
		hub:         cfg.Hub,
		rateLimiter: cfg.RateLimiter,
	}
}

// Start listens on addr and blocks until Shutdown
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	log.Info().Str("addr", addr).Msg("🌐 API server starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrapf(err, "listen %s", addr)
	}
	return nil
}

// Router returns the handler for httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the observer hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Shutdown stops accepting requests and ends the limiter's cleanup loop.
// Hijacked WebSockets are closed when the registry releases their matches.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return eris.Wrap(srv.Shutdown(ctx), "http shutdown")
}
