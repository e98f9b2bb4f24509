package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Bounded labels only: route patterns, never raw paths or ids
var (
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumo_connection_rejected_total",
		Help: "Requests or connections rejected by a limiter, origin or auth check",
	}, []string{"reason"}) // "rate_limit", "origin", "ws_total_limit", "ws_ip_limit", "auth"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sumo_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumo_http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sumo_websocket_connections_active",
		Help: "Open observer WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumo_websocket_messages_total",
		Help: "WebSocket frames by direction",
	}, []string{"direction"}) // "in", "out", "dropped"
)

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// requestMetrics logs and measures each request by its chi route pattern
func requestMetrics(logRequests bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				endpoint = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			RecordRequest(r.Method, endpoint, status, elapsed)

			if logRequests {
				log.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Dur("elapsed", elapsed).
					Msg("http request")
			}
		})
	}
}

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string
	AllowExternal bool
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservabilityConfig binds to localhost
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// NewDebugHandler serves pprof under /debug, prometheus under /metrics and /health
func NewDebugHandler(cfg ObservabilityConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.BasicAuthUser != "" {
		r.Use(middleware.BasicAuth("debug", map[string]string{cfg.BasicAuthUser: cfg.BasicAuthPass}))
	}
	r.Mount("/debug", middleware.Profiler())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// StartDebugServer runs the debug server in the background. Returns nil when disabled.
func StartDebugServer(cfg ObservabilityConfig) *http.Server {
	if !cfg.Enabled {
		log.Info().Msg("📊 debug server disabled")
		return nil
	}
	if !cfg.AllowExternal && !isLoopback(cfg.ListenAddr) {
		log.Warn().Str("addr", cfg.ListenAddr).Msg("⚠️ debug server forced to localhost")
		cfg.ListenAddr = "127.0.0.1:6060"
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewDebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("📊 debug server starting (pprof, /metrics)")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("⚠️ debug server error")
		}
	}()
	return srv
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
