package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sumo-arena/internal/api"
	"sumo-arena/internal/config"
	"sumo-arena/internal/history"
	"sumo-arena/internal/match"
	"sumo-arena/internal/mq"
	"sumo-arena/internal/render"
	"sumo-arena/internal/store"
)

func main() {
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		envErr = godotenv.Load(".env")
	}

	appConfig := config.Load()
	setupLogging(appConfig.Logging)
	if envErr != nil {
		log.Info().Msg("💡 No .env file found, using environment variables only")
	}

	log.Info().Msg("🏯 ================================")
	log.Info().Msg("🏯  SUMO ARENA - MATCH SERVER")
	log.Info().Msg("🏯 ================================")

	tuning, err := config.LoadTuning(appConfig.Match.TuningFile)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ invalid tuning file")
	}

	// Profile store: Redis when configured, in-memory otherwise
	var profiles store.ProfileStore
	var records interface {
		api.RecordReader
		api.LeaderboardReader
	}
	if appConfig.Redis.Addr != "" {
		rdb, err := store.DialRedis(context.Background(), appConfig.Redis.Addr, appConfig.Redis.Password, appConfig.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Redis unreachable")
		}
		defer rdb.Close()
		rs := store.NewRedisStore(rdb, appConfig.Redis.ResultTTL)
		profiles, records = rs, rs
		log.Info().Str("addr", appConfig.Redis.Addr).Msg("✅ Redis profile store")
	} else {
		ms := store.NewMemoryStore()
		profiles, records = ms, ms
		log.Warn().Msg("⚠️ REDIS_ADDR not set - profiles kept in memory")
	}

	if n, err := store.SeedProfiles(context.Background(), profiles, appConfig.Match.ProfilesFile); err != nil {
		log.Fatal().Err(err).Msg("❌ invalid profiles file")
	} else if n > 0 {
		log.Info().Int("profiles", n).Str("path", appConfig.Match.ProfilesFile).Msg("✅ seeded wrestler profiles")
	} else if appConfig.Redis.Addr == "" {
		log.Warn().Msg("⚠️ no PROFILES_FILE - only simulation matches can start")
	}

	// Optional result sinks
	var recorders []store.ResultRecorder
	if appConfig.MQ.URL != "" {
		pub, err := mq.Dial(appConfig.MQ.URL, appConfig.MQ.Queue)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ result publisher disabled")
		} else {
			defer pub.Close()
			recorders = append(recorders, pub)
			log.Info().Str("queue", appConfig.MQ.Queue).Msg("✅ publishing results to AMQP")
		}
	}

	var archive *history.Archive
	if appConfig.History.DSN != "" {
		archive, err = history.Open(appConfig.History.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ match history archive disabled")
		} else {
			defer archive.Close()
			recorders = append(recorders, archive)
			log.Info().Msg("✅ match history archive")
		}
	}

	opts := []match.Option{match.WithRecorders(recorders...)}

	if path := appConfig.Match.EventLogPath; path != "" {
		journal := match.NewJournal()
		if err := journal.Start(path); err != nil {
			log.Warn().Err(err).Msg("⚠️ event journal disabled")
		} else {
			defer journal.Stop()
			opts = append(opts, match.WithJournal(journal))
			log.Info().Str("path", path).Msg("📝 event journal")
		}
	}

	registry := match.NewRegistry(appConfig.Match.Registry(tuning), profiles, opts...)
	registry.Start()
	log.Info().
		Int("tickRate", appConfig.Match.TickRate).
		Int("maxMatches", appConfig.Match.MaxConcurrentMatches).
		Bool("simulation", appConfig.Match.SimulationMode).
		Msg("✅ match registry started")

	debugServer := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       appConfig.Debug.Enabled,
		ListenAddr:    appConfig.Debug.ListenAddr,
		AllowExternal: appConfig.Debug.AllowExternal,
	})

	routerCfg := api.RouterConfig{
		Matches:     registry,
		Tokens:      api.NewTokenIssuer(appConfig.Auth.TokenSecret, appConfig.Auth.TokenTTL),
		Records:     records,
		Leaderboard: records,
		CORSOrigins: appConfig.Server.AllowedOrigins,
	}
	if archive != nil {
		routerCfg.History = archive
	}
	if tmpl := appConfig.Server.AvatarURLTemplate; tmpl != "" {
		routerCfg.Avatars = render.NewAvatarCache(tmpl, render.DefaultMaxAvatars)
	}
	server := api.NewServer(routerCfg)

	go func() {
		if err := server.Start(":" + strconv.Itoa(appConfig.Server.Port)); err != nil {
			log.Fatal().Err(err).Msg("❌ failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Info().Msg("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Info().Msg("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ HTTP shutdown")
	}
	registry.Stop()
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	log.Info().Msg("👋 Goodbye!")
}

func setupLogging(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}
