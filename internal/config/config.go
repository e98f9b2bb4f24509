// Package config is the single place where settings are read.
// Every section has a DefaultX and an XFromEnv; Load assembles them.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"sumo-arena/internal/game"
	"sumo-arena/internal/match"
)

// =============================================================================
// SERVER
// =============================================================================

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port              int
	AllowedOrigins    []string // nil keeps the API defaults (localhost only)
	AvatarURLTemplate string   // empty disables avatars on frame previews
}

// DefaultServer returns the default server configuration
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 3000}
}

// ServerFromEnv applies PORT, ALLOWED_ORIGINS and AVATAR_URL_TEMPLATE
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	cfg.AvatarURLTemplate = os.Getenv("AVATAR_URL_TEMPLATE")
	return cfg
}

// =============================================================================
// MATCHES
// =============================================================================

// MatchConfig controls the orchestrator
type MatchConfig struct {
	TickRate             int
	StaleTimeout         time.Duration
	GracePeriod          time.Duration
	WatchdogInterval     time.Duration
	MaxConcurrentMatches int
	SimulationMode       bool
	EventLogPath         string // empty disables the audit journal
	TuningFile           string // optional YAML overriding engine constants
	ProfilesFile         string // optional JSON array of profiles loaded at startup
}

// DefaultMatch returns the orchestrator defaults: one displayed match at 60 Hz
func DefaultMatch() MatchConfig {
	return MatchConfig{
		TickRate:             60,
		StaleTimeout:         5 * time.Minute,
		GracePeriod:          5 * time.Second,
		WatchdogInterval:     30 * time.Second,
		MaxConcurrentMatches: 1,
	}
}

// MatchFromEnv applies the MATCH_* and related variables
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()
	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvDuration("MATCH_STALE_TIMEOUT", 0); v > 0 {
		cfg.StaleTimeout = v
	}
	if v := getEnvDuration("MATCH_GRACE_PERIOD", -1); v >= 0 {
		cfg.GracePeriod = v
	}
	if v := getEnvDuration("WATCHDOG_INTERVAL", 0); v > 0 {
		cfg.WatchdogInterval = v
	}
	if v := getEnvInt("MAX_CONCURRENT_MATCHES", -1); v >= 0 {
		cfg.MaxConcurrentMatches = v
	}
	cfg.SimulationMode = getEnvBool("SIMULATION_MODE", false)
	cfg.EventLogPath = os.Getenv("EVENT_LOG_PATH")
	cfg.TuningFile = os.Getenv("TUNING_FILE")
	cfg.ProfilesFile = os.Getenv("PROFILES_FILE")
	return cfg
}

// Registry converts to the orchestrator config with the given engine tuning
func (c MatchConfig) Registry(tuning game.Tuning) match.Config {
	cfg := match.DefaultConfig()
	cfg.TickRate = c.TickRate
	cfg.StaleTimeout = c.StaleTimeout
	cfg.GracePeriod = c.GracePeriod
	cfg.WatchdogInterval = c.WatchdogInterval
	cfg.Capacity = match.CapacityPolicy{MaxConcurrentMatches: c.MaxConcurrentMatches}
	cfg.SimulationMode = c.SimulationMode
	cfg.Tuning = tuning
	return cfg
}

// =============================================================================
// BACKENDS
// =============================================================================

// RedisConfig locates the profile store. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	ResultTTL time.Duration
}

// RedisFromEnv reads REDIS_*
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		Addr:      os.Getenv("REDIS_ADDR"),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        getEnvInt("REDIS_DB", 0),
		ResultTTL: getEnvDuration("REDIS_RESULT_TTL", 0),
	}
}

// MQConfig enables the result publisher when URL is set
type MQConfig struct {
	URL   string
	Queue string
}

// MQFromEnv reads AMQP_*
func MQFromEnv() MQConfig {
	cfg := MQConfig{URL: os.Getenv("AMQP_URL"), Queue: "match.results"}
	if q := os.Getenv("AMQP_QUEUE"); q != "" {
		cfg.Queue = q
	}
	return cfg
}

// HistoryConfig enables the SQL archive when DSN is set
type HistoryConfig struct {
	DSN string
}

// HistoryFromEnv reads MYSQL_DSN
func HistoryFromEnv() HistoryConfig {
	return HistoryConfig{DSN: os.Getenv("MYSQL_DSN")}
}

// =============================================================================
// AUTH, DEBUG, LOGGING
// =============================================================================

// AuthConfig signs controller tokens. An empty secret means a per-process key.
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// AuthFromEnv reads CONTROLLER_TOKEN_*
func AuthFromEnv() AuthConfig {
	return AuthConfig{
		TokenSecret: os.Getenv("CONTROLLER_TOKEN_SECRET"),
		TokenTTL:    getEnvDuration("CONTROLLER_TOKEN_TTL", time.Hour),
	}
}

// DebugConfig controls the pprof and metrics listener
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string
	AllowExternal bool
}

// DebugFromEnv reads DISABLE_DEBUG_SERVER, DEBUG_ADDR and ALLOW_DEBUG_EXTERNAL
func DebugFromEnv() DebugConfig {
	cfg := DebugConfig{Enabled: true, ListenAddr: "127.0.0.1:6060"}
	if getEnvBool("DISABLE_DEBUG_SERVER", false) {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.AllowExternal = getEnvBool("ALLOW_DEBUG_EXTERNAL", false)
	return cfg
}

// LoggingConfig selects level and output format
type LoggingConfig struct {
	Level   string
	Console bool
}

// LoggingFromEnv reads LOG_LEVEL and LOG_FORMAT
func LoggingFromEnv() LoggingConfig {
	cfg := LoggingConfig{Level: "info"}
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		cfg.Level = strings.ToLower(l)
	}
	cfg.Console = strings.EqualFold(os.Getenv("LOG_FORMAT"), "console")
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds every section
type AppConfig struct {
	Server  ServerConfig
	Match   MatchConfig
	Redis   RedisConfig
	MQ      MQConfig
	History HistoryConfig
	Auth    AuthConfig
	Debug   DebugConfig
	Logging LoggingConfig
}

// Load returns the configuration with environment overrides
func Load() AppConfig {
	return AppConfig{
		Server:  ServerFromEnv(),
		Match:   MatchFromEnv(),
		Redis:   RedisFromEnv(),
		MQ:      MQFromEnv(),
		History: HistoryFromEnv(),
		Auth:    AuthFromEnv(),
		Debug:   DebugFromEnv(),
		Logging: LoggingFromEnv(),
	}
}

// LoadTuning overlays a YAML, JSON or TOML file on the default engine constants.
// Keys use the mapstructure names of game.Tuning; absent keys keep their defaults.
// An empty path returns the defaults.
func LoadTuning(path string) (game.Tuning, error) {
	t := game.DefaultTuning()
	if path == "" {
		return t, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return t, eris.Wrapf(err, "read tuning %s", path)
	}
	if err := v.Unmarshal(&t); err != nil {
		return game.DefaultTuning(), eris.Wrapf(err, "decode tuning %s", path)
	}
	if t.RingRadius <= 0 || t.ReferenceFPS <= 0 || t.StaminaMax <= 0 {
		return game.DefaultTuning(), eris.Errorf("tuning %s: ring_radius, reference_fps and stamina_max must be positive", path)
	}
	return t, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
