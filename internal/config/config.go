package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Matching  MatchingConfig
	Crisis    CrisisConfig
	Responder ResponderConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the durable store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis" or "postgres".
	Backend string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// MatchingConfig tunes the matching engine.
type MatchingConfig struct {
	TickSeconds int
	// AvgWindow is how many ended sessions feed the rolling average
	// service duration behind wait estimates.
	AvgWindow int
	// DefaultWaitMinutes seeds the estimate before any session has ended.
	DefaultWaitMinutes int
}

// CrisisConfig holds the escalation phrase set and the emergency resources
// surfaced to external collaborators on detection.
type CrisisConfig struct {
	Phrases       []string
	HelplineName  string
	HelplinePhone string
	WebhookURL    string
}

// ResponderConfig gates the simulated counsellor responder.
type ResponderConfig struct {
	Enabled      bool
	DelaySeconds int
}

// defaultCrisisPhrases mirrors the phrase set support staff reviewed; it can
// be replaced wholesale via CRISIS_PHRASES.
var defaultCrisisPhrases = []string{
	"suicide",
	"kill myself",
	"end it all",
	"hurt myself",
	"can't go on",
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "soulace-support"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Matching: MatchingConfig{
			TickSeconds:        getEnvAsInt("MATCH_TICK_SECONDS", 5),
			AvgWindow:          getEnvAsInt("MATCH_AVG_WINDOW", 20),
			DefaultWaitMinutes: getEnvAsInt("MATCH_DEFAULT_WAIT_MINUTES", 5),
		},
		Crisis: CrisisConfig{
			Phrases:       getEnvAsList("CRISIS_PHRASES", defaultCrisisPhrases),
			HelplineName:  getEnv("CRISIS_HELPLINE_NAME", "KIRAN"),
			HelplinePhone: getEnv("CRISIS_HELPLINE_PHONE", "1800-599-0019"),
			WebhookURL:    getEnv("CRISIS_WEBHOOK_URL", ""),
		},
		Responder: ResponderConfig{
			Enabled:      getEnvAsBool("RESPONDER_ENABLED", false),
			DelaySeconds: getEnvAsInt("RESPONDER_DELAY_SECONDS", 3),
		},
	}

	switch cfg.Store.Backend {
	case "memory", "redis", "postgres":
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q", cfg.Store.Backend)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Tick returns the safety-net re-match interval.
func (m MatchingConfig) Tick() time.Duration {
	if m.TickSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(m.TickSeconds) * time.Second
}

// Delay returns the simulated responder delay.
func (r ResponderConfig) Delay() time.Duration {
	if r.DelaySeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(r.DelaySeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
