package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/intellibus/insights/internal/llm"
)

type Config struct {
	HTTPAddr    string
	LogLevel    string
	LogFormat   string // "text" or "json"
	Environment string

	// Model backend
	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string
	LLMMaxTokens     int
	LLMTemperature   float64
	LLMTimeout       time.Duration

	// Analysis
	AnalysisConcurrency int

	// Optional Postgres for the event log and report archive
	DatabaseURL          string
	MigrateOnStart       bool
	ArchiveRetention     time.Duration
	ArchivePruneInterval time.Duration

	// Error reporting
	SentryDSN string

	// JWT Authentication (optional)
	JWTSecret string
	JWTExpiry time.Duration

	// Notifications
	DiscordWebhookURL    string
	AlertOnDegradedBatch bool

	ShutdownTimeout time.Duration
}

// LoadDotEnv loads the first .env file found in paths into the process
// environment. Variables already set take precedence. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return godotenv.Load(path)
		}
	}
	return nil
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   strings.ToLower(getenv("LOG_FORMAT", "text")),
		Environment: getenv("ENVIRONMENT", "development"),

		// Model backend
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: getenv("ANTHROPIC_BASE_URL", ""),
		AnthropicModel:   getenv("ANTHROPIC_MODEL", llm.DefaultModel),
		LLMMaxTokens:     getenvIntClamped("LLM_MAX_TOKENS", llm.DefaultMaxTokens, 1, 8192),
		LLMTemperature:   getenvFloatClamped("LLM_TEMPERATURE", llm.DefaultTemperature, 0.0, 1.0),
		LLMTimeout:       getenvDuration("LLM_TIMEOUT", 60*time.Second),

		AnalysisConcurrency: getenvIntClamped("ANALYSIS_CONCURRENCY", 4, 1, 32),

		DatabaseURL:    getenv("DATABASE_URL", ""),
		MigrateOnStart: getenvBool("DB_MIGRATE", true),

		ArchiveRetention:     getenvDuration("ARCHIVE_RETENTION", 30*24*time.Hour),
		ArchivePruneInterval: getenvDuration("ARCHIVE_PRUNE_INTERVAL", time.Hour),

		SentryDSN: getenv("SENTRY_DSN", ""),

		// JWT Authentication
		JWTSecret: os.Getenv("JWT_SECRET"), // no fallback; empty disables auth
		JWTExpiry: getenvDuration("JWT_EXPIRY", 24*time.Hour),

		DiscordWebhookURL:    getenv("DISCORD_WEBHOOK_URL", ""),
		AlertOnDegradedBatch: getenvBool("ALERT_DEGRADED_BATCH", true),

		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvIntClamped parses an int env var, falling back to def when unset or
// invalid, and clamps the result to [min, max].
func getenvIntClamped(k string, def, min, max int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvFloatClamped(k string, def, min, max float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}
