package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	Environment        string
	RateLimitPerMinute int

	// Dashboard API (branches and monthly savings)
	DashboardAPIURL   string
	DashboardAPIToken string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Report
	DefaultKeyPolicy string
	DefaultPageSize  int

	// Cache
	ReportCacheTTL time.Duration
	RedisAddr      string // empty = in-memory cache

	// Exports
	GotenbergURL string // empty = PDF export disabled

	// Observability
	OTLPEndpoint string // empty = tracing disabled
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("APP_ENV", "production"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DashboardAPIURL:   strings.TrimRight(getEnv("DASHBOARD_API_URL", "http://localhost:8081"), "/"),
		DashboardAPIToken: getEnv("DASHBOARD_API_TOKEN", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		DefaultKeyPolicy: getEnv("DEFAULT_KEY_POLICY", "name"),
		DefaultPageSize:  getEnvInt("DEFAULT_PAGE_SIZE", 10),

		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		RedisAddr:      getEnv("REDIS_ADDR", ""),

		GotenbergURL: strings.TrimRight(getEnv("GOTENBERG_URL", ""), "/"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// IsDevelopment reports whether APP_ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
