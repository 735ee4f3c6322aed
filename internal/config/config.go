package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment             string
	HTTPPort                string
	DatabaseURL             string
	FirebaseProjectID       string
	ApolloAPIKey            string
	ApolloBaseURL           string
	ApolloRequestsPerMinute int
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	EnrichmentCacheTTL      time.Duration
	ServiceName             string
	TelemetryEndpoint       string
	TelemetryInsecure       bool
	CORSAllowedOrigins      []string
	CORSAllowedMethods      []string
	CORSAllowedHeaders      []string
	CORSAllowCredentials    bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:             getEnv("APP_ENV", "development"),
		HTTPPort:                getEnv("HTTP_PORT", "8080"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		FirebaseProjectID:       strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		ApolloAPIKey:            strings.TrimSpace(os.Getenv("APOLLO_API_KEY")),
		ApolloBaseURL:           getEnv("APOLLO_BASE_URL", "https://api.apollo.io/v1"),
		ApolloRequestsPerMinute: getInt("APOLLO_RATE_LIMIT_RPM", 60),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getInt("REDIS_DB", 0),
		EnrichmentCacheTTL:      getDuration("ENRICHMENT_CACHE_TTL", 24*time.Hour),
		ServiceName:             getEnv("SERVICE_NAME", "crewbook-portal"),
		TelemetryEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:       getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:      getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:      getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:      getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials:    getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.FirebaseProjectID == "" {
		return Config{}, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	// APOLLO_API_KEY is intentionally not required here: enrichment degrades
	// to a per-request configuration error instead of blocking startup.

	return cfg, nil
}

// EnrichmentCacheEnabled reports whether a Redis cache should be wired.
func (c Config) EnrichmentCacheEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
