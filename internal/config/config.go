package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
type Config struct {
	ListenPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// UpstreamBaseURL is the exam/attempt service this daemon talks to,
	// including the API prefix (e.g. "http://127.0.0.1:8000/api").
	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// RedisURL enables the question-set cache when non-empty. The daemon
	// runs fine without Redis; the cache is purely an accelerator.
	RedisURL     string
	ExamCacheTTL time.Duration

	// AutosaveInterval is how often the background worker flushes a dirty
	// snapshot. Zero disables autosave.
	AutosaveInterval time.Duration

	// AutoSubmitGrace is the delay between the last practice question being
	// checked and the automatic final submission, leaving the rendering
	// layer time to show the last per-question verdict.
	AutoSubmitGrace time.Duration

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible
// defaults. It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ListenPort:       getEnv("SESSIOND_PORT", "8750"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "pretty"),
		UpstreamBaseURL:  getEnv("UPSTREAM_BASE_URL", "http://127.0.0.1:8000/api"),
		UpstreamTimeout:  time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		RedisURL:         getEnv("REDIS_URL", ""),
		ExamCacheTTL:     time.Duration(getEnvInt("EXAM_CACHE_TTL_MINUTES", 360)) * time.Minute,
		AutosaveInterval: time.Duration(getEnvInt("AUTOSAVE_INTERVAL_SECONDS", 20)) * time.Second,
		AutoSubmitGrace:  time.Duration(getEnvInt("AUTO_SUBMIT_GRACE_MS", 1500)) * time.Millisecond,
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
