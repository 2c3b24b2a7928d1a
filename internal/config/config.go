// Package config handles application configuration from environment
// variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/pipeline"
	"github.com/amsross/transitlambda/pkg/ratelimit"
)

// Config holds all host configuration.
type Config struct {
	Port      string
	BaseURL   string
	UserAgent string

	RateCapacity int
	RateWindow   time.Duration
	HTTPTimeout  time.Duration

	BatchCount  int
	BatchWindow time.Duration

	// LookupFile optionally points at a YAML lookup table.
	LookupFile string

	// RedisURL optionally points at a pre-seeded Redis lookup store.
	// LookupFile wins when both are set.
	RedisURL string

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		BaseURL:      getEnv("TRANSITLAND_BASE_URL", client.DefaultBaseURL),
		UserAgent:    getEnv("USER_AGENT", "transitlambda/1.0"),
		RateCapacity: getIntEnv("RATE_CAPACITY", ratelimit.DefaultCapacity),
		RateWindow:   getDurationEnv("RATE_WINDOW_MS", 1000),
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT_MS", 30000),
		BatchCount:   getIntEnv("BATCH_COUNT", pipeline.DefaultBatchCount),
		BatchWindow:  getDurationEnv("BATCH_WINDOW_MS", 3000),
		LookupFile:   getEnv("LOOKUP_FILE", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnv("LOG_PRETTY", "") == "true",
	}
}

// ClientConfig maps the host configuration onto the API client's.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.UserAgent = c.UserAgent
	cfg.RateCapacity = c.RateCapacity
	cfg.RateWindow = c.RateWindow
	cfg.Timeout = c.HTTPTimeout
	return cfg
}

// PipelineConfig maps the host configuration onto the pipeline's.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		BatchCount:  c.BatchCount,
		BatchWindow: c.BatchWindow,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultMillis int) time.Duration {
	millis := getIntEnv(key, defaultMillis)
	return time.Duration(millis) * time.Millisecond
}
