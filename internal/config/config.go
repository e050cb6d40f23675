package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the decoy service.
type Config struct {
	BindAddr           string
	ShutdownTimeout    time.Duration
	SessionIdleTimeout time.Duration
	MetricsNamespace   string

	AllowAnyOrigin bool

	// APIKey guards the honeypot and admin endpoints; empty disables the
	// check for local runs.
	APIKey string

	CollectorURL       string
	CollectorTimeout   time.Duration
	CollectorQueueSize int

	DatabaseURL string

	// Classifier tuning. The defaults are a deliberately low bar for
	// engagement, not calibrated values.
	ClassifyThreshold   float64
	ClassifyFlagWeight  float64
	ClassifyMatchWeight float64
	ClassifyMinFlags    int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "scamtrap"),
		AllowAnyOrigin:      false,
		APIKey:              trimmedEnv("API_KEY"),
		CollectorURL:        trimmedEnv("COLLECTOR_URL"),
		DatabaseURL:         trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:     15 * time.Second,
		SessionIdleTimeout:  30 * time.Minute,
		CollectorTimeout:    10 * time.Second,
		CollectorQueueSize:  64,
		ClassifyThreshold:   0.3,
		ClassifyFlagWeight:  0.15,
		ClassifyMatchWeight: 0.05,
		ClassifyMinFlags:    2,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("APP_SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CollectorTimeout, err = durationFromEnv("COLLECTOR_TIMEOUT", cfg.CollectorTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CollectorQueueSize, err = intFromEnv("COLLECTOR_QUEUE_SIZE", cfg.CollectorQueueSize)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.ClassifyThreshold, err = floatFromEnv("CLASSIFY_THRESHOLD", cfg.ClassifyThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ClassifyFlagWeight, err = floatFromEnv("CLASSIFY_FLAG_WEIGHT", cfg.ClassifyFlagWeight)
	if err != nil {
		return Config{}, err
	}
	cfg.ClassifyMatchWeight, err = floatFromEnv("CLASSIFY_MATCH_WEIGHT", cfg.ClassifyMatchWeight)
	if err != nil {
		return Config{}, err
	}
	cfg.ClassifyMinFlags, err = intFromEnv("CLASSIFY_MIN_FLAGS", cfg.ClassifyMinFlags)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.CollectorQueueSize <= 0 {
		return Config{}, fmt.Errorf("COLLECTOR_QUEUE_SIZE must be positive")
	}
	if cfg.ClassifyThreshold <= 0 || cfg.ClassifyThreshold > 1 {
		return Config{}, fmt.Errorf("CLASSIFY_THRESHOLD must be in (0, 1]")
	}
	if cfg.ClassifyFlagWeight <= 0 || cfg.ClassifyMatchWeight <= 0 {
		return Config{}, fmt.Errorf("classifier weights must be positive")
	}
	if cfg.ClassifyMinFlags <= 0 {
		return Config{}, fmt.Errorf("CLASSIFY_MIN_FLAGS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
