package config

import (
	"fmt"
	"os"
	"time"
)

// StoreAPIConfig describes the remote audiobook service every page talks to.
// The storefront itself holds no business state; base URL and timeout are
// fixed at startup.
type StoreAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects and parameterizes the durable session backend.
type SessionConfig struct {
	// Backend is "cookie" or "redis".
	Backend    string
	Secret     string
	CookieName string
	TTL        time.Duration
	RedisURL   string
}

type Config struct {
	ServerPort  string
	MetricsAddr string
	PprofAddr   string
	StoreAPI    StoreAPIConfig
	Session     SessionConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8091"),
		MetricsAddr: getEnvOrDefault("METRICS_ADDR", ":9092"),
		PprofAddr:   getEnvOrDefault("PPROF_ADDR", ":6060"),
		StoreAPI: StoreAPIConfig{
			BaseURL: getEnvOrDefault("STORE_API_URL", "http://localhost:8080"),
			Timeout: getDurationOrDefault("STORE_API_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			Backend:    getEnvOrDefault("SESSION_BACKEND", "cookie"),
			Secret:     getEnvOrDefault("SESSION_SECRET", ""),
			CookieName: getEnvOrDefault("SESSION_COOKIE", "chapterly_session"),
			TTL:        getDurationOrDefault("SESSION_TTL", 30*24*time.Hour),
			RedisURL:   getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		},
	}

	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	switch cfg.Session.Backend {
	case "cookie", "redis":
	default:
		return nil, fmt.Errorf("unsupported SESSION_BACKEND %q", cfg.Session.Backend)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
