package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds environment-based settings for the kiosk.
type Config struct {
	Environment   string
	ServerAddress string

	// Backend (login, events, playlist snapshot, media)
	BackendBaseURL string
	BackendAPIKey  string
	MediaBaseURL   string
	MediaCacheDir  string

	// Standby engine timing
	ReconnectBackoff     time.Duration
	BootstrapRetry       time.Duration
	SidePaneInterval     time.Duration
	DefaultImageDuration time.Duration
	RevalidateInterval   time.Duration

	// Durable client storage
	RedisAddress  string
	RedisUsername string
	RedisPassword string

	// Price lookup
	DatabaseURL   string
	PriceCacheTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	base := os.Getenv("BACKEND_BASE_URL")
	if base == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	apiKey := os.Getenv("BACKEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("BACKEND_API_KEY is required")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		Environment:   getEnv("APP_ENV", "production"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),

		BackendBaseURL: base,
		BackendAPIKey:  apiKey,
		MediaBaseURL:   getEnv("MEDIA_BASE_URL", base+"media/"),
		MediaCacheDir:  getEnv("MEDIA_CACHE_DIR", "./media-cache"),

		ReconnectBackoff:     getDuration("RECONNECT_BACKOFF", 60*time.Second),
		BootstrapRetry:       getDuration("BOOTSTRAP_RETRY", 60*time.Second),
		SidePaneInterval:     getDuration("SIDE_PANE_INTERVAL", 8*time.Second),
		DefaultImageDuration: getDuration("DEFAULT_IMAGE_DURATION", 10*time.Second),
		RevalidateInterval:   getDuration("REVALIDATE_INTERVAL", 60*time.Second),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DatabaseURL:   dbURL,
		PriceCacheTTL: getDuration("PRICE_CACHE_TTL", 60*time.Second),

		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", 10*time.Second),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
