// Package config provides environment-driven configuration for the
// version engine.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Cache backend names.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// Config holds all application configuration values.
type Config struct {
	DatabaseURL  Secret
	Port         string
	ListenHost   string
	CORSOrigins  []string
	LogLevel     string
	CacheBackend string
	CacheTTL     time.Duration
	CacheSize    int
	RedisAddr    string
	RedisDB      int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:  Secret(envOrDefault("DATABASE_URL", "")),
		Port:         envOrDefault("PORT", "3040"),
		ListenHost:   envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		CacheBackend: envOrDefault("CACHE_BACKEND", CacheBackendMemory),
		RedisAddr:    envOrDefault("REDIS_ADDR", "localhost:6379"),
	}

	ttlSeconds, err := strconv.Atoi(envOrDefault("CACHE_TTL_SECONDS", "3600"))
	if err != nil || ttlSeconds < 1 {
		return nil, fmt.Errorf("CACHE_TTL_SECONDS must be a positive integer")
	}
	cfg.CacheTTL = time.Duration(ttlSeconds) * time.Second

	cacheSize, err := strconv.Atoi(envOrDefault("CACHE_SIZE", "1024"))
	if err != nil || cacheSize < 1 {
		return nil, fmt.Errorf("CACHE_SIZE must be a positive integer")
	}
	cfg.CacheSize = cacheSize

	redisDB, err := strconv.Atoi(envOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, fmt.Errorf("REDIS_DB must be a non-negative integer")
	}
	cfg.RedisDB = redisDB

	origins := envOrDefault("CORS_ORIGINS", "")
	if origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
		for i, o := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	return c.validateCache()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if dbHost != "localhost" && dbHost != "127.0.0.1" && dbHost != "::1" {
		sslmode := dbURL.Query().Get("sslmode")
		if sslmode == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateCache() error {
	switch c.CacheBackend {
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND is redis")
		}
	case CacheBackendMemory, CacheBackendNone:
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'redis', 'memory', or 'none', got %q", c.CacheBackend)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
