package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	JWTTTL    time.Duration

	TOTPIssuer string

	DB        DatabaseConfig
	Redis     RedisConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	CORS      CORSConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// EventsConfig selects how session/audit events reach real-time subscribers.
// "local" broadcasts in-process only; "redis" publishes on a Redis channel so
// every API instance relays the event to its own subscribers.
type EventsConfig struct {
	Bus     string
	Channel string
}

// RateLimitConfig bounds unauthenticated auth attempts per client IP.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	AuditPruneInterval time.Duration
}

// CORSConfig lists hosts allowed to call the admin API from a browser.
type CORSConfig struct {
	AllowedHosts []string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.TOTPIssuer = getEnv("TOTP_ISSUER", "GTD Inbox Admin")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Real-time events
	cfg.Events = EventsConfig{
		Bus:     strings.ToLower(getEnv("EVENT_BUS", "local")),
		Channel: getEnv("EVENT_CHANNEL", "admin:events"),
	}
	if cfg.Events.Bus != "local" && cfg.Events.Bus != "redis" {
		return nil, fmt.Errorf("invalid EVENT_BUS %q: expected local or redis", cfg.Events.Bus)
	}

	// Auth rate limiting
	cfg.RateLimit = RateLimitConfig{
		PerMinute: getEnvInt("AUTH_RATE_LIMIT", 5),
		Burst:     getEnvInt("AUTH_RATE_BURST", 5),
	}

	cfg.CORS = CORSConfig{
		AllowedHosts: splitList(getEnv("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000")),
	}

	// Durations
	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.JWTTTL == 0 {
		return nil, errors.New("JWT_TTL must be greater than zero")
	}
	if cfg.Worker.AuditPruneInterval, err = parseDurationEnv("AUDIT_PRUNE_INTERVAL", "10m"); err != nil {
		return nil, fmt.Errorf("invalid AUDIT_PRUNE_INTERVAL: %w", err)
	}
	if cfg.Worker.AuditPruneInterval == 0 {
		return nil, errors.New("AUDIT_PRUNE_INTERVAL must be greater than zero")
	}

	// Basic validation for DB parameters — keeps messages concise and helpful.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
