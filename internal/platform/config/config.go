package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	strutil "waypoint/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Version     string
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	// RateLimitConfigPath points at an optional YAML file overriding class limits.
	RateLimitConfigPath string
	RateLimitDisabled   bool
	// TrustProxyHeaders takes the client address from the last X-Forwarded-For
	// entry, or X-Real-IP. Enable only behind exactly one proxy.
	TrustProxyHeaders bool

	Auth      AuthConfig
	Redis     RedisConfig
	Retention RetentionConfig
	Kafka     KafkaConfig
	Admin     AdminSeed
}

// AuthConfig holds token signing material and lifetimes. Access and refresh
// tokens use distinct secrets so one can never be replayed as the other.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string
	CookieSecure       bool
}

// RedisConfig enables the shared rate-limit store. An empty URL keeps the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RetentionConfig controls the location sweeper. PurgeInterval is the upper
// bound on how long an expired record can linger in storage; reads filter it
// out regardless.
type RetentionConfig struct {
	PurgeInterval time.Duration
}

// KafkaConfig enables the audit stream. No brokers means audit goes to logs only.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// AdminSeed creates an admin account at startup when both fields are set.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// Development signing secrets, used when the environment sets none.
const (
	devAccessTokenSecret  = "dev-access-secret-change-me"
	devRefreshTokenSecret = "dev-refresh-secret-change-me"
)

// ErrDevSecrets rejects the built-in signing secrets for a persistent
// deployment, where tokens signed with a public key would outlive the process.
var ErrDevSecrets = errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set when DATABASE_URL is configured")

// LocationRetention is the fixed maximum age of a location record.
const LocationRetention = 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:                getEnv("WAYPOINT_ADDR", ":8000"),
		Version:             getEnv("WAYPOINT_VERSION", "dev"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RateLimitConfigPath: os.Getenv("RATE_LIMIT_CONFIG"),
		RateLimitDisabled:   os.Getenv("DISABLE_RATE_LIMITING") == "true",
		TrustProxyHeaders:   os.Getenv("TRUST_PROXY_HEADERS") == "true",
		Auth: AuthConfig{
			AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", devAccessTokenSecret),
			RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", devRefreshTokenSecret),
			AccessTokenTTL:     getDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenTTL:    getDuration("REFRESH_TOKEN_EXPIRY", 10*24*time.Hour),
			Issuer:             getEnv("TOKEN_ISSUER", "waypoint"),
			CookieSecure:       os.Getenv("COOKIE_INSECURE") != "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Retention: RetentionConfig{
			PurgeInterval: getDuration("LOCATION_PURGE_INTERVAL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "waypoint.audit"),
		},
		Admin: AdminSeed{
			Name:     os.Getenv("ADMIN_NAME"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}
}

// UsesDevSecrets reports whether either signing secret is a built-in default.
func (a AuthConfig) UsesDevSecrets() bool {
	return a.AccessTokenSecret == devAccessTokenSecret || a.RefreshTokenSecret == devRefreshTokenSecret
}

// Validate refuses configurations that are only safe for local development.
func (c Server) Validate() error {
	if c.DatabaseURL != "" && c.Auth.UsesDevSecrets() {
		return ErrDevSecrets
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go durations ("15m") or bare seconds ("900").
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
