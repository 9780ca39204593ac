package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"verigate/internal/secrets"
)

// Environment profiles. Production makes the signing secret mandatory.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// RedisConfig carries connection settings for the optional Redis rate-limit
// backend. An empty URL means Redis is not configured and the in-memory
// bucket store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries settings for the optional audit event publisher.
// Empty brokers means audit events are persisted to the store only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig holds the per-principal sliding window parameters.
// The original deployment ran two windows: a general one for verification
// operations and a stricter one for document uploads.
type RateLimitConfig struct {
	Window       time.Duration
	MaxRequests  int
	UploadWindow time.Duration
	UploadMax    int
}

// Config is the immutable process-wide configuration. It is constructed once
// in main and injected into every component; nothing mutates it at runtime.
type Config struct {
	Addr string
	Env  string

	// JWTSigningKey signs and verifies bearer tokens. Mandatory in
	// production; auto-generated per process in development.
	JWTSigningKey          string
	JWTSigningKeyGenerated bool

	RateLimit RateLimitConfig

	// MaxDocumentBytes bounds uploaded evidence payloads before any I/O.
	MaxDocumentBytes int64
	// ApprovalValidity is the fixed validity window set on approval.
	ApprovalValidity time.Duration
	// StoreTimeout bounds every durable-store and object-storage call.
	StoreTimeout time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// ErrMissingSigningKey is returned when a production profile has no signing
// key. Serving traffic without one would make every issued token forgeable,
// so main treats this as fatal.
var ErrMissingSigningKey = errors.New("VERIGATE_JWT_SECRET is required in production")

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:             envOr("VERIGATE_ADDR", ":8080"),
		Env:              envOr("VERIGATE_ENV", EnvDevelopment),
		MaxDocumentBytes: int64Or("VERIGATE_MAX_DOCUMENT_BYTES", 10<<20),
		ApprovalValidity: durationOr("VERIGATE_APPROVAL_VALIDITY", 365*24*time.Hour),
		StoreTimeout:     durationOr("VERIGATE_STORE_TIMEOUT", 5*time.Second),
		RateLimit: RateLimitConfig{
			Window:       durationOr("VERIGATE_RATELIMIT_WINDOW", 15*time.Minute),
			MaxRequests:  intOr("VERIGATE_RATELIMIT_MAX", 10),
			UploadWindow: durationOr("VERIGATE_UPLOAD_RATELIMIT_WINDOW", time.Hour),
			UploadMax:    intOr("VERIGATE_UPLOAD_RATELIMIT_MAX", 5),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("VERIGATE_REDIS_URL"),
			PoolSize:     intOr("VERIGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("VERIGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationOr("VERIGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("VERIGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("VERIGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("VERIGATE_KAFKA_BROKERS")),
			Topic:   envOr("VERIGATE_KAFKA_AUDIT_TOPIC", "verigate.audit"),
		},
	}

	cfg.JWTSigningKey = os.Getenv("VERIGATE_JWT_SECRET")
	if cfg.JWTSigningKey == "" {
		if cfg.Env == EnvProduction {
			return Config{}, ErrMissingSigningKey
		}
		generated, err := secrets.Generate()
		if err != nil {
			return Config{}, err
		}
		cfg.JWTSigningKey = generated
		cfg.JWTSigningKeyGenerated = true
	}

	return cfg, nil
}

// IsProduction reports whether the process runs under the production profile.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func int64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
