package tokenauth

import (
	"fmt"
	"time"

	"github.com/planetory/tokenauth/identity"
	"github.com/planetory/tokenauth/refresh"
)

// Config defines the engine configuration. Instances are intended to be
// populated during initialization and then treated as immutable.
type Config struct {
	JWT     JWTConfig
	Refresh RefreshConfig
	Google  identity.GoogleConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing and validation.
type JWTConfig struct {
	// Secret is the symmetric HS256 signing key. Required.
	Secret []byte
	// AccessTTL is the access-token validity window. Default 1h.
	AccessTTL time.Duration
	// Leeway tolerates clock skew during expiry validation. Default 0.
	Leeway time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the Redis-backed refresh-token rotation store.
type RefreshConfig struct {
	// TTL bounds the lifetime of a single refresh token. Default 7 days.
	TTL time.Duration
	// KeyPrefix namespaces token records in Redis. Default "refresh:".
	KeyPrefix string
	// VersionKeyPrefix namespaces per-user version counters. Default
	// "refreshver:".
	VersionKeyPrefix string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration the engine runs with when the
// caller overrides nothing: 1h access tokens, 7-day refresh tokens, metrics
// on, audit off.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: time.Hour,
		},
		Refresh: RefreshConfig{
			TTL:              7 * 24 * time.Hour,
			KeyPrefix:        "refresh:",
			VersionKeyPrefix: "refreshver:",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.JWT.AccessTTL <= 0 {
		cfg.JWT.AccessTTL = time.Hour
	}
	if cfg.Refresh.TTL <= 0 {
		cfg.Refresh.TTL = 7 * 24 * time.Hour
	}
	if cfg.Refresh.KeyPrefix == "" {
		cfg.Refresh.KeyPrefix = "refresh:"
	}
	if cfg.Refresh.VersionKeyPrefix == "" {
		cfg.Refresh.VersionKeyPrefix = "refreshver:"
	}
	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = 256
	}
	return cfg
}

func validateConfig(cfg Config) error {
	if len(cfg.JWT.Secret) == 0 {
		return fmt.Errorf("%w: jwt signing secret is required", ErrInvalidConfig)
	}
	if cfg.JWT.Leeway < 0 || cfg.JWT.Leeway > 2*time.Minute {
		return fmt.Errorf("%w: jwt leeway out of range", ErrInvalidConfig)
	}
	return nil
}

func refreshStoreConfig(cfg RefreshConfig) refresh.Config {
	return refresh.Config{
		TTL:              cfg.TTL,
		KeyPrefix:        cfg.KeyPrefix,
		VersionKeyPrefix: cfg.VersionKeyPrefix,
	}
}
