package authkit

import (
	"errors"
	"time"
)

// VerifierMode selects which trust model [Engine.Validate] uses.
type VerifierMode uint8

const (
	// VerifySharedSecret validates tokens against the engine's own HS256
	// signing secret.
	VerifySharedSecret VerifierMode = iota
	// VerifyJWKS validates tokens against a rotating public key set fetched
	// from an external identity provider.
	VerifyJWKS
)

// JWTConfig controls issuance and shared-secret verification of the engine's
// own tokens.
type JWTConfig struct {
	// Secret signs and verifies HS256 tokens. Required.
	Secret []byte
	Issuer string

	// AccessTTL is the normal access token lifetime.
	AccessTTL time.Duration
	// RememberAccessTTL replaces AccessTTL when the caller asks to be
	// remembered. This widens the access token itself, not just the refresh
	// token; a remembered access token is an extended trust window.
	RememberAccessTTL time.Duration
	// RefreshTTL is the normal refresh token lifetime.
	RefreshTTL time.Duration
	// LongRefreshTTL replaces RefreshTTL for long-lived sessions.
	LongRefreshTTL time.Duration
	// Leeway is the clock skew tolerance applied when parsing.
	Leeway time.Duration
}

// LockoutConfig controls the redis failed-attempt limiter.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	// Window is the rolling period in which failures accumulate and the
	// duration of the lockout once the threshold is reached.
	Window time.Duration
}

// JWKSConfig points the verifier at an external provider's key set.
type JWKSConfig struct {
	URL      string
	Issuer   string
	Audience string
	// RefreshInterval bounds how stale the cached key set may become.
	RefreshInterval time.Duration
	// RequestTimeout applies to each key set fetch.
	RequestTimeout time.Duration
}

// AuditConfig controls the async audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking emitters when the buffer
	// is saturated.
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// Config aggregates all Engine settings. Obtain a baseline from
// [DefaultConfig] and override what you need before passing it to
// [Builder.WithConfig].
type Config struct {
	VerifierMode VerifierMode

	JWT     JWTConfig
	Lockout LockoutConfig
	JWKS    JWKSConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// DefaultConfig returns the recommended baseline: one-hour access tokens
// (seven days when remembered), seven-day refresh tokens (thirty when long),
// 30 seconds of clock leeway, and lockout after five failures in fifteen
// minutes.
func DefaultConfig() Config {
	return Config{
		VerifierMode: VerifySharedSecret,
		JWT: JWTConfig{
			Issuer:            "webqx-auth",
			AccessTTL:         time.Hour,
			RememberAccessTTL: 7 * 24 * time.Hour,
			RefreshTTL:        7 * 24 * time.Hour,
			LongRefreshTTL:    30 * 24 * time.Hour,
			Leeway:            30 * time.Second,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Window:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate reports configuration errors before any I/O happens.
func (c Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT secret required")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RememberAccessTTL <= 0 {
		return errors.New("invalid access TTL configuration")
	}
	if c.JWT.RefreshTTL <= 0 || c.JWT.LongRefreshTTL <= 0 {
		return errors.New("invalid refresh TTL configuration")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("lockout threshold must be positive")
		}
		if c.Lockout.Window <= 0 {
			return errors.New("lockout window must be positive")
		}
	}
	if c.VerifierMode == VerifyJWKS {
		if c.JWKS.URL == "" {
			return errors.New("JWKS URL required in JWKS verifier mode")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	return out
}
