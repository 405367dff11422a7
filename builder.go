package authkit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/webqx-health/authkit/internal/limiters"
	"github.com/webqx-health/authkit/jwks"
	"github.com/webqx-health/authkit/password"
	"github.com/webqx-health/authkit/token"
)

// Builder assembles an [Engine]. Options may be chained in any order; Build
// validates the combination.
type Builder struct {
	config    Config
	hasConfig bool

	redis redis.UniversalClient
	users UserProvider
	sink  AuditSink
	log   *slog.Logger
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// WithConfig sets the engine configuration. Start from [DefaultConfig].
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	b.hasConfig = true
	return b
}

// WithRedis provides the redis client backing the lockout limiter. Required
// when lockout is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider provides the identity store. Required.
func (b *Builder) WithUserProvider(users UserProvider) *Builder {
	b.users = users
	return b
}

// WithAuditSink provides the destination for audit events. Without one,
// enabled auditing delivers to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and constructs the engine. The context
// covers construction-time I/O only (the initial JWKS fetch); it does not
// bound the engine's lifetime.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if !b.hasConfig {
		return nil, errors.New("configuration required: call WithConfig")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user provider required: call WithUserProvider")
	}
	if b.config.Lockout.Enabled && b.redis == nil {
		return nil, errors.New("redis client required when lockout is enabled")
	}

	tokens, err := token.NewManager(token.Config{
		Secret:            b.config.JWT.Secret,
		Issuer:            b.config.JWT.Issuer,
		AccessTTL:         b.config.JWT.AccessTTL,
		RememberAccessTTL: b.config.JWT.RememberAccessTTL,
		RefreshTTL:        b.config.JWT.RefreshTTL,
		LongRefreshTTL:    b.config.JWT.LongRefreshTTL,
		Leeway:            b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewBcrypt(0)
	if err != nil {
		return nil, err
	}

	var verifier TokenVerifier
	switch b.config.VerifierMode {
	case VerifySharedSecret:
		verifier = &sharedSecretVerifier{manager: tokens}
	case VerifyJWKS:
		remote, err := jwks.New(ctx, jwks.Config{
			URL:             b.config.JWKS.URL,
			Issuer:          b.config.JWKS.Issuer,
			Audience:        b.config.JWKS.Audience,
			RefreshInterval: b.config.JWKS.RefreshInterval,
			RequestTimeout:  b.config.JWKS.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		verifier = &jwksVerifier{verifier: remote}
	default:
		return nil, errors.New("unknown verifier mode")
	}

	var lockout *limiters.LockoutLimiter
	if b.config.Lockout.Enabled {
		lockout = limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
			Enabled:   true,
			Threshold: b.config.Lockout.Threshold,
			Window:    b.config.Lockout.Window,
		})
	}

	log := b.log
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		config:   b.config,
		users:    b.users,
		tokens:   tokens,
		hasher:   hasher,
		verifier: verifier,
		lockout:  lockout,
		metrics:  NewMetrics(b.config.Metrics),
		audit:    newAuditDispatcher(b.config.Audit, b.sink),
		log:      log,
	}, nil
}
