// Package jwks verifies RS256 bearer tokens against a JSON Web Key Set
// published by an external identity provider. Keys are resolved by the kid
// token header from a cached copy of the set; a miss on an unknown kid
// triggers a re-fetch, so provider key rotation is picked up without a
// restart.
//
// Every verification failure (unknown kid, bad signature, expired token,
// wrong issuer or audience) collapses to [ErrTokenInvalid]. The specific
// cause must not reach the client.
package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is the only error Verify returns for a bad token.
var ErrTokenInvalid = errors.New("token invalid")

// Config locates the provider's key set and pins the expected issuer and
// audience.
type Config struct {
	URL      string
	Issuer   string
	Audience string

	// RefreshInterval bounds cache staleness; zero disables periodic
	// refresh (unknown-kid refresh still applies).
	RefreshInterval time.Duration
	// RequestTimeout applies to each key set fetch.
	RequestTimeout time.Duration
}

// Claims is the decoded payload of a provider-issued token. The identity
// fields are exposed to downstream authorization after verification.
type Claims struct {
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates tokens against the configured key set. Safe for
// concurrent use; the key cache is shared across all calls.
type Verifier struct {
	config Config
	keys   *keyfunc.JWKS
}

// New fetches the key set from cfg.URL and starts background refresh. Callers
// must Close the verifier to stop the refresh goroutine.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("jwks URL required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	keys, err := keyfunc.Get(cfg.URL, keyfunc.Options{
		Ctx:               ctx,
		Client:            &http.Client{Timeout: cfg.RequestTimeout},
		RefreshInterval:   cfg.RefreshInterval,
		RefreshTimeout:    cfg.RequestTimeout,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, err
	}

	return &Verifier{config: cfg, keys: keys}, nil
}

// NewFromJSON builds a verifier over a static key set document. No fetching
// or refresh happens; rotation requires constructing a new verifier.
func NewFromJSON(cfg Config, raw json.RawMessage) (*Verifier, error) {
	keys, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, err
	}
	return &Verifier{config: cfg, keys: keys}, nil
}

// Verify checks signature, expiry, issuer, and audience, and returns the
// decoded claims. Any failure is reported as [ErrTokenInvalid].
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		options = append(options, jwt.WithAudience(v.config.Audience))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, v.keys.Keyfunc)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Close stops the background key refresh.
func (v *Verifier) Close() {
	if v == nil || v.keys == nil {
		return
	}
	v.keys.EndBackground()
}
