// Package token issues and parses the engine's own HS256-signed credentials:
// short-lived access tokens and longer-lived refresh tokens. Access and
// refresh lifetimes are configured independently so the access token can stay
// short while the refresh token amortizes re-authentication.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KindRefresh is the kind claim carried by every refresh token. A refresh
// token grants no resource access; it is exchanged for a new access token.
const KindRefresh = "refresh"

var (
	// ErrNotRefreshToken is returned when a token parses cleanly but does
	// not carry the refresh kind claim (for example an access token posted
	// to the refresh endpoint).
	ErrNotRefreshToken = errors.New("not a refresh token")
)

// Config holds signing material and lifetimes. Instances are treated as
// immutable after NewManager.
type Config struct {
	Secret []byte
	Issuer string

	AccessTTL         time.Duration
	RememberAccessTTL time.Duration
	RefreshTTL        time.Duration
	LongRefreshTTL    time.Duration
	Leeway            time.Duration
}

// Manager signs and verifies tokens with a single shared secret.
type Manager struct {
	config Config
}

// AccessClaims is the payload of an engine-issued access token. The subject
// is the user ID; an access token and its paired refresh token always carry
// the same subject.
type AccessClaims struct {
	Email    string `json:"email,omitempty"`
	UserType string `json:"user_type,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of an engine-issued refresh token.
type RefreshClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a signing secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RememberAccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.RefreshTTL <= 0 || cfg.LongRefreshTTL <= 0 {
		return nil, errors.New("invalid refresh TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	return &Manager{config: cfg}, nil
}

// IssueAccess mints an access token for the given identity. remember extends
// the lifetime from AccessTTL to RememberAccessTTL.
func (m *Manager) IssueAccess(userID, email, userType string, remember bool) (string, error) {
	ttl := m.config.AccessTTL
	if remember {
		ttl = m.config.RememberAccessTTL
	}

	now := time.Now()
	claims := AccessClaims{
		Email:    email,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// IssueRefresh mints a refresh token bound to the same subject as the access
// token it pairs with. long extends the lifetime from RefreshTTL to
// LongRefreshTTL.
func (m *Manager) IssueRefresh(userID string, long bool) (string, error) {
	ttl := m.config.RefreshTTL
	if long {
		ttl = m.config.LongRefreshTTL
	}

	now := time.Now()
	claims := RefreshClaims{
		Kind: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// ParseAccess verifies signature, expiry, and issuer and returns the decoded
// claims.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and checks the kind claim. Access
// tokens presented here fail with ErrNotRefreshToken.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindRefresh {
		return nil, ErrNotRefreshToken
	}
	return claims, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
