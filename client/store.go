// Package client is the token-side counterpart of the engine: it logs in
// against the HTTP API, persists the token pair, decodes access claims
// without verification for scheduling decisions, and keeps the access token
// fresh in the background.
//
// The client never verifies signatures: it holds no key material and only
// needs the expiry to decide when to refresh. Verification is the server's
// job on every request.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Storage slot names. Shared with the platform's browser clients, so other
// tooling can read tokens written here.
const (
	accessKey  = "webqx-jwt"
	refreshKey = "webqx-jwt-refresh"
)

// defaultSkew is subtracted from the expiry when deciding whether a token is
// still usable, so a token is refreshed before it actually lapses in flight.
const defaultSkew = 30 * time.Second

var (
	// ErrNoAccessToken is returned when a login response carries no access
	// token under any accepted field name.
	ErrNoAccessToken = errors.New("no access token in response")
	// ErrNoRefreshToken is returned when a refresh is requested but no
	// refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// LoginError is a non-2xx response from the login endpoint.
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed (%d): %s", e.Status, e.Message)
}

// RefreshError is a non-2xx response from the refresh endpoint.
type RefreshError struct {
	Status  int
	Message string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed (%d): %s", e.Status, e.Message)
}

// TokenClaims is the unverified decoded payload of a stored access token.
type TokenClaims struct {
	Subject   string
	Email     string
	UserType  string
	ExpiresAt time.Time
}

// Config configures a [Store].
type Config struct {
	// BaseURL of the auth API, without a trailing slash.
	BaseURL string
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
	// Storage defaults to [MemoryStorage].
	Storage Storage
	// Skew defaults to 30s; see [Store.IsExpired].
	Skew   time.Duration
	Logger *slog.Logger
}

// Store owns the client-side token lifecycle.
type Store struct {
	baseURL string
	http    *http.Client
	storage Storage
	skew    time.Duration
	log     *slog.Logger

	mu            sync.Mutex
	cancelRefresh context.CancelFunc
}

// NewStore validates cfg and returns a store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.Skew <= 0 {
		cfg.Skew = defaultSkew
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		storage: cfg.Storage,
		skew:    cfg.Skew,
		log:     cfg.Logger,
	}, nil
}

type loginPayload struct {
	Access  string          `json:"access"`
	Token   string          `json:"token"`
	IDToken string          `json:"id_token"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

type errorPayload struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Login posts credentials and persists the returned token pair. It returns
// the access token plus the response user object, if present, raw for the
// caller to interpret.
func (s *Store) Login(ctx context.Context, email, password string, remember bool) (string, json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"email":    email,
		"password": password,
		"remember": remember,
	})
	if err != nil {
		return "", nil, err
	}

	resp, err := s.post(ctx, "/auth/api/token/", body)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, &LoginError{Status: resp.StatusCode, Message: decodeMessage(resp)}
	}

	var payload loginPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", nil, fmt.Errorf("decode login response: %w", err)
	}

	// Identity providers differ on the access token field name. The primary
	// name is preferred; the aliases are accepted with a warning so a
	// misconfigured upstream is visible in logs.
	access := payload.Access
	switch {
	case access != "":
	case payload.Token != "":
		access = payload.Token
		s.log.Warn("login response used alias access field", slog.String("field", "token"))
	case payload.IDToken != "":
		access = payload.IDToken
		s.log.Warn("login response used alias access field", slog.String("field", "id_token"))
	default:
		return "", nil, ErrNoAccessToken
	}

	if err := s.storage.Set(accessKey, access); err != nil {
		return "", nil, err
	}
	if payload.Refresh != "" {
		if err := s.storage.Set(refreshKey, payload.Refresh); err != nil {
			return "", nil, err
		}
	}

	return access, payload.User, nil
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it. Without a stored refresh token it fails before any network
// call.
func (s *Store) Refresh(ctx context.Context) error {
	refresh, err := s.storage.Get(refreshKey)
	if err != nil {
		return err
	}
	if refresh == "" {
		return ErrNoRefreshToken
	}

	body, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return err
	}

	resp, err := s.post(ctx, "/auth/api/token/refresh/", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RefreshError{Status: resp.StatusCode, Message: decodeMessage(resp)}
	}

	var payload struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if payload.Access == "" {
		return ErrNoAccessToken
	}

	return s.storage.Set(accessKey, payload.Access)
}

// Token returns the stored access token, or "" when logged out.
func (s *Store) Token() (string, error) {
	return s.storage.Get(accessKey)
}

// Claims decodes the stored access token payload without verifying the
// signature.
func (s *Store) Claims() (*TokenClaims, error) {
	tokenStr, err := s.storage.Get(accessKey)
	if err != nil {
		return nil, err
	}
	if tokenStr == "" {
		return nil, ErrNoAccessToken
	}
	return decodeClaims(tokenStr)
}

// IsExpired reports whether the stored access token is missing, undecodable,
// or within the skew window of its expiry. Errors count as expired so the
// caller always fails toward a refresh.
func (s *Store) IsExpired() bool {
	claims, err := s.Claims()
	if err != nil {
		return true
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return !time.Now().Before(claims.ExpiresAt.Add(-s.skew))
}

// EnsureFresh refreshes the access token if it is expired or near expiry.
// With no access token stored at all it does nothing: a logged-out store
// stays logged out and the caller's loop keeps idling until a login happens.
// A failed refresh of an existing token clears the session: stale credentials
// are worse than a forced re-login.
func (s *Store) EnsureFresh(ctx context.Context) error {
	tokenStr, err := s.storage.Get(accessKey)
	if err != nil {
		return err
	}
	if tokenStr == "" {
		return nil
	}
	if !s.IsExpired() {
		return nil
	}

	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("token refresh failed, logging out", slog.String("error", err.Error()))
		s.Logout()
		return err
	}
	return nil
}

// Logout deletes both stored tokens and stops auto refresh. Safe to call
// repeatedly and from the refresh goroutine itself.
func (s *Store) Logout() {
	s.mu.Lock()
	if s.cancelRefresh != nil {
		s.cancelRefresh()
		s.cancelRefresh = nil
	}
	s.mu.Unlock()

	_ = s.storage.Delete(accessKey)
	_ = s.storage.Delete(refreshKey)
}

func (s *Store) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.http.Do(req)
}

func decodeMessage(resp *http.Response) string {
	var payload errorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return http.StatusText(resp.StatusCode)
}

func decodeClaims(tokenStr string) (*TokenClaims, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	var payload struct {
		Sub      string  `json:"sub"`
		Email    string  `json:"email"`
		UserType string  `json:"user_type"`
		Exp      float64 `json:"exp"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	claims := &TokenClaims{
		Subject:  payload.Sub,
		Email:    payload.Email,
		UserType: payload.UserType,
	}
	if payload.Exp > 0 {
		claims.ExpiresAt = time.Unix(int64(payload.Exp), 0)
	}
	return claims, nil
}
