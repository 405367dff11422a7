// Package httpapi exposes the engine over the legacy HTTP surface: a login
// endpoint issuing the token pair and a refresh endpoint exchanging a refresh
// token for a new access token. Error bodies follow the platform's
// {"success":false,"message":...} envelope.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/webqx-health/authkit"
	"github.com/webqx-health/authkit/middleware"
)

// Auth is the subset of the engine the HTTP layer needs.
type Auth interface {
	Login(ctx context.Context, email, password string, remember bool) (*authkit.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Validate(ctx context.Context, token string) (*authkit.VerifiedClaims, error)
}

// Server holds the HTTP handlers.
type Server struct {
	auth Auth
	log  *slog.Logger
}

// NewServer wires the engine into the HTTP surface.
func NewServer(auth Auth, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{auth: auth, log: log}
}

// Handler returns the routed HTTP handler. Paths keep the trailing slash the
// platform's clients already send.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/api/token/", s.handleLogin)
	mux.HandleFunc("POST /auth/api/token/refresh/", s.handleRefresh)

	guard := middleware.Guard(s.auth)
	mux.Handle("GET /auth/api/verify/", guard(http.HandlerFunc(s.handleVerify)))

	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Access  string              `json:"access"`
	Refresh string              `json:"refresh"`
	User    authkit.UserSummary `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		s.writeAuthError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Access:  result.AccessToken,
		Refresh: result.RefreshToken,
		User:    result.User,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	access, err := s.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		s.writeAuthError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{Access: access})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":    claims.Subject,
			"email": claims.Email,
			"role":  claims.Role,
		},
	})
}

// writeAuthError maps engine errors to the legacy status codes and messages.
// Unknown errors never leak detail to the client.
func (s *Server) writeAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authkit.ErrValidation):
		writeError(w, http.StatusBadRequest, "Email and password are required")
	case errors.Is(err, authkit.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, authkit.ErrAccountDeactivated):
		writeError(w, http.StatusUnauthorized, "Account is deactivated")
	case errors.Is(err, authkit.ErrAccountLocked):
		writeError(w, http.StatusLocked, "Account temporarily locked. Try again later.")
	case errors.Is(err, authkit.ErrRefreshInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, authkit.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	default:
		s.log.ErrorContext(ctx, "auth request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
