package authkit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/webqx-health/authkit/internal/flows"
	"github.com/webqx-health/authkit/internal/limiters"
	"github.com/webqx-health/authkit/token"
)

type passwordHasher interface {
	Verify(password, encodedHash string) (bool, error)
	Hash(password string) (string, error)
}

// Engine is the server-side entry point: credential login, refresh exchange,
// and bearer token validation. Construct one with [Builder.Build]; all
// methods are safe for concurrent use.
type Engine struct {
	config   Config
	users    UserProvider
	tokens   *token.Manager
	hasher   passwordHasher
	verifier TokenVerifier
	lockout  *limiters.LockoutLimiter
	metrics  *Metrics
	audit    *auditDispatcher
	log      *slog.Logger
}

func flowUser(u UserRecord) flows.User {
	return flows.User{
		ID:           u.UserID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		UserType:     u.UserType,
		Role:         u.Role,
		MFAEnabled:   u.MFAEnabled,
		Permissions:  u.Permissions,
		Active:       u.Active,
	}
}

func recordUser(u flows.User) UserRecord {
	return UserRecord{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		UserType:     u.UserType,
		Role:         u.Role,
		MFAEnabled:   u.MFAEnabled,
		Permissions:  u.Permissions,
		Active:       u.Active,
	}
}

func (e *Engine) emitAudit(ctx context.Context, event string, success bool, userID, email string, cause error) {
	if e.audit == nil {
		return
	}
	ev := AuditEvent{
		EventType: event,
		UserID:    userID,
		Email:     email,
		Success:   success,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	e.audit.Emit(ctx, ev)
}

// Login authenticates email and password and issues a token pair. remember
// extends the access token lifetime. Account status and the lockout window
// are checked before the password, so a deactivated or locked account fails
// identically whether or not the password is right.
func (e *Engine) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	deps := flows.LoginDeps{
		GetUserByEmail: func(ctx context.Context, email string) (flows.User, bool, error) {
			rec, err := e.users.GetUserByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					return flows.User{}, false, nil
				}
				return flows.User{}, false, err
			}
			return flowUser(rec), true, nil
		},
		VerifyPassword: e.hasher.Verify,
		IssueAccess: func(u flows.User, remember bool) (string, error) {
			return e.tokens.IssueAccess(u.ID, u.Email, u.UserType, remember)
		},
		IssueRefresh: e.tokens.IssueRefresh,
		MetricInc: func(id int) {
			e.metrics.Inc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: flows.LoginMetrics{
			Success: int(MetricLoginSuccess),
			Failure: int(MetricLoginFailure),
			Locked:  int(MetricLoginLocked),
		},
		Events: flows.LoginEvents{
			Success: auditEventLoginSuccess,
			Failure: auditEventLoginFailure,
			Locked:  auditEventLoginLocked,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			Validation:         ErrValidation,
			InvalidCredentials: ErrInvalidCredentials,
			AccountDeactivated: ErrAccountDeactivated,
			AccountLocked:      ErrAccountLocked,
		},
	}
	if e.lockout != nil {
		deps.IsLockedOut = e.lockout.IsLocked
		deps.RecordFailure = e.lockout.RecordFailure
		deps.ResetFailures = e.lockout.Reset
	}

	result, err := flows.RunLogin(ctx, email, password, remember, deps)
	if err != nil {
		e.log.DebugContext(ctx, "login rejected", slog.String("error", err.Error()))
		return nil, err
	}

	return &LoginResult{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         summarize(recordUser(result.User)),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is not rotated; it stays valid until its own expiry.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	deps := flows.RefreshDeps{
		ParseRefresh: func(tokenStr string) (string, error) {
			claims, err := e.tokens.ParseRefresh(tokenStr)
			if err != nil {
				return "", err
			}
			return claims.Subject, nil
		},
		GetUserByID: func(ctx context.Context, userID string) (flows.User, bool, error) {
			rec, err := e.users.GetUserByID(ctx, userID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					return flows.User{}, false, nil
				}
				return flows.User{}, false, err
			}
			return flowUser(rec), true, nil
		},
		IssueAccess: func(u flows.User, remember bool) (string, error) {
			return e.tokens.IssueAccess(u.ID, u.Email, u.UserType, remember)
		},
		MetricInc: func(id int) {
			e.metrics.Inc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: flows.RefreshMetrics{
			Success: int(MetricRefreshSuccess),
			Failure: int(MetricRefreshFailure),
		},
		Events: flows.RefreshEvents{
			Success: auditEventRefreshSuccess,
			Invalid: auditEventRefreshInvalid,
		},
		Errors: flows.RefreshErrors{
			EngineNotReady:     ErrEngineNotReady,
			RefreshInvalid:     ErrRefreshInvalid,
			AccountDeactivated: ErrAccountDeactivated,
		},
	}

	access, err := flows.RunRefresh(ctx, refreshToken, deps)
	if err != nil {
		e.log.DebugContext(ctx, "refresh rejected", slog.String("error", err.Error()))
		return "", err
	}
	return access, nil
}

// Validate verifies an inbound bearer token under the configured trust model
// and returns the normalized claims.
func (e *Engine) Validate(ctx context.Context, tokenStr string) (*VerifiedClaims, error) {
	if e == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.verifier.Verify(tokenStr)
	if err != nil {
		e.metrics.Inc(MetricValidateFailure)
		e.log.DebugContext(ctx, "token rejected")
		return nil, ErrTokenInvalid
	}
	e.metrics.Inc(MetricValidateSuccess)
	return claims, nil
}

// HashPassword derives a storable hash for a new credential.
func (e *Engine) HashPassword(password string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(password)
}

// MetricsSnapshot copies the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped due to a full
// buffer.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Close flushes the audit dispatcher and stops background verification
// machinery. The engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
	if e.verifier != nil {
		e.verifier.Close()
	}
}
