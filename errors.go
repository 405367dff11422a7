package authkit

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// Build wired all required dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrValidation is returned when the login request body is missing the
	// email or the password. Recoverable by the caller correcting input.
	ErrValidation = errors.New("email and password are required")
	// ErrUserNotFound is returned by a [UserProvider] when no account matches
	// the lookup. The engine folds it into ErrInvalidCredentials before it
	// reaches a caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both unknown accounts and password
	// mismatches. The two causes must stay indistinguishable to prevent
	// account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDeactivated is returned when the account's active flag is
	// cleared.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrAccountLocked is returned while the failed-attempt lockout window
	// is open for the account.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrTokenInvalid is the generic verification failure for inbound bearer
	// tokens. It intentionally does not say which check failed.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrRefreshInvalid is returned when a refresh token fails signature,
	// expiry, or kind checks, or references a user that no longer exists.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	// Login fails closed in that case.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)
