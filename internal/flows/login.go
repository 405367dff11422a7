package flows

import (
	"context"
)

// User is the flow-local account model. The root package maps its own
// UserRecord into this shape.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	UserType     string
	Role         string
	MFAEnabled   bool
	Permissions  []string
	Active       bool
}

// LoginResult carries the issued token pair and the authenticated user.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// LoginMetrics carries metric IDs incremented by the login flow.
type LoginMetrics struct {
	Success int
	Failure int
	Locked  int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success string
	Failure string
	Locked  string
}

// LoginErrors carries host-level sentinel errors returned by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	Validation         error
	InvalidCredentials error
	AccountDeactivated error
	AccountLocked      error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	GetUserByEmail func(context.Context, string) (User, bool, error)
	VerifyPassword func(password, hash string) (bool, error)
	IssueAccess    func(u User, remember bool) (string, error)
	IssueRefresh   func(userID string, long bool) (string, error)

	// Lockout hooks are optional; a nil hook disables that step.
	IsLockedOut   func(context.Context, string) (bool, error)
	RecordFailure func(context.Context, string) error
	ResetFailures func(context.Context, string) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, email string, cause error)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin executes credential validation, account status checks, the lockout
// predicate, and password verification, then issues the token pair.
//
// Status and lockout are checked before the password so a deactivated or
// locked account fails the same way regardless of password correctness.
func RunLogin(ctx context.Context, email, password string, remember bool, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error) {}
	}
	if deps.GetUserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueAccess == nil ||
		deps.IssueRefresh == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if email == "" || password == "" {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, deps.Errors.Validation)
		return nil, deps.Errors.Validation
	}

	user, found, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, err)
		return nil, err
	}
	if !found {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, deps.Errors.InvalidCredentials)
		return nil, deps.Errors.InvalidCredentials
	}

	if !user.Active {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, deps.Errors.AccountDeactivated)
		return nil, deps.Errors.AccountDeactivated
	}

	if deps.IsLockedOut != nil {
		locked, err := deps.IsLockedOut(ctx, email)
		if err != nil {
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, err)
			return nil, err
		}
		if locked {
			deps.MetricInc(deps.Metrics.Locked)
			deps.EmitAudit(ctx, deps.Events.Locked, false, user.ID, email, deps.Errors.AccountLocked)
			return nil, deps.Errors.AccountLocked
		}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, err)
		return nil, err
	}
	if !ok {
		if deps.RecordFailure != nil {
			if recErr := deps.RecordFailure(ctx, email); recErr != nil {
				deps.MetricInc(deps.Metrics.Failure)
				deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, recErr)
				return nil, recErr
			}
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, deps.Errors.InvalidCredentials)
		return nil, deps.Errors.InvalidCredentials
	}
	password = ""

	access, err := deps.IssueAccess(user, remember)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, err)
		return nil, err
	}

	// The legacy issuance path always mints the long-lived refresh token;
	// the access token alone shortens with remember=false.
	refresh, err := deps.IssueRefresh(user.ID, true)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, err)
		return nil, err
	}

	if deps.ResetFailures != nil {
		if err := deps.ResetFailures(ctx, email); err != nil {
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, email, err)
			return nil, err
		}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID, email, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}
