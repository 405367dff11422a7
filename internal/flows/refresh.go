package flows

import (
	"context"
)

// RefreshMetrics carries metric IDs incremented by the refresh flow.
type RefreshMetrics struct {
	Success int
	Failure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	Success string
	Invalid string
}

// RefreshErrors carries host-level sentinel errors returned by the refresh
// flow.
type RefreshErrors struct {
	EngineNotReady     error
	RefreshInvalid     error
	AccountDeactivated error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	// ParseRefresh validates the presented token and returns the subject
	// user ID. Any parse failure must come back as an error; the flow maps
	// it to Errors.RefreshInvalid.
	ParseRefresh func(token string) (string, error)
	GetUserByID  func(context.Context, string) (User, bool, error)
	IssueAccess  func(u User, remember bool) (string, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, email string, cause error)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh exchanges a refresh token for a new short-lived access token.
// The account is re-checked so a deactivated user cannot keep minting access
// tokens from an old refresh token.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (string, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error) {}
	}
	if deps.ParseRefresh == nil || deps.GetUserByID == nil || deps.IssueAccess == nil {
		return "", deps.Errors.EngineNotReady
	}

	if refreshToken == "" {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, "", "", deps.Errors.RefreshInvalid)
		return "", deps.Errors.RefreshInvalid
	}

	userID, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, "", "", err)
		return "", deps.Errors.RefreshInvalid
	}

	user, found, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, userID, "", err)
		return "", err
	}
	if !found {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, userID, "", deps.Errors.RefreshInvalid)
		return "", deps.Errors.RefreshInvalid
	}

	if !user.Active {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, user.ID, user.Email, deps.Errors.AccountDeactivated)
		return "", deps.Errors.AccountDeactivated
	}

	access, err := deps.IssueAccess(user, false)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, user.ID, user.Email, err)
		return "", err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID, user.Email, nil)
	return access, nil
}
