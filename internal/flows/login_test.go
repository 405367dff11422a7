package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errNotReady    = errors.New("not ready")
	errValidation  = errors.New("validation")
	errBadCreds    = errors.New("bad creds")
	errDeactivated = errors.New("deactivated")
	errLocked      = errors.New("locked")
	errBackendDown = errors.New("backend down")
	errRefreshBad  = errors.New("refresh bad")
)

func baseLoginDeps(user User) LoginDeps {
	return LoginDeps{
		GetUserByEmail: func(_ context.Context, email string) (User, bool, error) {
			if email == user.Email {
				return user, true, nil
			}
			return User{}, false, nil
		},
		VerifyPassword: func(password, hash string) (bool, error) {
			return password == "right", nil
		},
		IssueAccess: func(User, bool) (string, error) {
			return "access", nil
		},
		IssueRefresh: func(string, bool) (string, error) {
			return "refresh", nil
		},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			Validation:         errValidation,
			InvalidCredentials: errBadCreds,
			AccountDeactivated: errDeactivated,
			AccountLocked:      errLocked,
		},
	}
}

func activeUser() User {
	return User{ID: "user-1", Email: "doc@example.com", Active: true}
}

func TestRunLoginLockoutBackendFailureFailsClosed(t *testing.T) {
	deps := baseLoginDeps(activeUser())
	deps.IsLockedOut = func(context.Context, string) (bool, error) {
		return false, errBackendDown
	}

	_, err := RunLogin(context.Background(), "doc@example.com", "right", false, deps)
	if !errors.Is(err, errBackendDown) {
		t.Errorf("err = %v, want backend error", err)
	}
}

func TestRunLoginRecordFailureErrorPropagates(t *testing.T) {
	deps := baseLoginDeps(activeUser())
	deps.RecordFailure = func(context.Context, string) error {
		return errBackendDown
	}

	_, err := RunLogin(context.Background(), "doc@example.com", "wrong", false, deps)
	if !errors.Is(err, errBackendDown) {
		t.Errorf("err = %v, want backend error", err)
	}
}

func TestRunLoginRecordsFailureOnlyOnMismatch(t *testing.T) {
	var recorded int
	deps := baseLoginDeps(activeUser())
	deps.RecordFailure = func(context.Context, string) error {
		recorded++
		return nil
	}

	// Unknown account: nothing to count against.
	if _, err := RunLogin(context.Background(), "nobody@example.com", "right", false, deps); !errors.Is(err, errBadCreds) {
		t.Fatalf("unknown user err = %v", err)
	}
	if recorded != 0 {
		t.Errorf("recorded %d failures for unknown user, want 0", recorded)
	}

	if _, err := RunLogin(context.Background(), "doc@example.com", "wrong", false, deps); !errors.Is(err, errBadCreds) {
		t.Fatalf("wrong password err = %v", err)
	}
	if recorded != 1 {
		t.Errorf("recorded = %d, want 1", recorded)
	}
}

func TestRunLoginStatusBeforePassword(t *testing.T) {
	user := activeUser()
	user.Active = false
	deps := baseLoginDeps(user)
	deps.VerifyPassword = func(string, string) (bool, error) {
		t.Error("password verified for deactivated account")
		return false, nil
	}

	if _, err := RunLogin(context.Background(), "doc@example.com", "right", false, deps); !errors.Is(err, errDeactivated) {
		t.Errorf("err = %v, want deactivated", err)
	}
}

func TestRunLoginMissingDeps(t *testing.T) {
	deps := LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}}
	if _, err := RunLogin(context.Background(), "a@b.c", "pw", false, deps); !errors.Is(err, errNotReady) {
		t.Errorf("err = %v, want not ready", err)
	}
}

func TestRunRefreshEmptyToken(t *testing.T) {
	deps := RefreshDeps{
		ParseRefresh: func(string) (string, error) { return "", errRefreshBad },
		GetUserByID: func(context.Context, string) (User, bool, error) {
			return User{}, false, nil
		},
		IssueAccess: func(User, bool) (string, error) { return "access", nil },
		Errors: RefreshErrors{
			EngineNotReady: errNotReady,
			RefreshInvalid: errRefreshBad,
		},
	}

	if _, err := RunRefresh(context.Background(), "", deps); !errors.Is(err, errRefreshBad) {
		t.Errorf("err = %v, want refresh invalid", err)
	}
}
