package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	result, err := engine.Login(ctx, user.Email, "password123", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("missing token in login result")
	}
	if result.User.ID != user.UserID {
		t.Errorf("user ID = %q, want %q", result.User.ID, user.UserID)
	}
	if result.User.RoleInfo.Role != "physician" {
		t.Errorf("role = %q, want physician", result.User.RoleInfo.Role)
	}

	claims, err := engine.Validate(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != user.UserID {
		t.Errorf("subject = %q, want %q", claims.Subject, user.UserID)
	}
}

func TestLoginMissingInput(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, testConfig(), testUser(t))

	if _, err := engine.Login(ctx, "", "password123", false); !errors.Is(err, ErrValidation) {
		t.Errorf("missing email err = %v, want ErrValidation", err)
	}
	if _, err := engine.Login(ctx, "doc@example.com", "", false); !errors.Is(err, ErrValidation) {
		t.Errorf("missing password err = %v, want ErrValidation", err)
	}
}

func TestLoginUnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	_, errUnknown := engine.Login(ctx, "nobody@example.com", "password123", false)
	_, errWrong := engine.Login(ctx, user.Email, "wrong-password", false)

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Error("unknown-user and wrong-password errors are distinguishable")
	}
}

func TestLoginDeactivatedRegardlessOfPassword(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	user.Active = false
	engine := newTestEngine(t, testConfig(), user)

	if _, err := engine.Login(ctx, user.Email, "password123", false); !errors.Is(err, ErrAccountDeactivated) {
		t.Errorf("right password err = %v, want ErrAccountDeactivated", err)
	}
	if _, err := engine.Login(ctx, user.Email, "wrong-password", false); !errors.Is(err, ErrAccountDeactivated) {
		t.Errorf("wrong password err = %v, want ErrAccountDeactivated", err)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	// Threshold is 3 in testConfig.
	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, user.Email, "wrong-password", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// Locked now, even with the right password.
	if _, err := engine.Login(ctx, user.Email, "password123", false); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("locked login err = %v, want ErrAccountLocked", err)
	}
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, user.Email, "wrong-password", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i+1, err)
		}
	}
	if _, err := engine.Login(ctx, user.Email, "password123", false); err != nil {
		t.Fatalf("Login after failures: %v", err)
	}

	// The counter was reset, so two more failures must not lock.
	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, user.Email, "wrong-password", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset attempt %d err = %v, want ErrInvalidCredentials", i+1, err)
		}
	}
}

func TestLoginRememberExtendsAccessToken(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	short, err := engine.Login(ctx, user.Email, "password123", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	long, err := engine.Login(ctx, user.Email, "password123", true)
	if err != nil {
		t.Fatalf("Login remember: %v", err)
	}

	shortClaims, err := engine.Validate(ctx, short.AccessToken)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	longClaims, err := engine.Validate(ctx, long.AccessToken)
	if err != nil {
		t.Fatalf("Validate remember: %v", err)
	}
	if !longClaims.ExpiresAt.After(shortClaims.ExpiresAt) {
		t.Error("remember=true access token does not outlive the normal one")
	}
}

func TestLoginResultOmitsPasswordHash(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	result, err := engine.Login(ctx, user.Email, "password123", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.Email != user.Email || result.User.FullName != user.FullName {
		t.Error("user summary missing profile fields")
	}
	// UserSummary has no hash field at all; assert the summary is built from
	// the record, not the record itself.
	if len(result.User.Permissions) != 1 || result.User.Permissions[0] != "charts:read" {
		t.Errorf("permissions = %v", result.User.Permissions)
	}
}

func TestLoginMetrics(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	engine := newTestEngine(t, testConfig(), user)

	_, _ = engine.Login(ctx, user.Email, "password123", false)
	_, _ = engine.Login(ctx, user.Email, "wrong-password", false)

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Errorf("login success count = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Errorf("login failure count = %d, want 1", snap.Counters[MetricLoginFailure])
	}
}
