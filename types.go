package authkit

import "context"

// UserProvider is the interface callers implement to integrate authkit with
// their identity store. Lookups by email must be case-insensitive; the store
// owns normalization.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// UserRecord is the account record returned by [UserProvider]. It carries the
// credential hash, the active flag, and the profile fields that end up in the
// login response.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	FullName     string
	UserType     string
	Role         string
	MFAEnabled   bool
	Permissions  []string
	Active       bool
}

// UserSummary is the sanitized user view included in a login response. It
// never carries the password hash.
type UserSummary struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	UserType    string   `json:"user_type"`
	RoleInfo    RoleInfo `json:"role_info"`
	MFAEnabled  bool     `json:"mfa_enabled"`
	Permissions []string `json:"permissions"`
}

// RoleInfo is the role metadata attached to a [UserSummary].
type RoleInfo struct {
	Role     string `json:"role"`
	UserType string `json:"user_type"`
}

// LoginResult is returned by [Engine.Login]. Callers are responsible for
// persisting the tokens; composition here has no side effects.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         UserSummary
}

func summarize(u UserRecord) UserSummary {
	perms := make([]string, len(u.Permissions))
	copy(perms, u.Permissions)

	return UserSummary{
		ID:          u.UserID,
		Email:       u.Email,
		FullName:    u.FullName,
		UserType:    u.UserType,
		RoleInfo:    RoleInfo{Role: u.Role, UserType: u.UserType},
		MFAEnabled:  u.MFAEnabled,
		Permissions: perms,
	}
}
