package authkit

import (
	"time"

	"github.com/webqx-health/authkit/jwks"
	"github.com/webqx-health/authkit/token"
)

// VerifiedClaims is the normalized result of [Engine.Validate], independent
// of which trust model verified the token. Fields a given token type does not
// carry are left zero.
type VerifiedClaims struct {
	Subject     string
	Email       string
	Name        string
	Role        string
	Specialties []string
	ExpiresAt   time.Time
}

// TokenVerifier validates an inbound bearer token. Implementations must
// return [ErrTokenInvalid] for every failure mode.
type TokenVerifier interface {
	Verify(tokenStr string) (*VerifiedClaims, error)
	Close()
}

type sharedSecretVerifier struct {
	manager *token.Manager
}

func (v *sharedSecretVerifier) Verify(tokenStr string) (*VerifiedClaims, error) {
	claims, err := v.manager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	out := &VerifiedClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.UserType,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (v *sharedSecretVerifier) Close() {}

type jwksVerifier struct {
	verifier *jwks.Verifier
}

func (v *jwksVerifier) Verify(tokenStr string) (*VerifiedClaims, error) {
	claims, err := v.verifier.Verify(tokenStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	out := &VerifiedClaims{
		Subject:     claims.Subject,
		Email:       claims.Email,
		Name:        claims.Name,
		Role:        claims.Role,
		Specialties: claims.Specialties,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (v *jwksVerifier) Close() {
	v.verifier.Close()
}
