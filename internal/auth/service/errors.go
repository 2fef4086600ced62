package service

import (
	"context"
	"errors"
)

var (
	// ErrAuthentication covers every invalid, expired, revoked or replayed
	// token and every bad credential. Callers never learn which.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization means the identity is valid but lacks the role,
	// permission or team scope required.
	ErrAuthorization = errors.New("insufficient permissions")

	// ErrProfileNotFound means the token is fine but the profile is missing
	// or inactive.
	ErrProfileNotFound = errors.New("profile not found")
)

// Token rejection reasons. They reach audit logs and metrics only.
const (
	ReasonMalformed   = "malformed"
	ReasonSignature   = "signature"
	ReasonExpired     = "expired"
	ReasonNotYetValid = "not_yet_valid"
	ReasonIssuer      = "issuer"
	ReasonAudience    = "audience"
	ReasonClaims      = "claims"
	ReasonRevoked     = "revoked"
	ReasonReplayed    = "replayed"
	ReasonWrongType   = "wrong_type"
	ReasonLookup      = "lookup_failed"
)

// TokenError is returned for any rejected token. It matches
// ErrAuthentication through errors.Is.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string { return ErrAuthentication.Error() + ": " + e.Reason }

func (e *TokenError) Is(target error) bool { return target == ErrAuthentication }

func (e *TokenError) Unwrap() error { return e.Err }

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) string {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

// Auditor receives the security events raised by the services.
type Auditor interface {
	TokenRejected(ctx context.Context, reason, tokenID string)
	LoginSucceeded(ctx context.Context, userID int64, ip string)
	LoginFailed(ctx context.Context, email, ip, reason string)
	Logout(ctx context.Context, userID int64)
}

type nopAuditor struct{}

func (nopAuditor) TokenRejected(context.Context, string, string)       {}
func (nopAuditor) LoginSucceeded(context.Context, int64, string)       {}
func (nopAuditor) LoginFailed(context.Context, string, string, string) {}
func (nopAuditor) Logout(context.Context, int64)                       {}

func auditorOrNop(a Auditor) Auditor {
	if a == nil {
		return nopAuditor{}
	}
	return a
}
