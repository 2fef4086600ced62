package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeySize is the minimum HMAC key length in bytes.
const MinKeySize = 32

var (
	ErrWeakKey      = errors.New("jwtx: signing key shorter than 32 bytes")
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Options captures the expectations enforced on Verify.
type Options struct {
	// Issuer the token must carry (iss). Empty means "don't care".
	Issuer string

	// Audience the token must contain (aud). Empty means "don't care".
	Audience string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	Leeway time.Duration

	// Now overrides the clock used for time based claims.
	Now func() time.Time
}

// HS256 signs and verifies claims with a shared HMAC-SHA256 key.
type HS256 struct {
	key    []byte
	opts   Options
	parser *jwt.Parser
}

// NewHS256 returns an HS256 signer/verifier for key.
func NewHS256(key []byte, opts Options) (*HS256, error) {
	if len(key) < MinKeySize {
		return nil, ErrWeakKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithTimeFunc(opts.Now),
	}
	if opts.Issuer != "" {
		popts = append(popts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		popts = append(popts, jwt.WithAudience(opts.Audience))
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &HS256{key: k, opts: opts, parser: jwt.NewParser(popts...)}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign returns the compact JWS for c.
func (h *HS256) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := tok.SignedString(h.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Verify checks the signature and registered claims, returning the decoded
// claims. Errors are one of the package sentinels.
func (h *HS256) Verify(token string) (Claims, error) {
	var c Claims
	_, err := h.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return h.key, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	return c, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrInvalidClaim
	default:
		return ErrMalformed
	}
}
