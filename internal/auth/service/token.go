package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/internal/telemetry"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/idx"
	"github.com/hollandstar/sportteams/pkg/jwtx"
	"github.com/hollandstar/sportteams/pkg/kvstore"
)

// DefaultReplayWindow is how long a consumed jti stays marked as used.
const DefaultReplayWindow = 60 * time.Second

const (
	revocationPrefix = "token_hash:"
	replayPrefix     = "token_fp:"

	markerValid = "valid"
	markerUsed  = "used"
)

// ContextLoader resolves the security context embedded in new access tokens.
type ContextLoader interface {
	Load(ctx context.Context, userID int64) (domain.SecurityContext, error)
}

// TokenService issues and validates sealed session tokens.
//
// A token is an HS256 JWS sealed with AES-256-GCM. Every issued jti gets a
// revocation marker in KV that lives as long as the token; a token whose
// marker is gone is revoked. Refresh tokens are also persisted, keyed by the
// SHA-256 of their jti, and the row's revoked flag decides rotation races.
type TokenService struct {
	Signer *jwtx.HS256
	Sealer *cryptox.Sealer
	KV     kvstore.Store
	Store  store.Store

	// Issuer is the service URL. It is used for both iss and aud.
	Issuer string

	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ReplayWindow time.Duration

	// StrictReplay applies the single-use replay marker to access tokens as
	// well, which rejects any access token presented twice per window.
	StrictReplay bool

	Audit   Auditor
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) tracer() trace.Tracer {
	if s.Tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return s.Tracer
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}

func (s *TokenService) replayWindow() time.Duration {
	if s.ReplayWindow <= 0 {
		return DefaultReplayWindow
	}
	return s.ReplayWindow
}

func revocationKey(jti string) string { return revocationPrefix + cryptox.FingerprintToken(jti) }
func replayKey(jti string) string     { return replayPrefix + jti }

// AccessClaims builds the claim set for an access token carrying sc.
func AccessClaims(sc domain.SecurityContext) jwtx.Claims {
	return jwtx.Claims{
		UserID:      sc.UserID,
		ProfileID:   sc.ProfileID,
		Role:        sc.Role.String(),
		TeamScopes:  sc.TeamScopes,
		Permissions: sc.Permissions,
	}
}

// Issue fills in the registered claims, signs and seals c, and records the
// revocation marker. A caller-supplied exp or jti is kept.
func (s *TokenService) Issue(ctx context.Context, c jwtx.Claims) (string, error) {
	now := s.now()

	if c.ExpiresAt == nil {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(s.accessTTL()))
	}
	if c.ID == "" {
		jti, err := cryptox.GenerateHex(cryptox.TokenSize128)
		if err != nil {
			return "", err
		}
		c.ID = jti
	}
	c.IssuedAt = jwt.NewNumericDate(now)
	c.NotBefore = jwt.NewNumericDate(now.Add(-jwtx.NotBeforeSkew))
	c.Issuer = s.Issuer
	c.Audience = jwt.ClaimStrings{s.Issuer}

	signed, err := s.Signer.Sign(c)
	if err != nil {
		return "", err
	}
	token, err := s.Sealer.Seal([]byte(signed))
	if err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}

	if err := s.KV.Put(ctx, revocationKey(c.ID), []byte(markerValid), c.ExpiresAt.Sub(now)); err != nil {
		return "", fmt.Errorf("record revocation marker: %w", err)
	}

	kind := "access"
	if c.IsRefresh() {
		kind = "refresh"
	}
	s.Metrics.TokenIssued(ctx, kind)
	return token, nil
}

// IssueRefresh persists a refresh token row for userID and returns the
// sealed token.
func (s *TokenService) IssueRefresh(ctx context.Context, userID int64) (string, error) {
	now := s.now()
	exp := now.Add(s.refreshTTL())

	jti, err := cryptox.GenerateHex(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	err = s.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(jti),
		ExpiresAt: exp,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("persist refresh token: %w", err)
	}

	return s.Issue(ctx, jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: jti, ExpiresAt: jwt.NewNumericDate(exp)},
		UserID:           userID,
		Type:             jwtx.TypeRefresh,
	})
}

// IssuePair issues a fresh access and refresh token for sc.
func (s *TokenService) IssuePair(ctx context.Context, sc domain.SecurityContext) (domain.TokenPair, error) {
	access, err := s.Issue(ctx, AccessClaims(sc))
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(ctx, sc.UserID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL() / time.Second),
	}, nil
}

// ValidateAccess returns the claims of a live access token. Every failure is
// a *TokenError matching ErrAuthentication.
func (s *TokenService) ValidateAccess(ctx context.Context, token string) (jwtx.Claims, error) {
	ctx, span := s.tracer().Start(ctx, "TokenService.ValidateAccess")
	defer span.End()

	c, err := s.open(ctx, token)
	if err != nil {
		return jwtx.Claims{}, s.traced(span, err)
	}
	if c.IsRefresh() {
		return jwtx.Claims{}, s.traced(span, s.reject(ctx, ReasonWrongType, c.ID, nil))
	}
	if s.StrictReplay {
		if err := s.consume(ctx, c.ID); err != nil {
			return jwtx.Claims{}, s.traced(span, err)
		}
	}
	return c, nil
}

// ValidateBearer adapts ValidateAccess to the bearer gate.
func (s *TokenService) ValidateBearer(ctx context.Context, token string) (httpx.Identity, error) {
	c, err := s.ValidateAccess(ctx, token)
	if err != nil {
		return httpx.Identity{}, err
	}
	return httpx.Identity{UserID: c.UserID, ProfileID: c.ProfileID, Role: c.Role, TokenID: c.ID}, nil
}

// RotateRefresh consumes a refresh token and issues a new pair. The persisted
// row is revoked first; when two rotations race only the one that flips the
// row wins.
func (s *TokenService) RotateRefresh(ctx context.Context, token string, contexts ContextLoader) (domain.TokenPair, error) {
	ctx, span := s.tracer().Start(ctx, "TokenService.RotateRefresh")
	defer span.End()

	c, err := s.open(ctx, token)
	if err != nil {
		return domain.TokenPair{}, s.traced(span, err)
	}
	if !c.IsRefresh() {
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonWrongType, c.ID, nil))
	}
	if err := s.consume(ctx, c.ID); err != nil {
		return domain.TokenPair{}, s.traced(span, err)
	}

	now := s.now()
	hash := cryptox.FingerprintToken(c.ID)

	row, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonRevoked, c.ID, err))
	case err != nil:
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonLookup, c.ID, err))
	case row.Revoked || row.UserID != c.UserID:
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonRevoked, c.ID, nil))
	case !now.Before(row.ExpiresAt):
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonExpired, c.ID, nil))
	}

	won, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash, now)
	if err != nil {
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonLookup, c.ID, err))
	}
	if !won {
		return domain.TokenPair{}, s.traced(span, s.reject(ctx, ReasonRevoked, c.ID, nil))
	}
	_ = s.KV.Forget(ctx, revocationKey(c.ID))

	sc, err := contexts.Load(ctx, c.UserID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.TokenPair{}, err
	}
	return s.IssuePair(ctx, sc)
}

// Revoke removes the revocation marker of jti, invalidating the token
// before its exp.
func (s *TokenService) Revoke(ctx context.Context, jti string) error {
	return s.KV.Forget(ctx, revocationKey(jti))
}

// open unseals and verifies token and checks its revocation marker.
func (s *TokenService) open(ctx context.Context, token string) (jwtx.Claims, error) {
	raw, err := s.Sealer.Open(token)
	if err != nil {
		return jwtx.Claims{}, s.reject(ctx, ReasonMalformed, "", err)
	}

	c, err := s.Signer.Verify(string(raw))
	if err != nil {
		return jwtx.Claims{}, s.reject(ctx, verifyReason(err), "", err)
	}
	if c.ID == "" {
		return jwtx.Claims{}, s.reject(ctx, ReasonClaims, "", nil)
	}

	live, err := s.KV.Has(ctx, revocationKey(c.ID))
	if err != nil {
		return jwtx.Claims{}, s.reject(ctx, ReasonLookup, c.ID, err)
	}
	if !live {
		return jwtx.Claims{}, s.reject(ctx, ReasonRevoked, c.ID, nil)
	}
	return c, nil
}

// consume sets the single-use marker for jti and fails when it was already
// set within the replay window.
func (s *TokenService) consume(ctx context.Context, jti string) error {
	fresh, err := s.KV.PutIfAbsent(ctx, replayKey(jti), []byte(markerUsed), s.replayWindow())
	if err != nil {
		return s.reject(ctx, ReasonLookup, jti, err)
	}
	if !fresh {
		return s.reject(ctx, ReasonReplayed, jti, nil)
	}
	return nil
}

func (s *TokenService) reject(ctx context.Context, reason, jti string, cause error) error {
	auditorOrNop(s.Audit).TokenRejected(ctx, reason, jti)
	return &TokenError{Reason: reason, Err: cause}
}

func (s *TokenService) traced(span trace.Span, err error) error {
	span.SetAttributes(attribute.String("auth.reject_reason", ReasonOf(err)))
	span.SetStatus(codes.Error, "token rejected")
	return err
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return ReasonExpired
	case errors.Is(err, jwtx.ErrNotYetValid):
		return ReasonNotYetValid
	case errors.Is(err, jwtx.ErrInvalidSig):
		return ReasonSignature
	case errors.Is(err, jwtx.ErrIssuer):
		return ReasonIssuer
	case errors.Is(err, jwtx.ErrAudience):
		return ReasonAudience
	case errors.Is(err, jwtx.ErrInvalidClaim):
		return ReasonClaims
	default:
		return ReasonMalformed
	}
}
