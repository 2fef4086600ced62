package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

// Session is what login and /me report about the caller.
type Session struct {
	User    domain.User
	Profile domain.Profile
	Context domain.SecurityContext
}

// SessionService implements login, refresh, me and logout on top of the
// token and security context services.
type SessionService struct {
	Store     store.Store
	Tokens    *TokenService
	Contexts  *SecurityContextService
	Passwords cryptox.PasswordHasher
	Audit     Auditor
	Now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// burnPasswordCheck runs a verification against a throwaway hash so an
// unknown email costs as much as a wrong password.
func (s *SessionService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Passwords.Hash(cryptox.MustGenerateToken(cryptox.TokenSize128))
	})
	_ = s.Passwords.Verify(password, s.dummyHash)
}

// Login checks credentials and issues a token pair. Unknown emails, wrong
// passwords and inactive profiles all fail with ErrAuthentication.
func (s *SessionService) Login(ctx context.Context, email, password, ip string) (Session, domain.TokenPair, error) {
	audit := auditorOrNop(s.Audit)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.burnPasswordCheck(password)
		audit.LoginFailed(ctx, email, ip, "unknown_user")
		return Session{}, domain.TokenPair{}, ErrAuthentication
	}
	if err != nil {
		return Session{}, domain.TokenPair{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.Passwords.Verify(password, user.PasswordHash); err != nil {
		audit.LoginFailed(ctx, email, ip, "bad_password")
		return Session{}, domain.TokenPair{}, ErrAuthentication
	}

	sess, err := s.session(ctx, user)
	if errors.Is(err, ErrProfileNotFound) {
		audit.LoginFailed(ctx, email, ip, "profile_inactive")
		return Session{}, domain.TokenPair{}, ErrAuthentication
	}
	if err != nil {
		return Session{}, domain.TokenPair{}, err
	}

	now := s.now()
	if err := s.Store.Profiles().TouchLastLogin(ctx, sess.Profile.ID, now); err != nil {
		slogx.FromContext(ctx).Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		sess.Profile.LastLoginAt = &now
	}

	pair, err := s.Tokens.IssuePair(ctx, sess.Context)
	if err != nil {
		return Session{}, domain.TokenPair{}, err
	}

	audit.LoginSucceeded(ctx, user.ID, ip)
	return sess, pair, nil
}

// Refresh rotates a refresh token. A profile that went missing since the
// token was issued fails as ErrProfileNotFound.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return s.Tokens.RotateRefresh(ctx, refreshToken, s.Contexts)
}

// Me describes the authenticated caller.
func (s *SessionService) Me(ctx context.Context, userID int64) (Session, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrProfileNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.session(ctx, user)
}

func (s *SessionService) session(ctx context.Context, user domain.User) (Session, error) {
	sc, err := s.Contexts.Load(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	profile, err := s.Store.Profiles().GetProfileByUserID(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrProfileNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load profile: %w", err)
	}
	return Session{User: user, Profile: profile, Context: sc}, nil
}

// Logout revokes the presented access token and every refresh token of the
// user, and drops the cached context. Failures are logged, never returned.
func (s *SessionService) Logout(ctx context.Context, userID int64, accessTokenID string) {
	l := slogx.FromContext(ctx)

	if accessTokenID != "" {
		if err := s.Tokens.Revoke(ctx, accessTokenID); err != nil {
			l.Warn("logout: failed to revoke access token", "user_id", userID, "error", err)
		}
	}
	if n, err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, s.now()); err != nil {
		l.Warn("logout: failed to revoke refresh tokens", "user_id", userID, "error", err)
	} else {
		l.Debug("logout: revoked refresh tokens", "user_id", userID, "count", n)
	}
	if err := s.Contexts.Invalidate(ctx, userID); err != nil {
		l.Warn("logout: failed to drop cached security context", "user_id", userID, "error", err)
	}

	auditorOrNop(s.Audit).Logout(ctx, userID)
}
