package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hollandstar/sportteams/internal/auth/service"
	"github.com/hollandstar/sportteams/pkg/authsdk"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

type AuthHandler struct {
	Sessions *service.SessionService
}

// HandleLogin exchanges credentials for a token pair.
//
//	@Summary		Log in
//	@Description	Verifies email and password and returns the caller with a fresh access and refresh token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many requests"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	sess, pair, err := h.Sessions.Login(ctx, req.Email, req.Password, httpx.ClientIP(r))
	switch {
	case errors.Is(err, service.ErrAuthentication):
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	case err != nil:
		slogx.FromContext(ctx).Error("login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		User:          userInfo(sess),
		TokenResponse: tokenResponse(pair),
	})
}

// HandleRefresh rotates a refresh token.
//
//	@Summary		Refresh tokens
//	@Description	Consumes a refresh token and returns a new token pair. Refresh tokens are single use.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid, expired or reused refresh token"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many requests"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, service.ErrAuthentication), errors.Is(err, service.ErrProfileNotFound):
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	case err != nil:
		slogx.FromContext(ctx).Error("refresh failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleMe describes the caller.
//
//	@Summary		Current user
//	@Description	Returns the authenticated user with their team scopes and permissions.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Profile missing or inactive"
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httpx.IdentityFrom(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	sess, err := h.Sessions.Me(ctx, id.UserID)
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		authsdk.ErrProfileNotFound.WriteError(w)
		return
	case err != nil:
		slogx.FromContext(ctx).Error("failed to load session", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	info := userInfo(sess)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		User:        info,
		TeamScopes:  info.TeamScopes,
		Permissions: info.Permissions,
	})
}

// HandleLogout ends the session. It always reports success.
//
//	@Summary		Log out
//	@Description	Revokes the presented access token and all refresh tokens of the caller.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := httpx.IdentityFrom(r.Context()); ok {
		h.Sessions.Logout(r.Context(), id.UserID, id.TokenID)
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{Success: true})
}
