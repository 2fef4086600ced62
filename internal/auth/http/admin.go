package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hollandstar/sportteams/internal/auth/service"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/pkg/authsdk"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

// SecurityContextsHandler exposes the persisted security context table.
type SecurityContextsHandler struct {
	Contexts *service.SecurityContextService
}

// ServeHTTP returns the last persisted security context of a user.
//
//	@Summary		Inspect a persisted security context
//	@Description	Admin only. Returns the durable copy written the last time the user's context was computed.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			user_id	path		int	true	"User id"
//	@Success		200		{object}	authsdk.SecurityContextResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed id"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Caller is not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse	"No persisted context"
//	@Router			/v1/admin/security-contexts/{user_id} [get].
func (h *SecurityContextsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	stored, err := h.Contexts.Persisted(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
		return
	case err != nil:
		slogx.FromContext(ctx).Error("failed to load security context", "target_user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SecurityContextResponse{
		UserID:       stored.UserID,
		ProfileID:    stored.ProfileID,
		Role:         stored.Role.String(),
		TeamScopes:   nonNil(stored.TeamScopes),
		Permissions:  stored.Permissions,
		LastActivity: stored.LastActivity.Unix(),
		ExpiresAt:    stored.ExpiresAt.Unix(),
	})
}
