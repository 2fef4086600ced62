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

// PlayersHandler serves team-scoped roster reads.
type PlayersHandler struct {
	Contexts *service.SecurityContextService
}

// HandleList lists the players visible to the caller.
//
//	@Summary		List players
//	@Description	Admins see every active player, players see themselves and their teammates, coaches see the players of their teams.
//	@Tags			Players
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.PlayersResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Profile missing or inactive"
//	@Router			/v1/players [get].
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, ok := SecurityContextFrom(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	players, err := h.Contexts.ListPlayers(ctx, sc)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list players", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]authsdk.Player, 0, len(players))
	for _, p := range players {
		out = append(out, player(p))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.PlayersResponse{Players: out})
}

// HandleGet returns one player if the caller may see it.
//
//	@Summary		Get player
//	@Tags			Players
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Player id"
//	@Success		200	{object}	authsdk.Player
//	@Failure		400	{object}	authsdk.ErrorResponse	"Malformed id"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Player outside the caller's scope"
//	@Failure		404	{object}	authsdk.ErrorResponse	"No such player"
//	@Router			/v1/players/{id} [get].
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, ok := SecurityContextFrom(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	p, err := h.Contexts.GetPlayer(ctx, sc, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
		return
	case errors.Is(err, service.ErrAuthorization):
		authsdk.ErrInsufficientPermissions.WriteError(w)
		return
	case err != nil:
		slogx.FromContext(ctx).Error("failed to load player", "player_id", id, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := player(p)
	canEdit := sc.CanEdit(p)
	out.CanEdit = &canEdit
	httpx.WriteJSON(w, http.StatusOK, out)
}
