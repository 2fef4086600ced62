package http

import (
	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/service"
	"github.com/hollandstar/sportteams/pkg/authsdk"
)

func userInfo(s service.Session) authsdk.UserInfo {
	return authsdk.UserInfo{
		ID:                s.User.ID,
		ProfileID:         s.Profile.ID,
		Name:              s.Profile.Name,
		Email:             s.User.Email,
		Role:              s.Context.Role.String(),
		PreferredLanguage: s.Profile.PreferredLanguage,
		TeamScopes:        nonNil(s.Context.TeamScopes),
		Permissions:       s.Context.Permissions,
	}
}

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}

func player(p domain.Player) authsdk.Player {
	return authsdk.Player{
		ID:        p.ID,
		Name:      p.Name,
		ProfileID: p.ProfileID,
		TeamID:    p.TeamID,
		IsActive:  p.IsActive,
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
