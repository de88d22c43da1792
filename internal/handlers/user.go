package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/AnshRaj112/flags-survey-backend/internal/cache"
	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/internal/models"
	"github.com/AnshRaj112/flags-survey-backend/internal/oauth"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
)

// ProfileFetcher resolves an access token to the caller's profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*models.Profile, error)
}

type UserHandler struct {
	profiles ProfileFetcher
	cache    *cache.Cache
}

func NewUserHandler(profiles ProfileFetcher, profileCache *cache.Cache) *UserHandler {
	return &UserHandler{profiles: profiles, cache: profileCache}
}

func profileCacheKey(token string) string {
	return cache.Key("profile", token)
}

// GetUser returns the signed-in user's profile: GET /user
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	token := session.FromContext(r.Context()).Token()
	if token == "" {
		writeError(w, http.StatusBadRequest, "Not signed in")
		return
	}

	key := profileCacheKey(token)
	var profile models.Profile
	hit, err := h.cache.Get(r.Context(), key, &profile)
	if err != nil {
		logger.WithError(err).Warn("user: cache read failed")
	}
	if hit {
		writeJSON(w, http.StatusOK, profile)
		return
	}

	fetched, err := h.profiles.FetchProfile(r.Context(), token)
	if err != nil {
		if errors.Is(err, oauth.ErrRejected) {
			logger.WithError(err).Info("user: profile rejected")
			writeError(w, http.StatusBadRequest, "Could not load profile")
			return
		}
		logger.WithError(err).Error("user: profile fetch failed")
		writeError(w, http.StatusInternalServerError, "Could not load profile")
		return
	}

	if err := h.cache.Set(r.Context(), key, fetched); err != nil {
		logger.WithError(err).Warn("user: cache write failed")
	}
	writeJSON(w, http.StatusOK, fetched)
}
