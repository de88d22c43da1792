package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/AnshRaj112/flags-survey-backend/internal/cache"
	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/internal/oauth"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
)

// ErrStateMismatch means the callback's state does not match the one issued by /login.
var ErrStateMismatch = errors.New("oauth state mismatch")

// Authenticator is the provider side of the login round-trip.
type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type AuthHandler struct {
	oauth    Authenticator
	sessions *session.Manager
	profiles *cache.Cache
}

// NewAuthHandler wires the login endpoints. profiles may be nil.
func NewAuthHandler(authenticator Authenticator, sessions *session.Manager, profiles *cache.Cache) *AuthHandler {
	return &AuthHandler{oauth: authenticator, sessions: sessions, profiles: profiles}
}

// Login starts the OAuth round-trip: GET /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	state := uuid.NewString()
	sess.Set(session.KeyOAuthState, state)

	if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
		logger.WithError(err).Error("login: save session")
		writeError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the OAuth round-trip: GET /callback?code=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		logger.WithFields(logger.Fields{"error": providerErr}).Info("callback: authorization denied")
		writeError(w, http.StatusBadRequest, "Authorization was denied")
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	sess := session.FromContext(r.Context())
	if err := checkState(sess, query.Get("state")); err != nil {
		logger.WithError(err).Warn("callback: rejected")
		writeError(w, http.StatusBadRequest, "Invalid login state")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		if errors.Is(err, oauth.ErrRejected) {
			logger.WithError(err).Info("callback: code rejected")
			writeError(w, http.StatusBadRequest, "Authorization code was rejected")
			return
		}
		logger.WithError(err).Error("callback: token exchange failed")
		writeError(w, http.StatusInternalServerError, "Token exchange failed")
		return
	}

	sess.Delete(session.KeyOAuthState)
	sess.Renew()
	sess.Set(session.KeyToken, token)
	if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
		logger.WithError(err).Error("callback: save session")
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusMovedPermanently)
}

// checkState only enforces a state when /login issued one; sessions started
// directly at the provider carry none.
func checkState(sess *session.Session, got string) error {
	want, ok := sess.Get(session.KeyOAuthState)
	if !ok {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrStateMismatch
	}
	return nil
}

// Logout drops the session: POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if token := sess.Token(); token != "" {
		if err := h.profiles.Delete(r.Context(), profileCacheKey(token)); err != nil {
			logger.WithError(err).Warn("logout: drop cached profile")
		}
	}

	sess.Destroy()
	if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
		logger.WithError(err).Error("logout: delete session")
		writeError(w, http.StatusInternalServerError, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
