package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/flags-survey-backend/internal/cache"
	"github.com/AnshRaj112/flags-survey-backend/internal/dispatch"
	"github.com/AnshRaj112/flags-survey-backend/internal/handlers"
	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/internal/models"
	"github.com/AnshRaj112/flags-survey-backend/internal/oauth"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
	"github.com/AnshRaj112/flags-survey-backend/internal/submission"
	"github.com/AnshRaj112/flags-survey-backend/pkg/utils"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, *models.Submission) dispatch.Report {
	return dispatch.Report{Status: dispatch.Delivered}
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger.SetOutput(io.Discard)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	secret := "0123456789abcdef0123456789abcdef"
	key, err := utils.DeriveKey(secret, "flags-session-store")
	require.NoError(t, err)
	sessions, err := session.NewManager(session.NewRedisStore(client, key), secret, time.Hour, false)
	require.NoError(t, err)

	discord := oauth.NewClient(oauth.Config{ClientID: "cid", RedirectURI: "http://localhost/callback", BaseURL: "https://discord.example/api"})
	profiles := cache.New(client, time.Minute)

	r := chi.NewRouter()
	SetupRoutes(r, sessions, Handlers{
		Auth:   handlers.NewAuthHandler(discord, sessions, profiles),
		User:   handlers.NewUserHandler(discord, profiles),
		Submit: handlers.NewSubmitHandler(submission.NewNormalizer(), nopDispatcher{}, sessions),
	})
	return r
}

func TestRoutes(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/login", http.StatusFound},
		{http.MethodGet, "/callback", http.StatusBadRequest},
		{http.MethodGet, "/user", http.StatusBadRequest},
		{http.MethodPost, "/submit", http.StatusBadRequest},
		{http.MethodPost, "/logout", http.StatusNoContent},
		{http.MethodGet, "/submit", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestLoginRedirectsToProvider(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://discord.example/api/oauth2/authorize")
	assert.NotEmpty(t, w.Result().Cookies())
}
