package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:5173/callback",
		BaseURL:      srv.URL + "/api",
		CDNBaseURL:   "https://cdn.example",
		Timeout:      2 * time.Second,
	})
}

func TestExchangeSuccess(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":604800}`))
	}))
	defer srv.Close()

	token, err := newTestClient(srv).Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "http://localhost:5173/callback", form.Get("redirect_uri"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "identify", form.Get("scope"))
}

func TestExchangeFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"provider error status", http.StatusBadRequest, `{"error":"invalid_grant"}`, ErrUnavailable},
		{"provider outage", http.StatusBadGateway, `upstream down`, ErrUnavailable},
		{"error field on 200", http.StatusOK, `{"error":"invalid_grant","error_description":"bad code"}`, ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Exchange(context.Background(), "code")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExchangeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(srv)
	srv.Close()

	_, err := client.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchProfile(t *testing.T) {
	tests := []struct {
		name       string
		avatar     any
		wantAvatar string
	}{
		{"static avatar", "abc123", "https://cdn.example/avatars/42/abc123.png"},
		{"animated avatar", "a_abc123", "https://cdn.example/avatars/42/a_abc123.gif"},
		{"default avatar", nil, "https://cdn.example/embed/avatars/0.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v9/users/@me", r.URL.Path)
				assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
				json.NewEncoder(w).Encode(map[string]any{
					"id":       "42",
					"username": "wumpus",
					"avatar":   tt.avatar,
				})
			}))
			defer srv.Close()

			profile, err := newTestClient(srv).FetchProfile(context.Background(), "tok-123")
			require.NoError(t, err)
			assert.Equal(t, "42", profile.ID)
			assert.Equal(t, "wumpus", profile.Username)
			assert.Equal(t, tt.wantAvatar, profile.Avatar)
		})
	}
}

func TestFetchProfileRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"401: Unauthorized","code":0}`},
		{"error field", http.StatusOK, `{"error":"invalid_token"}`},
		{"garbage", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).FetchProfile(context.Background(), "tok")
			assert.ErrorIs(t, err, ErrRejected)
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	c := NewClient(Config{ClientID: "cid", RedirectURI: "http://localhost/callback", BaseURL: "https://discord.example/api"})

	u, err := url.Parse(c.AuthCodeURL("state-xyz"))
	require.NoError(t, err)
	assert.Equal(t, "/api/oauth2/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "identify", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "http://localhost/callback", q.Get("redirect_uri"))
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t, "https://cdn.discordapp.com/avatars/1/a_x.gif", AvatarURL("https://cdn.discordapp.com", "1", "a_x"))
	assert.Equal(t, "https://cdn.discordapp.com/avatars/1/xa_.png", AvatarURL("https://cdn.discordapp.com", "1", "xa_"))
}
