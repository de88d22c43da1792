package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/flags-survey-backend/pkg/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	key, err := utils.DeriveKey(testSecret, "flags-session-store")
	require.NoError(t, err)

	m, err := NewManager(NewRedisStore(client, key), testSecret, time.Hour, false)
	require.NoError(t, err)
	return m, mr
}

// serve runs handler behind the middleware, replaying cookies from prev.
func serve(m *Manager, prev *httptest.ResponseRecorder, handler func(w http.ResponseWriter, r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if prev != nil {
		for _, c := range prev.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(handler)).ServeHTTP(w, req)
	return w
}

func TestSessionRoundTrip(t *testing.T) {
	m, mr := newTestManager(t)

	first := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		assert.False(t, s.Authenticated())
		s.Set(KeyToken, "access-token")
		require.NoError(t, m.Commit(r.Context(), w, s))
		w.WriteHeader(http.StatusNoContent)
	})

	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	stored, err := mr.Get(keys[0])
	require.NoError(t, err)
	assert.NotContains(t, stored, "access-token")
	assert.True(t, mr.TTL(keys[0]) > 0)

	serve(m, first, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		assert.Equal(t, "access-token", s.Token())
		assert.True(t, s.Authenticated())
	})
}

func TestSessionDestroy(t *testing.T) {
	m, mr := newTestManager(t)

	first := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyToken, "access-token")
		require.NoError(t, m.Commit(r.Context(), w, s))
	})

	second := serve(m, first, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Destroy()
		assert.False(t, s.Authenticated())
		require.NoError(t, m.Commit(r.Context(), w, s))
	})
	assert.Empty(t, mr.Keys())

	expired := second.Result().Cookies()
	require.Len(t, expired, 1)
	assert.True(t, expired[0].MaxAge < 0)

	// The old cookie no longer resolves to anything.
	serve(m, first, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, FromContext(r.Context()).Authenticated())
	})
}

func TestSessionTamperedCookie(t *testing.T) {
	m, _ := newTestManager(t)

	first := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyToken, "access-token")
		require.NoError(t, m.Commit(r.Context(), w, s))
	})
	value := first.Result().Cookies()[0].Value
	id, _, _ := strings.Cut(value, ".")

	for _, forged := range []string{id, id + ".bogus", "other." + strings.SplitN(value, ".", 2)[1], ""} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: forged})
		w := httptest.NewRecorder()
		m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, FromContext(r.Context()).Authenticated(), "cookie %q", forged)
		})).ServeHTTP(w, req)
	}
}

func TestSessionExpiry(t *testing.T) {
	m, mr := newTestManager(t)

	first := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyToken, "access-token")
		require.NoError(t, m.Commit(r.Context(), w, s))
	})

	mr.FastForward(2 * time.Hour)

	serve(m, first, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, FromContext(r.Context()).Authenticated())
	})
}

func TestCommitWithoutChangesSetsNoCookie(t *testing.T) {
	m, mr := newTestManager(t)

	w := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Commit(r.Context(), w, FromContext(r.Context())))
	})
	assert.Empty(t, w.Result().Cookies())
	assert.Empty(t, mr.Keys())
}

func TestStoreUnavailable(t *testing.T) {
	m, mr := newTestManager(t)

	first := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyToken, "access-token")
		require.NoError(t, m.Commit(r.Context(), w, s))
	})

	mr.Close()

	called := false
	w := serve(m, first, func(w http.ResponseWriter, r *http.Request) { called = true })
	assert.False(t, called)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	s := FromContext(context.Background())
	require.NotNil(t, s)
	_, ok := s.Get(KeyToken)
	assert.False(t, ok)
}

func TestSessionRenewMovesValuesToFreshID(t *testing.T) {
	m, mr := newTestManager(t)

	first := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyOAuthState, "state")
		require.NoError(t, m.Commit(r.Context(), w, s))
	})
	oldKeys := mr.Keys()
	require.Len(t, oldKeys, 1)

	second := serve(m, first, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Renew()
		s.Set(KeyToken, "access-token")
		require.NoError(t, m.Commit(r.Context(), w, s))
	})

	newKeys := mr.Keys()
	require.Len(t, newKeys, 1, "the pre-renewal entry is deleted")
	assert.NotEqual(t, oldKeys[0], newKeys[0])
	assert.NotEqual(t, first.Result().Cookies()[0].Value, second.Result().Cookies()[0].Value)

	serve(m, first, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, FromContext(r.Context()).Authenticated(), "old cookie is dead")
	})
	serve(m, second, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		assert.Equal(t, "access-token", s.Token())
		state, _ := s.Get(KeyOAuthState)
		assert.Equal(t, "state", state)
	})
}
