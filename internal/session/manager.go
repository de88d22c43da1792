package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/pkg/utils"
)

// CookieName is the cookie carrying the signed session id.
const CookieName = "flags_session"

// Manager ties the session cookie to the backing Store.
type Manager struct {
	store   Store
	signKey []byte
	expiry  time.Duration
	secure  bool
}

// NewManager derives the cookie signing key from secret. secure marks the
// cookie Secure, which browsers only send back over HTTPS.
func NewManager(store Store, secret string, expiry time.Duration, secure bool) (*Manager, error) {
	signKey, err := utils.DeriveKey(secret, "flags-session-cookie")
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, signKey: signKey, expiry: expiry, secure: secure}, nil
}

// Middleware loads the visitor's session and attaches it to the request
// context. Missing, tampered or expired cookies yield an empty session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.load(r)
		if err != nil {
			logger.WithError(err).Error("session load failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

func (m *Manager) load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return newSession("", nil), nil
	}

	id, ok := m.verify(cookie.Value)
	if !ok {
		return newSession("", nil), nil
	}

	values, err := m.store.Load(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return newSession("", nil), nil
	}
	if err != nil {
		return nil, err
	}
	return newSession(id, values), nil
}

// Commit persists s and writes the matching cookie. It must run before the
// response status is written.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, s *Session) error {
	switch {
	case s.destroyed:
		for _, id := range []string{s.id, s.staleID} {
			if err := m.store.Delete(ctx, id); err != nil {
				return err
			}
		}
		s.staleID = ""
		s.id = ""
		s.destroyed = false
		http.SetCookie(w, m.cookie("", -1))
		return nil

	case s.dirty:
		if s.staleID != "" {
			if err := m.store.Delete(ctx, s.staleID); err != nil {
				return err
			}
			s.staleID = ""
		}
		if s.id == "" {
			id, err := newID()
			if err != nil {
				return err
			}
			s.id = id
		}
		if err := m.store.Save(ctx, s.id, s.values, m.expiry); err != nil {
			return err
		}
		s.dirty = false
		http.SetCookie(w, m.cookie(m.sign(s.id), int(m.expiry.Seconds())))
		return nil
	}
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.signKey)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	id, _, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(m.sign(id)), []byte(value)) {
		return "", false
	}
	return id, true
}

// newID returns 32 random bytes, URL-safe encoded.
func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
