package session

import "context"

// Well-known session keys.
const (
	KeyToken      = "token"
	KeyOAuthState = "oauth_state"
)

// Session is the per-visitor state attached to each request. It is owned by a
// single request, so it carries no locking.
type Session struct {
	id        string
	staleID   string // replaced by Renew, deleted on Commit
	values    map[string]string
	dirty     bool
	destroyed bool
}

func newSession(id string, values map[string]string) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{id: id, values: values}
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
	s.destroyed = false
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Destroy drops every value; the stored copy and cookie go away on Commit.
func (s *Session) Destroy() {
	s.values = make(map[string]string)
	s.destroyed = true
	s.dirty = false
}

// Renew keeps the values but moves them to a fresh id on Commit, so a cookie
// issued before sign-in never carries the signed-in session.
func (s *Session) Renew() {
	if s.id != "" {
		s.staleID = s.id
		s.id = ""
	}
	s.dirty = true
}

// Token returns the OAuth access token, or "" when the visitor has not
// completed the login round-trip.
func (s *Session) Token() string {
	return s.values[KeyToken]
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request session. Requests that did not pass through
// the session middleware get a fresh, empty session.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok {
		return s
	}
	return newSession("", nil)
}
