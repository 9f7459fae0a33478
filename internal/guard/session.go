package guard

import (
	"context"
	"net/http"
	"sync"
)

// AccessTokenCookie holds the access token for page navigations.
const AccessTokenCookie = "accessToken"

type sessionKey struct{}

// Session is the per-request token holder. It replaces any process-wide token storage:
// every request carries its own copy, and clearing it only affects that request's response.
type Session struct {
	mu    sync.Mutex
	token string
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the request's session, or an empty one when none was attached.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return s
	}
	return NewSession("")
}

// LoadSession attaches a Session built from the access token cookie.
func LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
			token = cookie.Value
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), NewSession(token))))
	})
}
