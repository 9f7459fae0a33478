package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

const (
	csrfTokenLength = 32
	CSRFCookieName  = "csrfToken"
	CSRFHeaderName  = "X-CSRF-Token"

	// RefreshTokenCookie carries the refresh token; it doubles as the CSRF session.
	RefreshTokenCookie = "refreshToken"
)

// CSRFToken represents a CSRF token with expiry
type CSRFToken struct {
	Token     string
	ExpiresAt time.Time
}

// CSRFStore keeps one token per refresh-token session.
type CSRFStore struct {
	tokens map[string]CSRFToken
	ttl    time.Duration
	mu     sync.RWMutex
	done   chan struct{}
	once   sync.Once
}

// NewCSRFStore creates a store whose tokens live as long as ttl, normally the refresh token lifetime.
func NewCSRFStore(ttl time.Duration) *CSRFStore {
	store := &CSRFStore{
		tokens: make(map[string]CSRFToken),
		ttl:    ttl,
		done:   make(chan struct{}),
	}

	go store.cleanup()

	return store
}

// cleanup removes expired tokens periodically
func (s *CSRFStore) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for sessionID, token := range s.tokens {
				if now.After(token.ExpiresAt) {
					delete(s.tokens, sessionID)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *CSRFStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

// GetOrCreate returns an existing token or creates a new one
func (s *CSRFStore) GetOrCreate(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, exists := s.tokens[sessionID]; exists {
		if time.Now().Before(token.ExpiresAt) {
			return token.Token
		}
	}

	tokenBytes := make([]byte, csrfTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		panic("csrf: reading random bytes: " + err.Error())
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	s.tokens[sessionID] = CSRFToken{
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	return token
}

// Validate checks if the provided token is valid for the session
func (s *CSRFStore) Validate(sessionID, providedToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, exists := s.tokens[sessionID]
	if !exists {
		return false
	}

	if time.Now().After(token.ExpiresAt) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token.Token), []byte(providedToken)) == 1
}

func (s *CSRFStore) Revoke(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
}

// CSRF protects the endpoints that authenticate with the refresh-token cookie alone.
// The browser sends that cookie automatically, so the caller must also echo the
// token it received at sign-in in the X-CSRF-Token header.
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet ||
				r.Method == http.MethodHead ||
				r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			sessionID := SessionID(r)
			if sessionID == "" {
				writeError(w, http.StatusUnauthorized, "Refresh token cookie required")
				return
			}

			csrfToken := r.Header.Get(CSRFHeaderName)
			if csrfToken == "" {
				writeError(w, http.StatusForbidden, "CSRF token missing")
				return
			}

			if !store.Validate(sessionID, csrfToken) {
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SessionID derives the CSRF session from the refresh token cookie.
func SessionID(r *http.Request) string {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return SessionIDFor(cookie.Value)
}

// SessionIDFor hashes a refresh token into a CSRF session key.
func SessionIDFor(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:16])
}
