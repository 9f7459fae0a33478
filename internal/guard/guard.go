package guard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hugh/staff-manager/internal/auth"
)

type State int

const (
	Unauthenticated State = iota
	InsufficientRole
	Authorized
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case InsufficientRole:
		return "insufficient_role"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

const (
	LoginPath = "/login"
	HomePath  = "/home"
)

type Decision struct {
	State State
	// Redirect is empty when the page may render.
	Redirect string
	// ClearToken is set when a token was present but could not be used.
	ClearToken bool
	Claims     *auth.Claims
}

type Guard struct {
	tokens auth.TokenValidator
}

func New(tokens auth.TokenValidator) *Guard {
	return &Guard{tokens: tokens}
}

// Evaluate decides what happens to a navigation to origin. An empty requiredRole admits any
// authenticated user.
func (g *Guard) Evaluate(token, requiredRole, origin string) Decision {
	if token == "" {
		return Decision{State: Unauthenticated, Redirect: loginRedirect(origin)}
	}

	claims, err := g.tokens.ValidateAccessToken(token)
	if err != nil {
		return Decision{State: Unauthenticated, Redirect: loginRedirect(origin), ClearToken: true}
	}

	if requiredRole != "" && claims.Role != requiredRole {
		return Decision{State: InsufficientRole, Redirect: HomePath, Claims: claims}
	}

	return Decision{State: Authorized, Claims: claims}
}

type claimsKey struct{}

func contextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromRequest returns the claims of an authorized page request.
func ClaimsFromRequest(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return claims
}

// Protect guards a page route. It expects LoadSession to have run.
func (g *Guard) Protect(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := FromContext(r.Context())
			decision := g.Evaluate(session.Token(), requiredRole, r.URL.RequestURI())

			if decision.ClearToken {
				session.Clear()
				http.SetCookie(w, &http.Cookie{
					Name:     AccessTokenCookie,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if decision.State != Authorized {
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}

			ctx := WithSession(r.Context(), session)
			ctx = contextWithClaims(ctx, decision.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loginRedirect(origin string) string {
	if origin == "" {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(origin)
}
