package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/hugh/staff-manager/internal/api/dto"
	"github.com/hugh/staff-manager/internal/api/middleware"
	"github.com/hugh/staff-manager/internal/auth"
)

const refreshCookiePath = "/api/auth"

type AuthHandler struct {
	authService   auth.Authenticator
	csrf          *middleware.CSRFStore
	accessTTL     time.Duration
	secureCookies bool
}

func NewAuthHandler(authService auth.Authenticator, csrf *middleware.CSRFStore, accessTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		csrf:          csrf,
		accessTTL:     accessTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if details := req.Validate(); len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	result, err := h.authService.SignIn(r.Context(), auth.SignInInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err, "Sign in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    result.Tokens.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  result.Tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	h.setAccessCookie(w, result.Tokens.AccessToken)

	csrfToken := h.csrf.GetOrCreate(middleware.SessionIDFor(result.Tokens.RefreshToken))
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		Expires:  result.Tokens.RefreshExpiresAt,
		HttpOnly: false, // read by the SPA and echoed in X-CSRF-Token
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	writeResult(w, http.StatusOK, "Signed in", dto.SignInResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Role:         result.Role,
		CSRFToken:    csrfToken,
	})
}

// Introspect reports whether a token is usable. Bad tokens are a normal answer, not an error.
func (h *AuthHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	var req dto.IntrospectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.authService.VerifyToken(req.Token)
	writeResult(w, http.StatusOK, "Token introspected", dto.IntrospectResponse{
		Valid: result.Valid,
		Scope: result.Scope,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token cookie required")
		return
	}

	result, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			h.clearCookies(w)
		}
		writeServiceError(w, r, err, "Refresh failed")
		return
	}

	h.setAccessCookie(w, result.AccessToken)
	writeResult(w, http.StatusOK, "Token refreshed", dto.RefreshResponse{
		AccessToken: result.AccessToken,
		Role:        result.Role,
	})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil && cookie.Value != "" {
		if err := h.authService.SignOut(r.Context(), cookie.Value); err != nil {
			writeServiceError(w, r, err, "Sign out failed")
			return
		}
		h.csrf.Revoke(middleware.SessionIDFor(cookie.Value))
	}

	h.clearCookies(w)
	writeResult(w, http.StatusOK, "Signed out", nil)
}

func (h *AuthHandler) setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookies(w http.ResponseWriter) {
	for _, c := range []struct{ name, path string }{
		{middleware.RefreshTokenCookie, refreshCookiePath},
		{middleware.AccessTokenCookie, "/"},
		{middleware.CSRFCookieName, "/"},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			MaxAge:   -1,
			HttpOnly: c.name != middleware.CSRFCookieName,
			Secure:   h.secureCookies,
		})
	}
}
