package guard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/staff-manager/internal/database/models"
	"github.com/hugh/staff-manager/internal/guard"
	"github.com/hugh/staff-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_Evaluate(t *testing.T) {
	jwtService := testutil.CreateTestJWTService()
	g := guard.New(jwtService)

	adminToken, err := jwtService.GenerateAccessToken(1, models.RoleAdmin)
	require.NoError(t, err)
	userToken, err := jwtService.GenerateAccessToken(2, models.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name         string
		token        string
		requiredRole string
		wantState    guard.State
		wantRedirect string
		wantClear    bool
	}{
		{"admin on admin page", adminToken, models.RoleAdmin, guard.Authorized, "", false},
		{"user on admin page", userToken, models.RoleAdmin, guard.InsufficientRole, "/home", false},
		{"user on open page", userToken, "", guard.Authorized, "", false},
		{"no token", "", models.RoleAdmin, guard.Unauthenticated, "/login?from=%2Fadmin", false},
		{"garbage token", "not-a-jwt", "", guard.Unauthenticated, "/login?from=%2Fadmin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(tt.token, tt.requiredRole, "/admin")
			assert.Equal(t, tt.wantState, d.State)
			assert.Equal(t, tt.wantRedirect, d.Redirect)
			assert.Equal(t, tt.wantClear, d.ClearToken)
		})
	}
}

func TestGuard_EvaluateExpiredToken(t *testing.T) {
	jwtService := testutil.CreateTestJWTService()
	expired := testutil.ExpiredAccessToken(t, 1, models.RoleAdmin)

	d := guard.New(jwtService).Evaluate(expired, "", "/home")
	assert.Equal(t, guard.Unauthenticated, d.State)
	assert.Equal(t, "/login?from=%2Fhome", d.Redirect)
	assert.True(t, d.ClearToken)
}

func TestGuard_Protect(t *testing.T) {
	jwtService := testutil.CreateTestJWTService()
	g := guard.New(jwtService)

	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := guard.ClaimsFromRequest(r)
		require.NotNil(t, claims)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(claims.Role))
	})
	handler := guard.LoadSession(g.Protect(models.RoleAdmin)(page))

	serve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/departments?tab=tree", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: guard.AccessTokenCookie, Value: token})
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("admin renders", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(1, models.RoleAdmin)
		require.NoError(t, err)

		rr := serve(token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, models.RoleAdmin, rr.Body.String())
	})

	t.Run("user is sent home", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(2, models.RoleUser)
		require.NoError(t, err)

		rr := serve(token)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/home", rr.Header().Get("Location"))
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("anonymous is sent to login with origin", func(t *testing.T) {
		rr := serve("")
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login?from=%2Fdepartments%3Ftab%3Dtree", rr.Header().Get("Location"))
	})

	t.Run("bad token is cleared", func(t *testing.T) {
		rr := serve("garbage")
		assert.Equal(t, http.StatusFound, rr.Code)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, guard.AccessTokenCookie, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
	})
}

func TestSession(t *testing.T) {
	s := guard.NewSession("abc")
	assert.Equal(t, "abc", s.Token())

	s.Clear()
	assert.Empty(t, s.Token())

	empty := guard.FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Empty(t, empty.Token())
}
