package api_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hugh/staff-manager/internal/api"
	"github.com/hugh/staff-manager/internal/auth"
	"github.com/hugh/staff-manager/internal/departments"
	"github.com/hugh/staff-manager/internal/events"
	"github.com/hugh/staff-manager/internal/testutil"
	"github.com/hugh/staff-manager/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*api.Router, *testutil.TestSetup) {
	return newTestRouterWith(t, func(*api.RouterConfig) {})
}

func newTestRouterWith(t *testing.T, configure func(*api.RouterConfig)) (*api.Router, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	logger := testutil.TestLogger()

	depts := departments.NewService(tc.DB, events.NopPublisher{}, logger)
	cfg := api.RouterConfig{
		DB:                tc.DB,
		Logger:            logger,
		JWTService:        tc.JWTService,
		AuthService:       auth.NewService(tc.DB, tc.JWTService, nil, logger),
		UserService:       users.NewService(tc.DB, depts, events.NopPublisher{}, logger),
		DepartmentService: depts,
	}
	configure(&cfg)
	router := api.NewRouter(cfg)
	t.Cleanup(router.Close)

	return router, tc
}

func TestRouter_APIAccess(t *testing.T) {
	router, tc := newTestRouter(t)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		expected int
	}{
		{"health is public", "GET", "/health", "", http.StatusOK},
		{"ready is public", "GET", "/ready", "", http.StatusOK},
		{"user list needs a token", "GET", "/api/users", "", http.StatusUnauthorized},
		{"user list is admin only", "GET", "/api/users", tc.UserToken, http.StatusForbidden},
		{"admin lists users", "GET", "/api/users", tc.AdminToken, http.StatusOK},
		{"profile for any role", "GET", "/api/users/profile", tc.UserToken, http.StatusOK},
		{"colleagues for any role", "GET", "/api/users/user-department", tc.UserToken, http.StatusOK},
		{"departments for any role", "GET", "/api/departments", tc.UserToken, http.StatusOK},
		{"department tree for any role", "GET", "/api/departments/tree", tc.UserToken, http.StatusOK},
		{"department delete is admin only", "DELETE", "/api/departments/1", tc.UserToken, http.StatusForbidden},
		{"refresh without cookie", "POST", "/api/auth/refresh", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.token == "" {
				req = testutil.UnauthenticatedRequest(t, tt.method, tt.path, nil)
			} else {
				req = testutil.AuthenticatedRequest(t, tt.method, tt.path, nil, tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			testutil.AssertStatus(t, rr, tt.expected)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_PublicSignupThenSignIn(t *testing.T) {
	router, _ := newTestRouter(t)

	body := map[string]interface{}{"email": "new@example.com", "userName": "newbie", "password": "secret12"}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/users", body))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/sign-in",
		map[string]string{"email": "NEW@example.com", "password": "secret12"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func pageRequest(path, token string) *http.Request {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	}
	return req
}

func TestRouter_PageGuard(t *testing.T) {
	router, tc := newTestRouter(t)

	t.Run("root redirects to login", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/", ""))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	t.Run("login is public", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/login", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("anonymous visitor is sent to login with origin", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/user-list?page=2", ""))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login?from="+url.QueryEscape("/user-list?page=2"), rr.Header().Get("Location"))
	})

	t.Run("invalid token is cleared", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/home", "not-a-jwt"))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login?from="+url.QueryEscape("/home"), rr.Header().Get("Location"))

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "accessToken", cookies[0].Name)
		assert.Less(t, cookies[0].MaxAge, 0)
	})

	t.Run("user on admin page goes home", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/departments", tc.UserToken))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/home", rr.Header().Get("Location"))
	})

	t.Run("admin renders admin page", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/admin", tc.AdminToken))

		assert.Equal(t, http.StatusOK, rr.Code)

		var info map[string]interface{}
		testutil.ParseJSONResponse(t, rr, &info)
		assert.Equal(t, "/admin", info["page"])
		assert.Equal(t, "ADMIN", info["role"])
	})

	t.Run("user renders member page", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, pageRequest("/home", tc.UserToken))

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func signInAttempts(t *testing.T, router *api.Router, email string, n int) []int {
	t.Helper()

	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/auth/sign-in",
			map[string]string{"email": email, "password": "wrong-guess"})
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	return codes
}

func TestRouter_SignInLimitIgnoresForwardedFor(t *testing.T) {
	router, tc := newTestRouter(t)

	codes := signInAttempts(t, router, tc.Admin.Email, 12)

	for _, code := range codes[:10] {
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[10])
	assert.Equal(t, http.StatusTooManyRequests, codes[11])
}

func TestRouter_TrustedProxyUsesForwardedFor(t *testing.T) {
	router, tc := newTestRouterWith(t, func(cfg *api.RouterConfig) { cfg.TrustProxy = true })

	for _, code := range signInAttempts(t, router, tc.Admin.Email, 12) {
		assert.Equal(t, http.StatusUnauthorized, code)
	}
}

func TestRouter_PerUserLimit(t *testing.T) {
	router, tc := newTestRouterWith(t, func(cfg *api.RouterConfig) {
		cfg.RateLimitReqs = 3
		cfg.RateLimitSecs = 60
	})

	// Each request arrives from a different address, so only the per-user budget can trip.
	get := func(i int, token string) int {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/departments", nil, token)
		req.RemoteAddr = fmt.Sprintf("192.0.2.%d:5000", i+1)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(i, tc.UserToken))
	}
	assert.Equal(t, http.StatusTooManyRequests, get(3, tc.UserToken))
	assert.Equal(t, http.StatusOK, get(4, tc.AdminToken))
}
