package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hugh/staff-manager/internal/auth"
	"github.com/hugh/staff-manager/internal/database/models"
	"github.com/hugh/staff-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]time.Time)}
}

func (m *memoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

func TestService_SignIn(t *testing.T) {
	ts := testutil.NewTestContext(t)
	svc := auth.NewService(ts.DB, ts.JWTService, nil, testutil.TestLogger())
	ctx := testutil.TestContext(t)

	t.Run("returns tokens and role", func(t *testing.T) {
		result, err := svc.SignIn(ctx, auth.SignInInput{Email: ts.Admin.Email, Password: testutil.TestPassword})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, result.Role)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)

		claims, err := ts.JWTService.ValidateAccessToken(result.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, ts.Admin.ID, claims.UserID)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})

	t.Run("email lookup ignores case and whitespace", func(t *testing.T) {
		_, err := svc.SignIn(ctx, auth.SignInInput{Email: "  " + ts.User.Email + " ", Password: testutil.TestPassword})
		require.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.SignIn(ctx, auth.SignInInput{Email: "ghost@example.com", Password: testutil.TestPassword})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, auth.SignInInput{Email: ts.User.Email, Password: "nope"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_VerifyToken(t *testing.T) {
	ts := testutil.NewTestContext(t)
	svc := auth.NewService(ts.DB, ts.JWTService, nil, testutil.TestLogger())

	t.Run("valid token reports its role", func(t *testing.T) {
		got := svc.VerifyToken(ts.AdminToken)
		assert.Equal(t, auth.Introspection{Valid: true, Scope: models.RoleAdmin}, got)
	})

	t.Run("token without role reports Unknown", func(t *testing.T) {
		token, err := ts.JWTService.GenerateAccessToken(ts.User.ID, "")
		require.NoError(t, err)
		assert.Equal(t, auth.Introspection{Valid: true, Scope: auth.ScopeUnknown}, svc.VerifyToken(token))
	})

	t.Run("garbage never errors", func(t *testing.T) {
		for _, token := range []string{"", "garbage", "a.b.c"} {
			assert.Equal(t, auth.Introspection{Valid: false, Scope: auth.ScopeInvalid}, svc.VerifyToken(token))
		}
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		refresh, _, err := ts.JWTService.GenerateRefreshToken(ts.User.ID, models.RoleUser)
		require.NoError(t, err)
		assert.False(t, svc.VerifyToken(refresh).Valid)
	})
}

func TestService_RefreshAndSignOut(t *testing.T) {
	ts := testutil.NewTestContext(t)
	revocations := newMemoryRevocations()
	svc := auth.NewService(ts.DB, ts.JWTService, revocations, testutil.TestLogger())
	ctx := testutil.TestContext(t)

	signIn, err := svc.SignIn(ctx, auth.SignInInput{Email: ts.User.Email, Password: testutil.TestPassword})
	require.NoError(t, err)

	t.Run("issues a fresh access token", func(t *testing.T) {
		result, err := svc.Refresh(ctx, signIn.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, result.Role)

		claims, err := ts.JWTService.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, ts.User.ID, claims.UserID)
	})

	t.Run("picks up role changes", func(t *testing.T) {
		manager := testutil.GetRole(t, ts.DB, models.RoleManager)
		require.NoError(t, ts.DB.Model(&models.User{}).Where("id = ?", ts.User.ID).Update("role_id", manager.ID).Error)

		result, err := svc.Refresh(ctx, signIn.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, models.RoleManager, result.Role)
	})

	t.Run("rejects access tokens", func(t *testing.T) {
		_, err := svc.Refresh(ctx, signIn.Tokens.AccessToken)
		assert.ErrorIs(t, err, auth.ErrInvalidRefresh)
	})

	t.Run("sign out revokes the refresh token", func(t *testing.T) {
		require.NoError(t, svc.SignOut(ctx, signIn.Tokens.RefreshToken))

		_, err := svc.Refresh(ctx, signIn.Tokens.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidRefresh)
	})

	t.Run("sign out ignores garbage", func(t *testing.T) {
		assert.NoError(t, svc.SignOut(ctx, "garbage"))
		assert.NoError(t, svc.SignOut(ctx, ""))
	})
}

func TestService_SignOutWithoutStore(t *testing.T) {
	ts := testutil.NewTestContext(t)
	svc := auth.NewService(ts.DB, ts.JWTService, nil, testutil.TestLogger())
	ctx := testutil.TestContext(t)

	refresh, _, err := ts.JWTService.GenerateRefreshToken(ts.User.ID, models.RoleUser)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, refresh))

	// Without a store the token stays usable until it expires.
	_, err = svc.Refresh(ctx, refresh)
	assert.NoError(t, err)
}
