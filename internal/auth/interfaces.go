package auth

import (
	"context"

	"github.com/hugh/staff-manager/internal/database/models"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	SignIn(ctx context.Context, input SignInInput) (*SignInResult, error)
	VerifyToken(token string) Introspection
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	SignOut(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// TokenValidator is the read side of the token service used by middleware and the page guard.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator   = (*Service)(nil)
	_ TokenValidator  = (*JWTService)(nil)
	_ RevocationStore = (*RedisRevocationStore)(nil)
)
