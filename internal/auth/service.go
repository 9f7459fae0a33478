package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hugh/staff-manager/internal/apperror"
	"github.com/hugh/staff-manager/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = apperror.New(apperror.CodeNotFound, "user not found")
	ErrInvalidCredentials = apperror.New(apperror.CodeUnauthorized, "invalid email or password")
	ErrInvalidRefresh     = apperror.New(apperror.CodeUnauthorized, "refresh token is invalid or revoked")
)

const (
	ScopeInvalid = "Invalid"
	ScopeUnknown = "Unknown"
)

type Service struct {
	db          *gorm.DB
	jwt         *JWTService
	revocations RevocationStore
	logger      *slog.Logger
}

// NewService builds the auth service. revocations may be nil, in which case sign-out cannot
// invalidate refresh tokens before they expire.
func NewService(db *gorm.DB, jwt *JWTService, revocations RevocationStore, logger *slog.Logger) *Service {
	return &Service{db: db, jwt: jwt, revocations: revocations, logger: logger}
}

type SignInInput struct {
	Email    string
	Password string
}

type SignInResult struct {
	Tokens *TokenPair
	Role   string
	User   *models.User
}

type Introspection struct {
	Valid bool   `json:"valid"`
	Scope string `json:"scope"`
}

func (s *Service) SignIn(ctx context.Context, input SignInInput) (*SignInResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", NormalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	role := user.RoleName()
	tokens, err := s.jwt.GenerateTokenPair(user.ID, role)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID, "role", role)

	return &SignInResult{
		Tokens: tokens,
		Role:   role,
		User:   &user,
	}, nil
}

// VerifyToken introspects an access token. It never fails: any problem with the token
// is reported as an invalid scope.
func (s *Service) VerifyToken(token string) Introspection {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return Introspection{Valid: false, Scope: ScopeInvalid}
	}
	if claims.Role == "" {
		return Introspection{Valid: true, Scope: ScopeUnknown}
	}
	return Introspection{Valid: true, Scope: claims.Role}
}

type RefreshResult struct {
	AccessToken string
	Role        string
}

// Refresh exchanges a refresh token for a new access token carrying the user's current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidRefresh
		}
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	role := user.RoleName()
	access, err := s.jwt.GenerateAccessToken(user.ID, role)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	return &RefreshResult{AccessToken: access, Role: role}, nil
}

// SignOut revokes the refresh token when a revocation store is configured.
// Unparseable tokens are ignored; there is nothing left to revoke.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if s.revocations == nil || refreshToken == "" {
		return nil
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}

	s.logger.Info("user signed out", "user_id", claims.UserID)
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Role").
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
