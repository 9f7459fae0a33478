package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the identity encoded into both access and refresh tokens.
type Claims struct {
	UserID uint   `json:"userId,string"`
	Role   string `json:"Authorities"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessKey  string
	RefreshKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// signer pairs a key with the one algorithm tokens of its kind may use.
type signer struct {
	key    []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

type JWTService struct {
	access   signer
	refresh  signer
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTService(cfg TokenConfig) *JWTService {
	return &JWTService{
		access:   signer{key: []byte(cfg.AccessKey), method: jwt.SigningMethodHS256, ttl: cfg.AccessTTL},
		refresh:  signer{key: []byte(cfg.RefreshKey), method: jwt.SigningMethodHS512, ttl: cfg.RefreshTTL},
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
}

func (s *JWTService) AccessTTL() time.Duration {
	return s.access.ttl
}

func (s *JWTService) RefreshTTL() time.Duration {
	return s.refresh.ttl
}

func (s *JWTService) GenerateAccessToken(userID uint, role string) (string, error) {
	token, _, err := s.sign(s.access, userID, role)
	return token, err
}

func (s *JWTService) GenerateRefreshToken(userID uint, role string) (string, time.Time, error) {
	return s.sign(s.refresh, userID, role)
}

func (s *JWTService) GenerateTokenPair(userID uint, role string) (*TokenPair, error) {
	access, err := s.GenerateAccessToken(userID, role)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.GenerateRefreshToken(userID, role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(s.access, tokenString)
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(s.refresh, tokenString)
}

func (s *JWTService) sign(sg signer, userID uint, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(sg.ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(sg.method, claims)
	signed, err := token.SignedString(sg.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *JWTService) validate(sg signer, tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{sg.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return sg.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
