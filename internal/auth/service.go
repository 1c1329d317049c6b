package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Malick44/ZemwifiApp-sub000/internal/config"
	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
)

// ErrInvalidToken covers malformed, mis-signed, expired and revoked tokens.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies JWT token pairs.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService constructs an auth service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair bundles the access and refresh tokens issued at login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues a token pair for an already-authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, accessExp, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(accessExp).Seconds()),
	}, nil
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"phone": user.Phone,
		"role":  user.Role,
		"ver":   user.TokenVersion,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseClaims verifies an HS256 token against the secret and returns its claims.
func ParseClaims(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh verifies the refresh token and, when its version still matches the
// user's current token version, issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseClaims(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	verFloat, _ := claims["ver"].(float64)

	user, err := s.idRepo.FindByID(ctx, sub)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	if user.TokenVersion != int(verFloat) {
		return "", 0, ErrInvalidToken
	}

	access, exp, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(time.Until(exp).Seconds()), nil
}

// Logout bumps the user's token version so previously issued tokens stop
// verifying.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.idRepo.BumpTokenVersion(ctx, userID)
}
