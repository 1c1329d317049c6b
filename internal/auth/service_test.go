package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Malick44/ZemwifiApp-sub000/internal/config"
	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func registerUser(t *testing.T, repo identity.Repository) identity.User {
	t.Helper()
	user, err := identity.NewService(repo).Register(context.Background(),
		identity.Credentials{Phone: "+221770000010", PIN: "1234"}, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens")
	}

	claims, err := ParseClaims(pair.AccessToken, "access-secret")
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != user.ID {
		t.Fatalf("expected sub %s, got %v", user.ID, claims["sub"])
	}
	if role, _ := claims["role"].(string); role != identity.RoleUser {
		t.Fatalf("expected role user, got %v", claims["role"])
	}

	if _, err := ParseClaims(pair.AccessToken, "wrong-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestRefreshRotatesAccessToken(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresIn, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access == "" || expiresIn <= 0 {
		t.Fatalf("expected fresh access token, got %q (%d)", access, expiresIn)
	}
	if _, err := ParseClaims(access, "access-secret"); err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The access token is signed with a different secret than refresh tokens.
	if _, _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestLogoutInvalidatesRefreshTokens(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh rejection after logout, got %v", err)
	}
}
