package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scopeline/scopeline/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestResolveTokenClaims(t *testing.T) {
	resolver := NewResolver(config.Config{AuthJWTSecret: testSecret})
	if resolver == nil {
		t.Fatalf("expected resolver with secret configured")
	}

	token := signToken(t, jwt.MapClaims{
		"account_id":       "acct-1",
		"role":             "admin",
		"user_id":          "user-1",
		"teams":            []any{"team-1", "team-2"},
		"organization_ids": []any{"org-1"},
		"exp":              time.Now().Add(time.Hour).Unix(),
	})

	resolved, err := resolver.ResolveToken(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.AccountID != "acct-1" || resolved.Role != "admin" || resolved.UserID != "user-1" {
		t.Fatalf("unexpected actor: %+v", resolved)
	}
	if len(resolved.TeamIDs) != 2 || resolved.TeamIDs[0] != "team-1" {
		t.Fatalf("unexpected teams: %v", resolved.TeamIDs)
	}
	if !resolved.IsAdmin() || resolved.IsSuperAdmin() {
		t.Fatalf("unexpected role flags for %q", resolved.Role)
	}
}

func TestResolveTokenSuperAdminFlag(t *testing.T) {
	resolver := NewResolver(config.Config{AuthJWTSecret: testSecret})

	token := signToken(t, jwt.MapClaims{
		"account_id":  "acct-1",
		"role":        "member",
		"super_admin": true,
	})
	resolved, err := resolver.ResolveToken(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.IsSuperAdmin() {
		t.Fatalf("super_admin claim must promote the role")
	}
}

func TestResolveTokenRejectsBadSignature(t *testing.T) {
	resolver := NewResolver(config.Config{AuthJWTSecret: testSecret})

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": "acct-1",
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := resolver.ResolveToken(context.Background(), forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestResolveTokenRequiresAccount(t *testing.T) {
	resolver := NewResolver(config.Config{AuthJWTSecret: testSecret})

	token := signToken(t, jwt.MapClaims{"role": "admin"})
	if _, err := resolver.ResolveToken(context.Background(), token); !errors.Is(err, ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}
}

func TestNewResolverWithoutSecret(t *testing.T) {
	if resolver := NewResolver(config.Config{}); resolver != nil {
		t.Fatalf("expected nil resolver without a secret")
	}
}
