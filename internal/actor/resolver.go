package actor

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scopeline/scopeline/internal/config"
)

// Resolver turns a bearer credential into an Actor. The default resolver
// validates HS256 tokens; deployments fronted by their own gateway can
// provide an alternative.
type Resolver interface {
	ResolveToken(ctx context.Context, token string) (*Actor, error)
}

type jwtResolver struct {
	secret []byte
}

// NewResolver returns the JWT resolver, or nil when no secret is configured.
// Without a resolver the auth middleware trusts forwarded identity headers.
func NewResolver(cfg config.Config) Resolver {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil
	}
	return &jwtResolver{secret: []byte(secret)}
}

func (r *jwtResolver) ResolveToken(ctx context.Context, token string) (*Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	accountID := claimString(claims, "account_id")
	if accountID == "" {
		return nil, ErrMissingAccount
	}

	role := claimString(claims, "role")
	if claimBool(claims, "super_admin") {
		role = RoleSuperAdmin
	}
	if role == "" {
		role = RoleMember
	}

	return &Actor{
		AccountID:       accountID,
		Role:            role,
		UserID:          claimString(claims, "user_id"),
		TeamIDs:         claimStrings(claims, "teams"),
		OrganizationIDs: claimStrings(claims, "organization_ids"),
	}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func claimBool(claims jwt.MapClaims, key string) bool {
	value, ok := claims[key].(bool)
	return ok && value
}

func claimStrings(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if value, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
