package accountctx

import (
	"context"
	"strings"

	"github.com/scopeline/scopeline/internal/actor"
)

// AccountContextKey is the request context key for the active account ID.
type AccountContextKey struct{}

// ActorContextKey is the request context key for the resolved actor.
type ActorContextKey struct{}

// WithAccountID stores the account ID in the context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, AccountContextKey{}, strings.TrimSpace(accountID))
}

// AccountIDFromContext returns the account ID from context, if set.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(AccountContextKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithActor stores the resolved actor in the context.
func WithActor(ctx context.Context, a *actor.Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, a)
}

// ActorFromContext returns the resolved actor from context, if set.
func ActorFromContext(ctx context.Context) (*actor.Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	value, ok := ctx.Value(ActorContextKey{}).(*actor.Actor)
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}
