package domain

import "context"

// Service builds ordered specific-to-broad scope chains.
type Service interface {
	Resolve(ctx context.Context, req ResolveRequest) ([]Scope, error)
}

type ResolveRequest struct {
	AccountID string
	ScopeType string
	ScopeID   string
	Claims    *Claims
}
