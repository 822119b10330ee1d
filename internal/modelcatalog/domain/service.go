package domain

import (
	"context"
	"errors"
	"time"

	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
)

type Service interface {
	ListCatalog(ctx context.Context) ([]ModelResponse, error)
	UpsertCatalogModel(ctx context.Context, req UpsertModelRequest) (*ModelResponse, error)

	SetEligibility(ctx context.Context, req SetModelsRequest) (*ModelSetResponse, error)
	SetSelection(ctx context.Context, req SetModelsRequest) (*ModelSetResponse, error)
	GetSets(ctx context.Context, accountID string) (*AccountSetsResponse, error)

	SetOverride(ctx context.Context, req SetOverrideRequest) (*OverrideResponse, error)
	DeleteOverride(ctx context.Context, accountID, scopeType, scopeID string) error
	ListOverrides(ctx context.Context, accountID string) ([]OverrideResponse, error)

	EffectiveModels(ctx context.Context, req EffectiveModelsRequest) ([]ModelResponse, error)
}

type UpsertModelRequest struct {
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

type ModelResponse struct {
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider,omitempty"`
	Enabled     bool   `json:"enabled"`
}

type SetModelsRequest struct {
	AccountID string   `json:"account_id"`
	Models    []string `json:"models"`
	ActorID   string   `json:"-"`
}

type ModelSetResponse struct {
	AccountID string    `json:"account_id"`
	Kind      SetKind   `json:"kind"`
	Models    []string  `json:"models"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AccountSetsResponse struct {
	AccountID   string   `json:"account_id"`
	Eligibility []string `json:"eligibility,omitempty"`
	Selection   []string `json:"selection,omitempty"`
}

type SetOverrideRequest struct {
	AccountID string   `json:"account_id"`
	ScopeType string   `json:"scope_type"`
	ScopeID   string   `json:"scope_id"`
	Models    []string `json:"models"`
	ActorID   string   `json:"-"`
}

type OverrideResponse struct {
	AccountID string           `json:"account_id"`
	ScopeType scopedomain.Type `json:"scope_type"`
	ScopeID   string           `json:"scope_id"`
	Models    []string         `json:"models"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// EffectiveModelsRequest narrows from the account baseline through the
// caller's scope chain.
type EffectiveModelsRequest struct {
	AccountID      string `json:"account_id"`
	UserID         string `json:"user_id,omitempty"`
	TeamID         string `json:"team_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidModelID = errors.New("invalid_model_id")
	ErrInvalidName    = errors.New("invalid_display_name")
	ErrInvalidScopeID = errors.New("invalid_scope_id")
	ErrUnknownModel   = errors.New("unknown_model")
	ErrNotEligible    = errors.New("model_not_eligible")
	ErrNotFound       = errors.New("not_found")
)
