package domain

import (
	"context"
	"time"
)

type Service interface {
	ListFeatures(ctx context.Context) ([]FeatureResponse, error)
	UpsertFeature(ctx context.Context, req UpsertFeatureRequest) (*FeatureResponse, error)

	ListEntitlements(ctx context.Context, accountID string) ([]EntitlementResponse, error)
	GrantEntitlement(ctx context.Context, req GrantRequest) (*EntitlementResponse, error)
	RevokeEntitlement(ctx context.Context, accountID, entitlementID string) error

	EffectiveConfig(ctx context.Context, req EffectiveConfigRequest) (*EffectiveConfigResponse, error)
}

type UpsertFeatureRequest struct {
	ProductCode   string         `json:"product_code"`
	FeatureCode   *string        `json:"feature_code,omitempty"`
	EntityCode    *string        `json:"entity_code,omitempty"`
	Description   string         `json:"description,omitempty"`
	DefaultConfig map[string]any `json:"default_config,omitempty"`
}

type FeatureResponse struct {
	ProductCode   string         `json:"product_code"`
	FeatureCode   *string        `json:"feature_code,omitempty"`
	EntityCode    *string        `json:"entity_code,omitempty"`
	Description   string         `json:"description,omitempty"`
	DefaultConfig map[string]any `json:"default_config,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type GrantRequest struct {
	AccountID   string         `json:"account_id"`
	ProductCode string         `json:"product_code"`
	FeatureCode *string        `json:"feature_code,omitempty"`
	EntityCode  *string        `json:"entity_code,omitempty"`
	Source      string         `json:"source"`
	Enabled     *bool          `json:"enabled,omitempty"`
	Config      map[string]any `json:"config"`
	ValidFrom   *time.Time     `json:"valid_from,omitempty"`
	ValidUntil  *time.Time     `json:"valid_until,omitempty"`
	ActorID     string         `json:"-"`
}

type EntitlementResponse struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	ProductCode string         `json:"product_code"`
	FeatureCode *string        `json:"feature_code,omitempty"`
	EntityCode  *string        `json:"entity_code,omitempty"`
	Source      Source         `json:"source"`
	Enabled     bool           `json:"enabled"`
	Config      map[string]any `json:"config"`
	ValidFrom   *time.Time     `json:"valid_from,omitempty"`
	ValidUntil  *time.Time     `json:"valid_until,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type EffectiveConfigRequest struct {
	AccountID   string  `json:"account_id"`
	ProductCode string  `json:"product_code"`
	FeatureCode *string `json:"feature_code,omitempty"`
}

// EffectiveConfigResponse carries the catalog base, the merged result, and
// the grant sources applied, in ascending priority order.
type EffectiveConfigResponse struct {
	AccountID       string         `json:"account_id"`
	ProductCode     string         `json:"product_code"`
	FeatureCode     *string        `json:"feature_code,omitempty"`
	BaseConfig      map[string]any `json:"base_config"`
	EffectiveConfig map[string]any `json:"effective_config"`
	Sources         []Source       `json:"sources"`
}
