package domain

import (
	"context"
	"errors"
	"time"

	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
)

type Service interface {
	GetPlan(ctx context.Context, accountID string) (*PlanResponse, error)
	UpdatePlan(ctx context.Context, req UpdatePlanRequest) (*PlanResponse, error)
	ListAllocations(ctx context.Context, accountID string) ([]AllocationResponse, error)
	UpsertAllocation(ctx context.Context, req UpsertAllocationRequest) (*AllocationResponse, error)
	DeleteAllocation(ctx context.Context, accountID, allocationID string) error
	DistributeEqually(ctx context.Context, req DistributeRequest) ([]AllocationResponse, error)
	RecordUsage(ctx context.Context, req RecordUsageRequest) (*UsageResponse, error)
	ListUsage(ctx context.Context, req ListUsageRequest) ([]UsageResponse, error)
	ListAlerts(ctx context.Context, accountID string) ([]Alert, error)
	UpsertAlertRule(ctx context.Context, req UpsertAlertRuleRequest) (*AlertRuleResponse, error)
}

type UpdatePlanRequest struct {
	AccountID               string   `json:"account_id"`
	Cycle                   *string  `json:"cycle,omitempty"`
	CreditsFactor           *float64 `json:"credits_factor,omitempty"`
	AccountAllocatedCredits *float64 `json:"account_allocated_credits,omitempty"`
}

type PlanResponse struct {
	AccountID               string    `json:"account_id"`
	Cycle                   string    `json:"cycle"`
	CreditsFactor           float64   `json:"credits_factor"`
	AccountAllocatedCredits float64   `json:"account_allocated_credits"`
	UnallocatedCredits      float64   `json:"unallocated_credits"`
	UnallocatedUsedCredits  float64   `json:"unallocated_used_credits"`
	Persisted               bool      `json:"persisted"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type UpsertAllocationRequest struct {
	AccountID        string   `json:"account_id"`
	AllocationID     string   `json:"allocation_id,omitempty"`
	ScopeType        string   `json:"scope_type"`
	ScopeID          string   `json:"scope_id"`
	AllocatedCredits float64  `json:"allocated_credits"`
	OverflowCap      *float64 `json:"overflow_cap,omitempty"`
	ParentScopeType  string   `json:"parent_scope_type,omitempty"`
	ParentScopeID    string   `json:"parent_scope_id,omitempty"`
	ActorID          string   `json:"-"`
}

type AllocationResponse struct {
	ID               string           `json:"id"`
	AccountID        string           `json:"account_id"`
	ScopeType        scopedomain.Type `json:"scope_type"`
	ScopeID          string           `json:"scope_id"`
	AllocatedCredits float64          `json:"allocated_credits"`
	UsedCredits      float64          `json:"used_credits"`
	OverflowCap      *float64         `json:"overflow_cap,omitempty"`
	ParentScopeType  scopedomain.Type `json:"parent_scope_type,omitempty"`
	ParentScopeID    string           `json:"parent_scope_id,omitempty"`
	CreatedBy        string           `json:"created_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type DistributeRequest struct {
	AccountID    string             `json:"account_id"`
	UserIDs      []string           `json:"user_ids"`
	TotalCredits *float64           `json:"total_credits,omitempty"`
	Overrides    map[string]float64 `json:"overrides,omitempty"`
	ActorID      string             `json:"-"`
}

type RecordUsageRequest struct {
	AccountID      string  `json:"account_id"`
	Cost           float64 `json:"cost"`
	Model          string  `json:"model"`
	UserID         string  `json:"user_id,omitempty"`
	TeamID         string  `json:"team_id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty"`
}

type UsageResponse struct {
	ID                 string           `json:"id"`
	AccountID          string           `json:"account_id"`
	Model              string           `json:"model"`
	Cost               float64          `json:"cost"`
	Credits            float64          `json:"credits"`
	UserID             *string          `json:"user_id,omitempty"`
	TeamID             *string          `json:"team_id,omitempty"`
	OrganizationID     *string          `json:"organization_id,omitempty"`
	EffectiveScopeType scopedomain.Type `json:"effective_scope_type"`
	EffectiveScopeID   string           `json:"effective_scope_id"`
	RecordedAt         time.Time        `json:"recorded_at"`
}

type ListUsageRequest struct {
	AccountID string     `json:"account_id"`
	Model     string     `json:"model,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

type UpsertAlertRuleRequest struct {
	AccountID    string  `json:"account_id"`
	ScopeType    string  `json:"scope_type"`
	ScopeID      string  `json:"scope_id"`
	ThresholdPct float64 `json:"threshold_pct"`
}

type AlertRuleResponse struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	ScopeType    scopedomain.Type `json:"scope_type"`
	ScopeID      string           `json:"scope_id"`
	ThresholdPct float64          `json:"threshold_pct"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

var (
	ErrInvalidAccount         = errors.New("invalid_account")
	ErrInvalidScopeID         = errors.New("invalid_scope_id")
	ErrAccountScopeNotAllowed = errors.New("account_scope_not_allowed")
	ErrInvalidCredits         = errors.New("invalid_credits")
	ErrInvalidFactor          = errors.New("invalid_credits_factor")
	ErrInvalidCost            = errors.New("invalid_cost")
	ErrInvalidModel           = errors.New("invalid_model")
	ErrNoUsers                = errors.New("no_users")
	ErrOverAllocated          = errors.New("over_allocated")
	ErrInvalidThreshold       = errors.New("invalid_threshold")
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("not_found")
)
