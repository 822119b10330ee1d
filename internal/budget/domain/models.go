package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
)

// Plan is the per-account budget plan. UnallocatedCredits is derived from the
// plan and its group-scope allocations, never stored.
type Plan struct {
	ID                      snowflake.ID `gorm:"primaryKey"`
	AccountID               string       `gorm:"type:text;not null;uniqueIndex"`
	Cycle                   string       `gorm:"type:text;not null;default:monthly"`
	CreditsFactor           float64      `gorm:"not null;default:1"`
	AccountAllocatedCredits float64      `gorm:"not null;default:0"`
	UnallocatedUsedCredits  float64      `gorm:"not null;default:0"`
	CreatedAt               time.Time    `gorm:"not null;autoCreateTime"`
	UpdatedAt               time.Time    `gorm:"not null;autoUpdateTime"`
}

func (Plan) TableName() string { return "budget_plans" }

// Allocation carves credits out for a group, team or user scope. At most one
// allocation exists per (account, scope_type, scope_id).
type Allocation struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	AccountID        string           `gorm:"type:text;not null;index:ux_budget_alloc_scope,unique,priority:1"`
	ScopeType        scopedomain.Type `gorm:"type:text;not null;index:ux_budget_alloc_scope,priority:2"`
	ScopeID          string           `gorm:"type:text;not null;index:ux_budget_alloc_scope,priority:3"`
	AllocatedCredits float64          `gorm:"not null;default:0"`
	UsedCredits      float64          `gorm:"not null;default:0"`
	OverflowCap      *float64
	ParentScopeType  scopedomain.Type `gorm:"type:text"`
	ParentScopeID    string           `gorm:"type:text"`
	CreatedBy        string           `gorm:"type:text"`
	CreatedAt        time.Time        `gorm:"not null;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"not null;autoUpdateTime"`
}

func (Allocation) TableName() string { return "budget_allocations" }

// UsageRecord is the append-only ledger entry. Written once, never mutated.
type UsageRecord struct {
	ID                 snowflake.ID     `gorm:"primaryKey"`
	AccountID          string           `gorm:"type:text;not null;index"`
	Model              string           `gorm:"type:text;not null"`
	Cost               float64          `gorm:"not null"`
	Credits            float64          `gorm:"not null"`
	UserID             *string          `gorm:"type:text"`
	TeamID             *string          `gorm:"type:text"`
	OrganizationID     *string          `gorm:"type:text"`
	EffectiveScopeType scopedomain.Type `gorm:"type:text;not null"`
	EffectiveScopeID   string           `gorm:"type:text;not null"`
	RecordedAt         time.Time        `gorm:"not null;index"`
}

func (UsageRecord) TableName() string { return "budget_usage_records" }

// AlertRule overrides the default alert threshold for one scope.
type AlertRule struct {
	ID           snowflake.ID     `gorm:"primaryKey"`
	AccountID    string           `gorm:"type:text;not null;index:ux_budget_alert_rule_scope,unique,priority:1"`
	ScopeType    scopedomain.Type `gorm:"type:text;not null;index:ux_budget_alert_rule_scope,priority:2"`
	ScopeID      string           `gorm:"type:text;not null;index:ux_budget_alert_rule_scope,priority:3"`
	ThresholdPct float64          `gorm:"not null"`
	CreatedAt    time.Time        `gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"not null;autoUpdateTime"`
}

func (AlertRule) TableName() string { return "budget_alert_rules" }

type AlertKind string

const (
	AlertKindAllocation AlertKind = "allocation"
	AlertKindOverCap    AlertKind = "over_cap"
	AlertKindPool       AlertKind = "pool"
)

// Alert is a computed threshold breach; alerts are evaluated on read, not
// persisted.
type Alert struct {
	Kind             AlertKind        `json:"kind"`
	ScopeType        scopedomain.Type `json:"scope_type"`
	ScopeID          string           `json:"scope_id"`
	UsedCredits      float64          `json:"used_credits"`
	AllocatedCredits float64          `json:"allocated_credits"`
	ThresholdPct     float64          `json:"threshold_pct"`
}
