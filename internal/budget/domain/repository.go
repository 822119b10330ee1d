package domain

import (
	"context"

	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"gorm.io/gorm"
)

type Repository interface {
	FindPlan(ctx context.Context, db *gorm.DB, accountID string) (*Plan, error)
	SavePlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	ApplyPoolUsage(ctx context.Context, db *gorm.DB, accountID string, credits float64) error

	ListAllocations(ctx context.Context, db *gorm.DB, accountID string) ([]Allocation, error)
	FindAllocation(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (*Allocation, error)
	FindAllocationByID(ctx context.Context, db *gorm.DB, accountID string, id int64) (*Allocation, error)
	SaveAllocation(ctx context.Context, db *gorm.DB, allocation *Allocation) error
	DeleteAllocation(ctx context.Context, db *gorm.DB, accountID string, id int64) (bool, error)
	ApplyAllocationUsage(ctx context.Context, db *gorm.DB, accountID string, id int64, credits float64) error
	SumAllocated(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type) (float64, error)
	SumChildAllocated(ctx context.Context, db *gorm.DB, accountID string, parentType scopedomain.Type, parentID string) (float64, error)

	InsertUsage(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	ListUsage(ctx context.Context, db *gorm.DB, filter ListUsageRequest) ([]UsageRecord, error)

	ListAlertRules(ctx context.Context, db *gorm.DB, accountID string) ([]AlertRule, error)
	FindAlertRule(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (*AlertRule, error)
	SaveAlertRule(ctx context.Context, db *gorm.DB, rule *AlertRule) error
}
