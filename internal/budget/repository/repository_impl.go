package repository

import (
	"context"
	"time"

	"github.com/scopeline/scopeline/internal/budget/domain"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindPlan(ctx context.Context, db *gorm.DB, accountID string) (*domain.Plan, error) {
	var p domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, cycle, credits_factor, account_allocated_credits, unallocated_used_credits, created_at, updated_at
		 FROM budget_plans WHERE account_id = ?`,
		accountID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) SavePlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE budget_plans
		 SET cycle = ?, credits_factor = ?, account_allocated_credits = ?, updated_at = ?
		 WHERE account_id = ?`,
		plan.Cycle,
		plan.CreditsFactor,
		plan.AccountAllocatedCredits,
		plan.UpdatedAt,
		plan.AccountID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO budget_plans (id, account_id, cycle, credits_factor, account_allocated_credits, unallocated_used_credits, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.AccountID,
		plan.Cycle,
		plan.CreditsFactor,
		plan.AccountAllocatedCredits,
		plan.UnallocatedUsedCredits,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

// ApplyPoolUsage debits the account pool with an atomic in-database
// increment; concurrent debits never lose updates.
func (r *repo) ApplyPoolUsage(ctx context.Context, db *gorm.DB, accountID string, credits float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE budget_plans
		 SET unallocated_used_credits = unallocated_used_credits + ?, updated_at = ?
		 WHERE account_id = ?`,
		credits,
		time.Now().UTC(),
		accountID,
	).Error
}

func (r *repo) ListAllocations(ctx context.Context, db *gorm.DB, accountID string) ([]domain.Allocation, error) {
	var items []domain.Allocation
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, scope_type, scope_id, allocated_credits, used_credits, overflow_cap,
		        parent_scope_type, parent_scope_id, created_by, created_at, updated_at
		 FROM budget_allocations
		 WHERE account_id = ?
		 ORDER BY scope_type, scope_id`,
		accountID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindAllocation(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (*domain.Allocation, error) {
	var a domain.Allocation
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, scope_type, scope_id, allocated_credits, used_credits, overflow_cap,
		        parent_scope_type, parent_scope_id, created_by, created_at, updated_at
		 FROM budget_allocations
		 WHERE account_id = ? AND scope_type = ? AND scope_id = ?`,
		accountID,
		scopeType,
		scopeID,
	).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) FindAllocationByID(ctx context.Context, db *gorm.DB, accountID string, id int64) (*domain.Allocation, error) {
	var a domain.Allocation
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, scope_type, scope_id, allocated_credits, used_credits, overflow_cap,
		        parent_scope_type, parent_scope_id, created_by, created_at, updated_at
		 FROM budget_allocations
		 WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) SaveAllocation(ctx context.Context, db *gorm.DB, allocation *domain.Allocation) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE budget_allocations
		 SET scope_type = ?, scope_id = ?, allocated_credits = ?, overflow_cap = ?,
		     parent_scope_type = ?, parent_scope_id = ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		allocation.ScopeType,
		allocation.ScopeID,
		allocation.AllocatedCredits,
		allocation.OverflowCap,
		allocation.ParentScopeType,
		allocation.ParentScopeID,
		allocation.UpdatedAt,
		allocation.AccountID,
		allocation.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO budget_allocations (id, account_id, scope_type, scope_id, allocated_credits, used_credits,
		        overflow_cap, parent_scope_type, parent_scope_id, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		allocation.ID,
		allocation.AccountID,
		allocation.ScopeType,
		allocation.ScopeID,
		allocation.AllocatedCredits,
		allocation.UsedCredits,
		allocation.OverflowCap,
		allocation.ParentScopeType,
		allocation.ParentScopeID,
		allocation.CreatedBy,
		allocation.CreatedAt,
		allocation.UpdatedAt,
	).Error
}

func (r *repo) DeleteAllocation(ctx context.Context, db *gorm.DB, accountID string, id int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM budget_allocations WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyAllocationUsage debits an allocation with an atomic in-database
// increment; concurrent debits never lose updates.
func (r *repo) ApplyAllocationUsage(ctx context.Context, db *gorm.DB, accountID string, id int64, credits float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE budget_allocations
		 SET used_credits = used_credits + ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		credits,
		time.Now().UTC(),
		accountID,
		id,
	).Error
}

func (r *repo) SumAllocated(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(allocated_credits), 0)
		 FROM budget_allocations
		 WHERE account_id = ? AND scope_type = ?`,
		accountID,
		scopeType,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) SumChildAllocated(ctx context.Context, db *gorm.DB, accountID string, parentType scopedomain.Type, parentID string) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(allocated_credits), 0)
		 FROM budget_allocations
		 WHERE account_id = ? AND parent_scope_type = ? AND parent_scope_id = ?`,
		accountID,
		parentType,
		parentID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) InsertUsage(ctx context.Context, db *gorm.DB, record *domain.UsageRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO budget_usage_records (id, account_id, model, cost, credits, user_id, team_id, organization_id,
		        effective_scope_type, effective_scope_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.AccountID,
		record.Model,
		record.Cost,
		record.Credits,
		record.UserID,
		record.TeamID,
		record.OrganizationID,
		record.EffectiveScopeType,
		record.EffectiveScopeID,
		record.RecordedAt,
	).Error
}

func (r *repo) ListUsage(ctx context.Context, db *gorm.DB, filter domain.ListUsageRequest) ([]domain.UsageRecord, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.UsageRecord{}).
		Where("account_id = ?", filter.AccountID)

	if filter.Model != "" {
		stmt = stmt.Where("model = ?", filter.Model)
	}
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("recorded_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("recorded_at < ?", *filter.EndAt)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	var items []domain.UsageRecord
	if err := stmt.Order("recorded_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAlertRules(ctx context.Context, db *gorm.DB, accountID string) ([]domain.AlertRule, error) {
	var items []domain.AlertRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, scope_type, scope_id, threshold_pct, created_at, updated_at
		 FROM budget_alert_rules WHERE account_id = ?`,
		accountID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindAlertRule(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (*domain.AlertRule, error) {
	var rule domain.AlertRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, scope_type, scope_id, threshold_pct, created_at, updated_at
		 FROM budget_alert_rules
		 WHERE account_id = ? AND scope_type = ? AND scope_id = ?`,
		accountID,
		scopeType,
		scopeID,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) SaveAlertRule(ctx context.Context, db *gorm.DB, rule *domain.AlertRule) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE budget_alert_rules
		 SET threshold_pct = ?, updated_at = ?
		 WHERE account_id = ? AND scope_type = ? AND scope_id = ?`,
		rule.ThresholdPct,
		rule.UpdatedAt,
		rule.AccountID,
		rule.ScopeType,
		rule.ScopeID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO budget_alert_rules (id, account_id, scope_type, scope_id, threshold_pct, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.AccountID,
		rule.ScopeType,
		rule.ScopeID,
		rule.ThresholdPct,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}
