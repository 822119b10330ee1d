package repository

import (
	"context"

	"github.com/scopeline/scopeline/internal/modelcatalog/domain"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListModels(ctx context.Context, db *gorm.DB) ([]domain.Model, error) {
	var items []domain.Model
	err := db.WithContext(ctx).Raw(
		`SELECT id, model_id, display_name, provider, enabled, created_at, updated_at
		 FROM catalog_models
		 ORDER BY display_name, model_id`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindModel(ctx context.Context, db *gorm.DB, modelID string) (*domain.Model, error) {
	var m domain.Model
	err := db.WithContext(ctx).Raw(
		`SELECT id, model_id, display_name, provider, enabled, created_at, updated_at
		 FROM catalog_models WHERE model_id = ?`,
		modelID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) SaveModel(ctx context.Context, db *gorm.DB, model *domain.Model) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE catalog_models
		 SET display_name = ?, provider = ?, enabled = ?, updated_at = ?
		 WHERE model_id = ?`,
		model.DisplayName,
		model.Provider,
		model.Enabled,
		model.UpdatedAt,
		model.ModelID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO catalog_models (id, model_id, display_name, provider, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		model.ID,
		model.ModelID,
		model.DisplayName,
		model.Provider,
		model.Enabled,
		model.CreatedAt,
		model.UpdatedAt,
	).Error
}

func (r *repo) FindSet(ctx context.Context, db *gorm.DB, accountID string, kind domain.SetKind) (*domain.AccountModelSet, error) {
	var set domain.AccountModelSet
	err := db.WithContext(ctx).
		Model(&domain.AccountModelSet{}).
		Where("account_id = ? AND kind = ?", accountID, kind).
		Scan(&set).Error
	if err != nil {
		return nil, err
	}
	if set.ID == 0 {
		return nil, nil
	}
	return &set, nil
}

func (r *repo) SaveSet(ctx context.Context, db *gorm.DB, set *domain.AccountModelSet) error {
	res := db.WithContext(ctx).
		Model(&domain.AccountModelSet{}).
		Where("account_id = ? AND kind = ?", set.AccountID, set.Kind).
		Updates(map[string]any{
			"models":     set.Models,
			"updated_by": set.UpdatedBy,
			"updated_at": set.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(set).Error
}

func (r *repo) ListOverrides(ctx context.Context, db *gorm.DB, accountID string) ([]domain.ModelOverride, error) {
	var items []domain.ModelOverride
	err := db.WithContext(ctx).
		Model(&domain.ModelOverride{}).
		Where("account_id = ?", accountID).
		Order("scope_type, scope_id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindOverride(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (*domain.ModelOverride, error) {
	var override domain.ModelOverride
	err := db.WithContext(ctx).
		Model(&domain.ModelOverride{}).
		Where("account_id = ? AND scope_type = ? AND scope_id = ?", accountID, scopeType, scopeID).
		Scan(&override).Error
	if err != nil {
		return nil, err
	}
	if override.ID == 0 {
		return nil, nil
	}
	return &override, nil
}

func (r *repo) SaveOverride(ctx context.Context, db *gorm.DB, override *domain.ModelOverride) error {
	res := db.WithContext(ctx).
		Model(&domain.ModelOverride{}).
		Where("account_id = ? AND scope_type = ? AND scope_id = ?", override.AccountID, override.ScopeType, override.ScopeID).
		Updates(map[string]any{
			"models":     override.Models,
			"updated_by": override.UpdatedBy,
			"updated_at": override.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(override).Error
}

func (r *repo) DeleteOverride(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM catalog_model_overrides WHERE account_id = ? AND scope_type = ? AND scope_id = ?`,
		accountID,
		scopeType,
		scopeID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
