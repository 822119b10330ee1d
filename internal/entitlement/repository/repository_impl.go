package repository

import (
	"context"

	"github.com/scopeline/scopeline/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListFeatures(ctx context.Context, db *gorm.DB) ([]domain.Feature, error) {
	var items []domain.Feature
	err := db.WithContext(ctx).
		Model(&domain.Feature{}).
		Order("product_code, feature_code").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindFeature(ctx context.Context, db *gorm.DB, productCode string, featureCode *string) (*domain.Feature, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Feature{}).
		Where("product_code = ?", productCode)
	if featureCode == nil {
		stmt = stmt.Where("feature_code IS NULL")
	} else {
		stmt = stmt.Where("feature_code = ?", *featureCode)
	}

	var feature domain.Feature
	if err := stmt.Scan(&feature).Error; err != nil {
		return nil, err
	}
	if feature.ID == 0 {
		return nil, nil
	}
	return &feature, nil
}

func (r *repo) SaveFeature(ctx context.Context, db *gorm.DB, feature *domain.Feature) error {
	stmt := db.WithContext(ctx).
		Model(&domain.Feature{}).
		Where("product_code = ?", feature.ProductCode)
	if feature.FeatureCode == nil {
		stmt = stmt.Where("feature_code IS NULL")
	} else {
		stmt = stmt.Where("feature_code = ?", *feature.FeatureCode)
	}

	res := stmt.Updates(map[string]any{
		"entity_code":    feature.EntityCode,
		"description":    feature.Description,
		"default_config": feature.DefaultConfig,
		"updated_at":     feature.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(feature).Error
}

func (r *repo) ListEntitlements(ctx context.Context, db *gorm.DB, accountID string) ([]domain.Entitlement, error) {
	var items []domain.Entitlement
	err := db.WithContext(ctx).
		Model(&domain.Entitlement{}).
		Where("account_id = ?", accountID).
		Order("created_at, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertEntitlement(ctx context.Context, db *gorm.DB, entitlement *domain.Entitlement) error {
	return db.WithContext(ctx).Create(entitlement).Error
}

func (r *repo) DeleteEntitlement(ctx context.Context, db *gorm.DB, accountID string, id int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM entitlements WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
