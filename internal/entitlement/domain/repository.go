package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListFeatures(ctx context.Context, db *gorm.DB) ([]Feature, error)
	FindFeature(ctx context.Context, db *gorm.DB, productCode string, featureCode *string) (*Feature, error)
	SaveFeature(ctx context.Context, db *gorm.DB, feature *Feature) error

	ListEntitlements(ctx context.Context, db *gorm.DB, accountID string) ([]Entitlement, error)
	InsertEntitlement(ctx context.Context, db *gorm.DB, entitlement *Entitlement) error
	DeleteEntitlement(ctx context.Context, db *gorm.DB, accountID string, id int64) (bool, error)
}
