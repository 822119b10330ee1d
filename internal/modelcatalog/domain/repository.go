package domain

import (
	"context"

	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"gorm.io/gorm"
)

type Repository interface {
	ListModels(ctx context.Context, db *gorm.DB) ([]Model, error)
	FindModel(ctx context.Context, db *gorm.DB, modelID string) (*Model, error)
	SaveModel(ctx context.Context, db *gorm.DB, model *Model) error

	FindSet(ctx context.Context, db *gorm.DB, accountID string, kind SetKind) (*AccountModelSet, error)
	SaveSet(ctx context.Context, db *gorm.DB, set *AccountModelSet) error

	ListOverrides(ctx context.Context, db *gorm.DB, accountID string) ([]ModelOverride, error)
	FindOverride(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (*ModelOverride, error)
	SaveOverride(ctx context.Context, db *gorm.DB, override *ModelOverride) error
	DeleteOverride(ctx context.Context, db *gorm.DB, accountID string, scopeType scopedomain.Type, scopeID string) (bool, error)
}
