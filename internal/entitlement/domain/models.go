package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Source identifies where an entitlement grant came from. Merge order is
// fixed by priority: higher priority wins key collisions.
type Source string

const (
	SourcePlan       Source = "plan"
	SourceAddon      Source = "addon"
	SourceTrial      Source = "trial"
	SourcePromotion  Source = "promotion"
	SourceSuperAdmin Source = "super_admin"
)

var sourcePriority = map[Source]int{
	SourcePlan:       1,
	SourceAddon:      2,
	SourceTrial:      3,
	SourcePromotion:  4,
	SourceSuperAdmin: 5,
}

func ParseSource(raw string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sourcePriority[s]; !ok {
		return "", ErrInvalidSource
	}
	return s, nil
}

func (s Source) Priority() int {
	return sourcePriority[s]
}

// Feature is the catalog entry supplying the merge base. A nil FeatureCode is
// a product-level entry; matching is exact, nil only matches nil.
type Feature struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	ProductCode   string            `gorm:"type:text;not null;index:ux_entitlement_feature,unique,priority:1"`
	FeatureCode   *string           `gorm:"type:text;index:ux_entitlement_feature,priority:2"`
	EntityCode    *string           `gorm:"type:text"`
	Description   string            `gorm:"type:text"`
	DefaultConfig datatypes.JSONMap `gorm:"type:text"`
	CreatedAt     time.Time         `gorm:"not null;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"not null;autoUpdateTime"`
}

func (Feature) TableName() string { return "entitlement_features" }

// Entitlement is one grant. Several grants may target the same
// (product_code, feature_code); they merge rather than exclude each other.
type Entitlement struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	AccountID   string            `gorm:"type:text;not null;index"`
	ProductCode string            `gorm:"type:text;not null"`
	FeatureCode *string           `gorm:"type:text"`
	EntityCode  *string           `gorm:"type:text"`
	Source      Source            `gorm:"type:text;not null"`
	Enabled     bool              `gorm:"not null;default:true"`
	Config      datatypes.JSONMap `gorm:"type:text;not null"`
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	CreatedBy   string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime"`
}

func (Entitlement) TableName() string { return "entitlements" }

// ActiveAt reports whether the grant's validity window contains t. A nil
// bound is open-ended on that side.
func (e *Entitlement) ActiveAt(t time.Time) bool {
	if e.ValidFrom != nil && t.Before(*e.ValidFrom) {
		return false
	}
	if e.ValidUntil != nil && !t.Before(*e.ValidUntil) {
		return false
	}
	return true
}

// Matches reports whether the grant targets exactly the given product and
// feature. A nil feature code only matches a nil feature code.
func (e *Entitlement) Matches(productCode string, featureCode *string) bool {
	if e.ProductCode != productCode {
		return false
	}
	return codesEqual(e.FeatureCode, featureCode)
}

func codesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var (
	ErrInvalidAccount     = errors.New("invalid_account")
	ErrInvalidSource      = errors.New("invalid_source")
	ErrInvalidProductCode = errors.New("invalid_product_code")
	ErrInvalidFeatureCode = errors.New("invalid_feature_code")
	ErrInvalidConfig      = errors.New("invalid_config")
	ErrInvalidWindow      = errors.New("invalid_validity_window")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
)
