package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"gorm.io/datatypes"
)

// Model is one catalog entry. ModelID is the wire identifier sent by
// gateways; DisplayName is what management surfaces render.
type Model struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	ModelID     string       `gorm:"type:text;not null;uniqueIndex"`
	DisplayName string       `gorm:"type:text;not null"`
	Provider    string       `gorm:"type:text"`
	Enabled     bool         `gorm:"not null;default:true"`
	CreatedAt   time.Time    `gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"not null;autoUpdateTime"`
}

func (Model) TableName() string { return "catalog_models" }

type SetKind string

const (
	SetKindEligibility SetKind = "eligibility"
	SetKindSelection   SetKind = "selection"
)

// AccountModelSet stores one of the two per-account model lists: the
// eligibility set maintained by super admins and the selection set maintained
// by account admins.
type AccountModelSet struct {
	ID        snowflake.ID                `gorm:"primaryKey"`
	AccountID string                      `gorm:"type:text;not null;index:ux_catalog_set,unique,priority:1"`
	Kind      SetKind                     `gorm:"type:text;not null;index:ux_catalog_set,priority:2"`
	Models    datatypes.JSONSlice[string] `gorm:"not null"`
	UpdatedBy string                      `gorm:"type:text"`
	CreatedAt time.Time                   `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time                   `gorm:"not null;autoUpdateTime"`
}

func (AccountModelSet) TableName() string { return "catalog_account_sets" }

// ModelOverride restricts the visible set for one scope. Overrides only
// narrow; a scope without an override inherits the account-level result.
type ModelOverride struct {
	ID        snowflake.ID                `gorm:"primaryKey"`
	AccountID string                      `gorm:"type:text;not null;index:ux_catalog_override,unique,priority:1"`
	ScopeType scopedomain.Type            `gorm:"type:text;not null;index:ux_catalog_override,priority:2"`
	ScopeID   string                      `gorm:"type:text;not null;index:ux_catalog_override,priority:3"`
	Models    datatypes.JSONSlice[string] `gorm:"not null"`
	UpdatedBy string                      `gorm:"type:text"`
	CreatedAt time.Time                   `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time                   `gorm:"not null;autoUpdateTime"`
}

func (ModelOverride) TableName() string { return "catalog_model_overrides" }
