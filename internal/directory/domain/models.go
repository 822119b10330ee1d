package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Team mirrors the host directory's team record for local resolution.
type Team struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	AccountID      string       `gorm:"type:text;not null;index:ux_directory_teams_account_team,unique,priority:1"`
	TeamID         string       `gorm:"type:text;not null;index:ux_directory_teams_account_team,priority:2"`
	OrganizationID string       `gorm:"type:text"`
	CreatedAt      time.Time    `gorm:"not null;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"not null;autoUpdateTime"`
}

func (Team) TableName() string { return "directory_teams" }

// Membership links a user to a team (and transitively an organization).
type Membership struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	AccountID      string       `gorm:"type:text;not null;index:idx_directory_memberships_account_user,priority:1"`
	UserID         string       `gorm:"type:text;not null;index:idx_directory_memberships_account_user,priority:2"`
	TeamID         string       `gorm:"type:text;not null"`
	OrganizationID string       `gorm:"type:text"`
	CreatedAt      time.Time    `gorm:"not null;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"not null;autoUpdateTime"`
}

func (Membership) TableName() string { return "directory_memberships" }

// TeamInfo is the resolved view of a team used during scope resolution.
type TeamInfo struct {
	TeamID         string `json:"team_id"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// UserInfo is the resolved view of a user used during scope resolution.
// TeamIDs preserves membership order; the first listed team wins.
type UserInfo struct {
	UserID         string   `json:"user_id"`
	TeamIDs        []string `json:"team_ids,omitempty"`
	OrganizationID string   `json:"organization_id,omitempty"`
}
