package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	UpsertTeam(ctx context.Context, db *gorm.DB, team *Team) error
	FindTeam(ctx context.Context, db *gorm.DB, accountID, teamID string) (*Team, error)
	UpsertMembership(ctx context.Context, db *gorm.DB, membership *Membership) error
	ListMemberships(ctx context.Context, db *gorm.DB, accountID, userID string) ([]Membership, error)
}
