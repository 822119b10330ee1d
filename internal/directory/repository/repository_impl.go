package repository

import (
	"context"

	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() directorydomain.Repository {
	return &repo{}
}

func (r *repo) UpsertTeam(ctx context.Context, db *gorm.DB, team *directorydomain.Team) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO directory_teams (id, account_id, team_id, organization_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, team_id) DO UPDATE
		 SET organization_id = excluded.organization_id, updated_at = excluded.updated_at`,
		team.ID,
		team.AccountID,
		team.TeamID,
		team.OrganizationID,
		team.CreatedAt,
		team.UpdatedAt,
	).Error
}

func (r *repo) FindTeam(ctx context.Context, db *gorm.DB, accountID, teamID string) (*directorydomain.Team, error) {
	var t directorydomain.Team
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, team_id, organization_id, created_at, updated_at
		 FROM directory_teams WHERE account_id = ? AND team_id = ?`,
		accountID,
		teamID,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) UpsertMembership(ctx context.Context, db *gorm.DB, membership *directorydomain.Membership) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE directory_memberships
		 SET team_id = ?, organization_id = ?, updated_at = ?
		 WHERE account_id = ? AND user_id = ? AND team_id = ?`,
		membership.TeamID,
		membership.OrganizationID,
		membership.UpdatedAt,
		membership.AccountID,
		membership.UserID,
		membership.TeamID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO directory_memberships (id, account_id, user_id, team_id, organization_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		membership.ID,
		membership.AccountID,
		membership.UserID,
		membership.TeamID,
		membership.OrganizationID,
		membership.CreatedAt,
		membership.UpdatedAt,
	).Error
}

func (r *repo) ListMemberships(ctx context.Context, db *gorm.DB, accountID, userID string) ([]directorydomain.Membership, error) {
	var items []directorydomain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, user_id, team_id, organization_id, created_at, updated_at
		 FROM directory_memberships
		 WHERE account_id = ? AND user_id = ?
		 ORDER BY created_at, id`,
		accountID,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
