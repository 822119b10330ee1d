package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/scopeline/scopeline/internal/cache"
	"github.com/scopeline/scopeline/internal/directory/domain"
	"github.com/scopeline/scopeline/internal/directory/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type hostStub struct {
	teams     map[string]*domain.TeamInfo
	users     map[string]*domain.UserInfo
	teamCalls int
	userCalls int
	err       error
}

func (h *hostStub) FindTeam(ctx context.Context, accountID, teamID string) (*domain.TeamInfo, error) {
	_ = ctx
	_ = accountID
	h.teamCalls++
	if h.err != nil {
		return nil, h.err
	}
	return h.teams[teamID], nil
}

func (h *hostStub) FindUser(ctx context.Context, accountID, userIDOrEmail string) (*domain.UserInfo, error) {
	_ = ctx
	_ = accountID
	h.userCalls++
	if h.err != nil {
		return nil, h.err
	}
	return h.users[userIDOrEmail], nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	assert.NoError(t, db.Exec(`CREATE TABLE directory_teams (
		id INTEGER PRIMARY KEY,
		account_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		organization_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)
	assert.NoError(t, db.Exec(`CREATE UNIQUE INDEX ux_directory_teams_account_team
		ON directory_teams (account_id, team_id)`).Error)
	assert.NoError(t, db.Exec(`CREATE TABLE directory_memberships (
		id INTEGER PRIMARY KEY,
		account_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		organization_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)

	return db
}

func newTestService(t *testing.T, host domain.HostDirectory) (domain.Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cache: cache.NewDirectoryCache(),
		Host:  host,
	})
	return svc, db
}

func TestLookupUserPrefersLocalMemberships(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	assert.NoError(t, svc.UpsertMembership(ctx, domain.UpsertMembershipRequest{
		AccountID: "acct-1", UserID: "u-1", TeamID: "team-a", OrganizationID: "org-1",
	}))
	assert.NoError(t, svc.UpsertMembership(ctx, domain.UpsertMembershipRequest{
		AccountID: "acct-1", UserID: "u-1", TeamID: "team-b", OrganizationID: "org-2",
	}))

	info, err := svc.LookupUser(ctx, "acct-1", "u-1")
	assert.NoError(t, err)
	assert.NotNil(t, info)
	assert.Equal(t, []string{"team-a", "team-b"}, info.TeamIDs)
	assert.Equal(t, "org-1", info.OrganizationID)
}

func TestLookupTeamFallsBackToHostAndCaches(t *testing.T) {
	host := &hostStub{teams: map[string]*domain.TeamInfo{
		"team-x": {TeamID: "team-x", OrganizationID: "org-9"},
	}}
	svc, _ := newTestService(t, host)
	ctx := context.Background()

	info, err := svc.LookupTeam(ctx, "acct-1", "team-x")
	assert.NoError(t, err)
	assert.NotNil(t, info)
	assert.Equal(t, "org-9", info.OrganizationID)
	assert.Equal(t, 1, host.teamCalls)

	// Second lookup is served from cache.
	info, err = svc.LookupTeam(ctx, "acct-1", "team-x")
	assert.NoError(t, err)
	assert.NotNil(t, info)
	assert.Equal(t, 1, host.teamCalls)
}

func TestLookupDegradesToMissOnHostFailure(t *testing.T) {
	host := &hostStub{err: assert.AnError}
	svc, _ := newTestService(t, host)
	ctx := context.Background()

	info, err := svc.LookupTeam(ctx, "acct-1", "team-x")
	assert.NoError(t, err)
	assert.Nil(t, info)

	user, err := svc.LookupUser(ctx, "acct-1", "u-1")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestLookupMissReturnsNilNil(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.LookupTeam(ctx, "acct-1", "team-missing")
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestUpsertTeamUpdatesOrganization(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()

	assert.NoError(t, svc.UpsertTeam(ctx, domain.UpsertTeamRequest{
		AccountID: "acct-1", TeamID: "team-a", OrganizationID: "org-1",
	}))
	assert.NoError(t, svc.UpsertTeam(ctx, domain.UpsertTeamRequest{
		AccountID: "acct-1", TeamID: "team-a", OrganizationID: "org-2",
	}))

	var count int64
	assert.NoError(t, db.Table("directory_teams").Where("account_id = ?", "acct-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var orgID string
	assert.NoError(t, db.Raw(
		`SELECT organization_id FROM directory_teams WHERE account_id = ? AND team_id = ?`,
		"acct-1", "team-a",
	).Scan(&orgID).Error)
	assert.Equal(t, "org-2", orgID)
}

func TestUpsertMembershipValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	err := svc.UpsertMembership(ctx, domain.UpsertMembershipRequest{UserID: "u-1", TeamID: "t-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)

	err = svc.UpsertMembership(ctx, domain.UpsertMembershipRequest{AccountID: "acct-1", TeamID: "t-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	err = svc.UpsertMembership(ctx, domain.UpsertMembershipRequest{AccountID: "acct-1", UserID: "u-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidTeamID)
}
