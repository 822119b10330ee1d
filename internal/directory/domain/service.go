package domain

import (
	"context"
	"errors"
)

// Service resolves teams and users for scope-chain construction. Lookups
// return (nil, nil) when the entity cannot be resolved anywhere; upstream
// failures degrade to a miss rather than failing resolution.
type Service interface {
	LookupTeam(ctx context.Context, accountID, teamID string) (*TeamInfo, error)
	LookupUser(ctx context.Context, accountID, userID string) (*UserInfo, error)
	UpsertTeam(ctx context.Context, req UpsertTeamRequest) error
	UpsertMembership(ctx context.Context, req UpsertMembershipRequest) error
}

// HostDirectory is the host gateway's directory, consulted when a team or
// user is not known locally.
type HostDirectory interface {
	FindTeam(ctx context.Context, accountID, teamID string) (*TeamInfo, error)
	FindUser(ctx context.Context, accountID, userIDOrEmail string) (*UserInfo, error)
}

type UpsertTeamRequest struct {
	AccountID      string `json:"account_id"`
	TeamID         string `json:"team_id"`
	OrganizationID string `json:"organization_id"`
}

type UpsertMembershipRequest struct {
	AccountID      string `json:"account_id"`
	UserID         string `json:"user_id"`
	TeamID         string `json:"team_id"`
	OrganizationID string `json:"organization_id"`
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidTeamID  = errors.New("invalid_team_id")
	ErrInvalidUserID  = errors.New("invalid_user_id")
)
