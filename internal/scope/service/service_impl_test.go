package service

import (
	"context"
	"errors"
	"testing"

	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
	"github.com/scopeline/scopeline/internal/scope/domain"
	"go.uber.org/zap"
)

type directoryStub struct {
	teams map[string]*directorydomain.TeamInfo
	users map[string]*directorydomain.UserInfo
	err   error
}

func (d *directoryStub) LookupTeam(ctx context.Context, accountID, teamID string) (*directorydomain.TeamInfo, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.teams[teamID], nil
}

func (d *directoryStub) LookupUser(ctx context.Context, accountID, userID string) (*directorydomain.UserInfo, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users[userID], nil
}

func (d *directoryStub) UpsertTeam(ctx context.Context, req directorydomain.UpsertTeamRequest) error {
	return nil
}

func (d *directoryStub) UpsertMembership(ctx context.Context, req directorydomain.UpsertMembershipRequest) error {
	return nil
}

func newService(dir directorydomain.Service) domain.Service {
	return New(Params{Log: zap.NewNop(), Directory: dir})
}

func TestResolveFullUserChain(t *testing.T) {
	svc := newService(&directoryStub{
		teams: map[string]*directorydomain.TeamInfo{
			"team-1": {TeamID: "team-1", OrganizationID: "org-1"},
		},
		users: map[string]*directorydomain.UserInfo{
			"user-1": {UserID: "user-1", TeamIDs: []string{"team-1"}, OrganizationID: "org-1"},
		},
	})

	chain, err := svc.Resolve(context.Background(), domain.ResolveRequest{
		AccountID: "acct-1",
		ScopeType: "USER",
		ScopeID:   "user-1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []domain.Scope{
		{Type: domain.TypeUser, ID: "user-1"},
		{Type: domain.TypeTeam, ID: "team-1"},
		{Type: domain.TypeGroup, ID: "org-1"},
		{Type: domain.TypeAccount, ID: "acct-1"},
	}
	assertChain(t, chain, want)
}

func TestResolveChainAlwaysTerminatesInAccount(t *testing.T) {
	svc := newService(&directoryStub{})

	cases := []struct {
		scopeType string
		scopeID   string
	}{
		{"user", "user-x"},
		{"team", "team-x"},
		{"group", "org-x"},
		{"organization", "org-x"},
		{"account", "acct-1"},
	}
	for _, tc := range cases {
		chain, err := svc.Resolve(context.Background(), domain.ResolveRequest{
			AccountID: "acct-1",
			ScopeType: tc.scopeType,
			ScopeID:   tc.scopeID,
		})
		if err != nil {
			t.Fatalf("resolve %s: %v", tc.scopeType, err)
		}
		if len(chain) == 0 {
			t.Fatalf("resolve %s: empty chain", tc.scopeType)
		}
		last := chain[len(chain)-1]
		if last.Type != domain.TypeAccount || last.ID != "acct-1" {
			t.Fatalf("resolve %s: chain does not end in account scope: %+v", tc.scopeType, chain)
		}
		seen := make(map[domain.Scope]bool)
		for _, sc := range chain {
			if seen[sc] {
				t.Fatalf("resolve %s: duplicate scope %+v", tc.scopeType, sc)
			}
			seen[sc] = true
		}
	}
}

func TestResolveUserDegradesWhenUnknown(t *testing.T) {
	svc := newService(&directoryStub{})

	chain, err := svc.Resolve(context.Background(), domain.ResolveRequest{
		AccountID: "acct-1",
		ScopeType: "user",
		ScopeID:   "ghost",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []domain.Scope{
		{Type: domain.TypeUser, ID: "ghost"},
		{Type: domain.TypeAccount, ID: "acct-1"},
	}
	assertChain(t, chain, want)
}

func TestResolveUserDegradesOnDirectoryFailure(t *testing.T) {
	svc := newService(&directoryStub{err: errors.New("upstream unavailable")})

	chain, err := svc.Resolve(context.Background(), domain.ResolveRequest{
		AccountID: "acct-1",
		ScopeType: "user",
		ScopeID:   "user-1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []domain.Scope{
		{Type: domain.TypeUser, ID: "user-1"},
		{Type: domain.TypeAccount, ID: "acct-1"},
	}
	assertChain(t, chain, want)
}

func TestResolveClaimsWinOverMembership(t *testing.T) {
	svc := newService(&directoryStub{
		teams: map[string]*directorydomain.TeamInfo{
			"claim-team": {TeamID: "claim-team", OrganizationID: "claim-org"},
		},
		users: map[string]*directorydomain.UserInfo{
			"user-1": {UserID: "user-1", TeamIDs: []string{"db-team"}, OrganizationID: "db-org"},
		},
	})

	chain, err := svc.Resolve(context.Background(), domain.ResolveRequest{
		AccountID: "acct-1",
		ScopeType: "user",
		ScopeID:   "user-1",
		Claims: &domain.Claims{
			UserID:  "user-1",
			TeamIDs: []string{"claim-team", "other-team"},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []domain.Scope{
		{Type: domain.TypeUser, ID: "user-1"},
		{Type: domain.TypeTeam, ID: "claim-team"},
		{Type: domain.TypeGroup, ID: "claim-org"},
		{Type: domain.TypeAccount, ID: "acct-1"},
	}
	assertChain(t, chain, want)
}

func TestResolveClaimsIgnoredForOtherUsers(t *testing.T) {
	svc := newService(&directoryStub{
		users: map[string]*directorydomain.UserInfo{
			"user-2": {UserID: "user-2", TeamIDs: []string{"db-team"}},
		},
	})

	chain, err := svc.Resolve(context.Background(), domain.ResolveRequest{
		AccountID: "acct-1",
		ScopeType: "user",
		ScopeID:   "user-2",
		Claims: &domain.Claims{
			UserID:  "user-1",
			TeamIDs: []string{"claim-team"},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []domain.Scope{
		{Type: domain.TypeUser, ID: "user-2"},
		{Type: domain.TypeTeam, ID: "db-team"},
		{Type: domain.TypeAccount, ID: "acct-1"},
	}
	assertChain(t, chain, want)
}

func TestResolveValidation(t *testing.T) {
	svc := newService(&directoryStub{})
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, domain.ResolveRequest{AccountID: "acct-1", ScopeType: "region", ScopeID: "x"}); !errors.Is(err, domain.ErrInvalidScopeType) {
		t.Fatalf("expected invalid scope type, got %v", err)
	}
	if _, err := svc.Resolve(ctx, domain.ResolveRequest{AccountID: "acct-1", ScopeType: "user", ScopeID: " "}); !errors.Is(err, domain.ErrInvalidScopeID) {
		t.Fatalf("expected invalid scope id, got %v", err)
	}
	if _, err := svc.Resolve(ctx, domain.ResolveRequest{AccountID: "", ScopeType: "user", ScopeID: "u"}); !errors.Is(err, domain.ErrInvalidAccount) {
		t.Fatalf("expected invalid account, got %v", err)
	}
	if _, err := svc.Resolve(ctx, domain.ResolveRequest{AccountID: "acct-1", ScopeType: "account", ScopeID: "acct-2"}); !errors.Is(err, domain.ErrAccountMismatch) {
		t.Fatalf("expected account mismatch, got %v", err)
	}
}

func assertChain(t *testing.T, got, want []domain.Scope) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("chain length mismatch: got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain[%d] mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}
