package service

import (
	"context"
	"strings"

	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
	"github.com/scopeline/scopeline/internal/scope/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Directory directorydomain.Service
}

type Service struct {
	log       *zap.Logger
	directory directorydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("scope.service"),
		directory: p.Directory,
	}
}

// Resolve builds the specific-to-broad chain for the requested scope. The
// chain is deduplicated and always terminates in the account scope. Missing
// hierarchy levels are omitted; only missing required identifiers fail.
func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) ([]domain.Scope, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	scopeType, err := domain.ParseType(req.ScopeType)
	if err != nil {
		return nil, err
	}

	scopeID := strings.TrimSpace(req.ScopeID)
	if scopeID == "" {
		return nil, domain.ErrInvalidScopeID
	}

	var chain []domain.Scope
	switch scopeType {
	case domain.TypeAccount:
		if scopeID != accountID {
			return nil, domain.ErrAccountMismatch
		}
	case domain.TypeGroup:
		chain = append(chain, domain.Scope{Type: domain.TypeGroup, ID: scopeID})
	case domain.TypeTeam:
		chain = append(chain, domain.Scope{Type: domain.TypeTeam, ID: scopeID})
		if orgID := s.resolveTeamOrg(ctx, accountID, scopeID); orgID != "" {
			chain = append(chain, domain.Scope{Type: domain.TypeGroup, ID: orgID})
		}
	case domain.TypeUser:
		chain = append(chain, domain.Scope{Type: domain.TypeUser, ID: scopeID})
		teamID, orgID := s.resolveUserParents(ctx, accountID, scopeID, req.Claims)
		if teamID != "" {
			chain = append(chain, domain.Scope{Type: domain.TypeTeam, ID: teamID})
		}
		if orgID != "" {
			chain = append(chain, domain.Scope{Type: domain.TypeGroup, ID: orgID})
		}
	}

	chain = append(chain, domain.Scope{Type: domain.TypeAccount, ID: accountID})
	return dedupe(chain), nil
}

// resolveTeamOrg finds a team's parent organization, treating lookup
// failures as an absent parent.
func (s *Service) resolveTeamOrg(ctx context.Context, accountID, teamID string) string {
	team, err := s.directory.LookupTeam(ctx, accountID, teamID)
	if err != nil || team == nil {
		return ""
	}
	return team.OrganizationID
}

// resolveUserParents determines the user's team and organization. Actor
// claims win when the resolved user is the caller; persisted memberships and
// the host directory are fallbacks.
func (s *Service) resolveUserParents(ctx context.Context, accountID, userID string, claims *domain.Claims) (string, string) {
	var teamID, orgID string

	if claims != nil && claims.UserID == userID {
		if len(claims.TeamIDs) > 0 {
			teamID = strings.TrimSpace(claims.TeamIDs[0])
		}
		if len(claims.OrganizationIDs) > 0 {
			orgID = strings.TrimSpace(claims.OrganizationIDs[0])
		}
	}

	if teamID == "" {
		user, err := s.directory.LookupUser(ctx, accountID, userID)
		if err == nil && user != nil {
			if len(user.TeamIDs) > 0 {
				teamID = user.TeamIDs[0]
			}
			if orgID == "" {
				orgID = user.OrganizationID
			}
		}
	}

	if teamID != "" && orgID == "" {
		orgID = s.resolveTeamOrg(ctx, accountID, teamID)
	}

	return teamID, orgID
}

func dedupe(chain []domain.Scope) []domain.Scope {
	seen := make(map[domain.Scope]struct{}, len(chain))
	out := chain[:0]
	for _, sc := range chain {
		if _, ok := seen[sc]; ok {
			continue
		}
		seen[sc] = struct{}{}
		out = append(out, sc)
	}
	return out
}
