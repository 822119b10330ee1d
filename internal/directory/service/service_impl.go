package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/scopeline/scopeline/internal/cache"
	"github.com/scopeline/scopeline/internal/directory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cache cache.DirectoryCache
	Host  domain.HostDirectory `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	cache cache.DirectoryCache
	host  domain.HostDirectory
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("directory.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cache: p.Cache,
		host:  p.Host,
	}
}

// LookupTeam resolves a team locally first, then through the host directory.
// A miss everywhere returns (nil, nil); upstream failures degrade to a miss.
func (s *Service) LookupTeam(ctx context.Context, accountID, teamID string) (*domain.TeamInfo, error) {
	accountID = strings.TrimSpace(accountID)
	teamID = strings.TrimSpace(teamID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	if teamID == "" {
		return nil, domain.ErrInvalidTeamID
	}

	if cached, ok := s.cache.GetTeam(accountID, teamID); ok {
		return cached, nil
	}

	team, err := s.repo.FindTeam(ctx, s.db, accountID, teamID)
	if err != nil {
		s.log.Warn("local team lookup failed", zap.String("team_id", teamID), zap.Error(err))
	} else if team != nil {
		info := &domain.TeamInfo{TeamID: team.TeamID, OrganizationID: team.OrganizationID}
		s.cache.SetTeam(accountID, teamID, info)
		return info, nil
	}

	if s.host == nil {
		return nil, nil
	}
	info, err := s.host.FindTeam(ctx, accountID, teamID)
	if err != nil {
		s.log.Warn("host team lookup failed", zap.String("team_id", teamID), zap.Error(err))
		return nil, nil
	}
	if info != nil {
		s.cache.SetTeam(accountID, teamID, info)
	}
	return info, nil
}

// LookupUser resolves a user's memberships locally first, then through the
// host directory. Membership order is preserved; the first team wins.
func (s *Service) LookupUser(ctx context.Context, accountID, userID string) (*domain.UserInfo, error) {
	accountID = strings.TrimSpace(accountID)
	userID = strings.TrimSpace(userID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	if cached, ok := s.cache.GetUser(accountID, userID); ok {
		return cached, nil
	}

	memberships, err := s.repo.ListMemberships(ctx, s.db, accountID, userID)
	if err != nil {
		s.log.Warn("local user lookup failed", zap.String("user_id", userID), zap.Error(err))
	} else if len(memberships) > 0 {
		info := &domain.UserInfo{UserID: userID}
		for _, m := range memberships {
			info.TeamIDs = append(info.TeamIDs, m.TeamID)
			if info.OrganizationID == "" {
				info.OrganizationID = m.OrganizationID
			}
		}
		s.cache.SetUser(accountID, userID, info)
		return info, nil
	}

	if s.host == nil {
		return nil, nil
	}
	info, err := s.host.FindUser(ctx, accountID, userID)
	if err != nil {
		s.log.Warn("host user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	}
	if info != nil {
		s.cache.SetUser(accountID, userID, info)
	}
	return info, nil
}

func (s *Service) UpsertTeam(ctx context.Context, req domain.UpsertTeamRequest) error {
	accountID := strings.TrimSpace(req.AccountID)
	teamID := strings.TrimSpace(req.TeamID)
	if accountID == "" {
		return domain.ErrInvalidAccount
	}
	if teamID == "" {
		return domain.ErrInvalidTeamID
	}

	now := time.Now().UTC()
	err := s.repo.UpsertTeam(ctx, s.db, &domain.Team{
		ID:             s.genID.Generate(),
		AccountID:      accountID,
		TeamID:         teamID,
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return err
	}
	s.cache.SetTeam(accountID, teamID, &domain.TeamInfo{
		TeamID:         teamID,
		OrganizationID: strings.TrimSpace(req.OrganizationID),
	})
	return nil
}

func (s *Service) UpsertMembership(ctx context.Context, req domain.UpsertMembershipRequest) error {
	accountID := strings.TrimSpace(req.AccountID)
	userID := strings.TrimSpace(req.UserID)
	teamID := strings.TrimSpace(req.TeamID)
	if accountID == "" {
		return domain.ErrInvalidAccount
	}
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	if teamID == "" {
		return domain.ErrInvalidTeamID
	}

	now := time.Now().UTC()
	return s.repo.UpsertMembership(ctx, s.db, &domain.Membership{
		ID:             s.genID.Generate(),
		AccountID:      accountID,
		UserID:         userID,
		TeamID:         teamID,
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}
