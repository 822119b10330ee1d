package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scopeline/scopeline/internal/audit/domain"
	"github.com/scopeline/scopeline/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Metadata keys whose values never reach the audit trail in the clear.
var sensitiveKeys = map[string]bool{
	"secret":        true,
	"token":         true,
	"password":      true,
	"api_key":       true,
	"authorization": true,
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Append(ctx context.Context, req domain.AppendRequest) error {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return domain.ErrInvalidAccount
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(req.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	entry := domain.AuditLog{
		ID:         s.genID.Generate(),
		AccountID:  accountID,
		ActorID:    optionalString(req.ActorID),
		ActorRole:  strings.TrimSpace(req.ActorRole),
		Action:     action,
		TargetType: targetType,
		TargetID:   optionalString(req.TargetID),
		Metadata:   datatypes.JSONMap(redact(req.Metadata)),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.AuditLog, error) {
	req.AccountID = strings.TrimSpace(req.AccountID)
	if req.AccountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return nil, domain.ErrInvalidTimeRange
	}
	return s.repo.List(ctx, s.db, req)
}

func redact(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		if sensitiveKeys[strings.ToLower(trimmed)] {
			out[trimmed] = "****"
			continue
		}
		out[trimmed] = value
	}
	return out
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
