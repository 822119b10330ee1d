package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scopeline/scopeline/internal/clock"
	"github.com/scopeline/scopeline/internal/entitlement/domain"
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
		log:   p.Log.Named("entitlement.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) ListFeatures(ctx context.Context) ([]domain.FeatureResponse, error) {
	features, err := s.repo.ListFeatures(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.FeatureResponse, 0, len(features))
	for i := range features {
		resp = append(resp, toFeatureResponse(&features[i]))
	}
	return resp, nil
}

func (s *Service) UpsertFeature(ctx context.Context, req domain.UpsertFeatureRequest) (*domain.FeatureResponse, error) {
	productCode := strings.TrimSpace(req.ProductCode)
	if productCode == "" {
		return nil, domain.ErrInvalidProductCode
	}
	featureCode, err := normalizeCode(req.FeatureCode)
	if err != nil {
		return nil, err
	}
	entityCode, err := normalizeCode(req.EntityCode)
	if err != nil {
		return nil, err
	}

	var resp domain.FeatureResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		feature, err := s.repo.FindFeature(ctx, tx, productCode, featureCode)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if feature == nil {
			feature = &domain.Feature{
				ID:          s.genID.Generate(),
				ProductCode: productCode,
				FeatureCode: featureCode,
				CreatedAt:   now,
			}
		}
		feature.EntityCode = entityCode
		feature.Description = strings.TrimSpace(req.Description)
		feature.DefaultConfig = req.DefaultConfig
		feature.UpdatedAt = now

		if err := s.repo.SaveFeature(ctx, tx, feature); err != nil {
			return err
		}
		resp = toFeatureResponse(feature)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) ListEntitlements(ctx context.Context, accountID string) ([]domain.EntitlementResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	items, err := s.repo.ListEntitlements(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.EntitlementResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toEntitlementResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GrantEntitlement(ctx context.Context, req domain.GrantRequest) (*domain.EntitlementResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	productCode := strings.TrimSpace(req.ProductCode)
	if productCode == "" {
		return nil, domain.ErrInvalidProductCode
	}
	source, err := domain.ParseSource(req.Source)
	if err != nil {
		return nil, err
	}
	if len(req.Config) == 0 {
		return nil, domain.ErrInvalidConfig
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidFrom.Before(*req.ValidUntil) {
		return nil, domain.ErrInvalidWindow
	}
	featureCode, err := normalizeCode(req.FeatureCode)
	if err != nil {
		return nil, err
	}
	entityCode, err := normalizeCode(req.EntityCode)
	if err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := s.clock.Now()
	entitlement := &domain.Entitlement{
		ID:          s.genID.Generate(),
		AccountID:   accountID,
		ProductCode: productCode,
		FeatureCode: featureCode,
		EntityCode:  entityCode,
		Source:      source,
		Enabled:     enabled,
		Config:      req.Config,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		CreatedBy:   strings.TrimSpace(req.ActorID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertEntitlement(ctx, s.db, entitlement); err != nil {
		return nil, err
	}

	resp := toEntitlementResponse(entitlement)
	return &resp, nil
}

func (s *Service) RevokeEntitlement(ctx context.Context, accountID, entitlementID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrInvalidAccount
	}
	id, err := snowflake.ParseString(strings.TrimSpace(entitlementID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}

	deleted, err := s.repo.DeleteEntitlement(ctx, s.db, accountID, id.Int64())
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// EffectiveConfig folds every enabled, currently-valid grant matching
// (product_code, feature_code) onto the catalog base config. Grants apply in
// ascending source priority, so a higher-priority source always wins key
// collisions regardless of insertion order. A missing catalog entry yields an
// empty base, not an error.
func (s *Service) EffectiveConfig(ctx context.Context, req domain.EffectiveConfigRequest) (*domain.EffectiveConfigResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	productCode := strings.TrimSpace(req.ProductCode)
	if productCode == "" {
		return nil, domain.ErrInvalidProductCode
	}
	featureCode, err := normalizeCode(req.FeatureCode)
	if err != nil {
		return nil, err
	}

	feature, err := s.repo.FindFeature(ctx, s.db, productCode, featureCode)
	if err != nil {
		return nil, err
	}
	base := map[string]any{}
	if feature != nil {
		for key, value := range feature.DefaultConfig {
			base[key] = value
		}
	}

	items, err := s.repo.ListEntitlements(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	active := make([]*domain.Entitlement, 0, len(items))
	for i := range items {
		e := &items[i]
		if e.Enabled && e.ActiveAt(now) && e.Matches(productCode, featureCode) {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		pi, pj := active[i].Source.Priority(), active[j].Source.Priority()
		if pi != pj {
			return pi < pj
		}
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	effective := make(map[string]any, len(base))
	for key, value := range base {
		effective[key] = value
	}
	sources := make([]domain.Source, 0, len(active))
	for _, e := range active {
		for key, value := range e.Config {
			effective[key] = value
		}
		sources = append(sources, e.Source)
	}

	return &domain.EffectiveConfigResponse{
		AccountID:       accountID,
		ProductCode:     productCode,
		FeatureCode:     featureCode,
		BaseConfig:      base,
		EffectiveConfig: effective,
		Sources:         sources,
	}, nil
}

func toFeatureResponse(f *domain.Feature) domain.FeatureResponse {
	return domain.FeatureResponse{
		ProductCode:   f.ProductCode,
		FeatureCode:   f.FeatureCode,
		EntityCode:    f.EntityCode,
		Description:   f.Description,
		DefaultConfig: f.DefaultConfig,
		UpdatedAt:     f.UpdatedAt,
	}
}

func toEntitlementResponse(e *domain.Entitlement) domain.EntitlementResponse {
	return domain.EntitlementResponse{
		ID:          e.ID.String(),
		AccountID:   e.AccountID,
		ProductCode: e.ProductCode,
		FeatureCode: e.FeatureCode,
		EntityCode:  e.EntityCode,
		Source:      e.Source,
		Enabled:     e.Enabled,
		Config:      e.Config,
		ValidFrom:   e.ValidFrom,
		ValidUntil:  e.ValidUntil,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

// normalizeCode trims an optional code; a set-but-blank code is invalid
// rather than silently collapsing to the product-level entry.
func normalizeCode(code *string) (*string, error) {
	if code == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*code)
	if trimmed == "" {
		return nil, domain.ErrInvalidFeatureCode
	}
	return &trimmed, nil
}
