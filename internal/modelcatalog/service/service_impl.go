package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scopeline/scopeline/internal/clock"
	"github.com/scopeline/scopeline/internal/modelcatalog/domain"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
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
		log:   p.Log.Named("modelcatalog.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) ListCatalog(ctx context.Context) ([]domain.ModelResponse, error) {
	models, err := s.repo.ListModels(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.ModelResponse, 0, len(models))
	for i := range models {
		resp = append(resp, toModelResponse(&models[i]))
	}
	return resp, nil
}

func (s *Service) UpsertCatalogModel(ctx context.Context, req domain.UpsertModelRequest) (*domain.ModelResponse, error) {
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		return nil, domain.ErrInvalidModelID
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, domain.ErrInvalidName
	}

	var resp domain.ModelResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		model, err := s.repo.FindModel(ctx, tx, modelID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if model == nil {
			model = &domain.Model{
				ID:        s.genID.Generate(),
				ModelID:   modelID,
				Enabled:   true,
				CreatedAt: now,
			}
		}
		model.DisplayName = displayName
		model.Provider = strings.TrimSpace(req.Provider)
		if req.Enabled != nil {
			model.Enabled = *req.Enabled
		}
		model.UpdatedAt = now

		if err := s.repo.SaveModel(ctx, tx, model); err != nil {
			return err
		}
		resp = toModelResponse(model)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetEligibility replaces the account's eligibility set. Super-admin surface.
func (s *Service) SetEligibility(ctx context.Context, req domain.SetModelsRequest) (*domain.ModelSetResponse, error) {
	return s.setModels(ctx, req, domain.SetKindEligibility)
}

// SetSelection replaces the account's selection set. When an eligibility set
// exists, every selected model must belong to it.
func (s *Service) SetSelection(ctx context.Context, req domain.SetModelsRequest) (*domain.ModelSetResponse, error) {
	return s.setModels(ctx, req, domain.SetKindSelection)
}

func (s *Service) setModels(ctx context.Context, req domain.SetModelsRequest, kind domain.SetKind) (*domain.ModelSetResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	models := normalizeModels(req.Models)

	var resp *domain.ModelSetResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, modelID := range models {
			known, err := s.repo.FindModel(ctx, tx, modelID)
			if err != nil {
				return err
			}
			if known == nil {
				return domain.ErrUnknownModel
			}
		}

		if kind == domain.SetKindSelection {
			eligibility, err := s.repo.FindSet(ctx, tx, accountID, domain.SetKindEligibility)
			if err != nil {
				return err
			}
			if eligibility != nil {
				eligible := toSet(eligibility.Models)
				for _, modelID := range models {
					if !eligible[modelID] {
						return domain.ErrNotEligible
					}
				}
			}
		}

		set, err := s.repo.FindSet(ctx, tx, accountID, kind)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if set == nil {
			set = &domain.AccountModelSet{
				ID:        s.genID.Generate(),
				AccountID: accountID,
				Kind:      kind,
				CreatedAt: now,
			}
		}
		set.Models = models
		set.UpdatedBy = strings.TrimSpace(req.ActorID)
		set.UpdatedAt = now

		if err := s.repo.SaveSet(ctx, tx, set); err != nil {
			return err
		}
		resp = &domain.ModelSetResponse{
			AccountID: accountID,
			Kind:      kind,
			Models:    models,
			UpdatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) GetSets(ctx context.Context, accountID string) (*domain.AccountSetsResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	resp := &domain.AccountSetsResponse{AccountID: accountID}
	eligibility, err := s.repo.FindSet(ctx, s.db, accountID, domain.SetKindEligibility)
	if err != nil {
		return nil, err
	}
	if eligibility != nil {
		resp.Eligibility = eligibility.Models
	}
	selection, err := s.repo.FindSet(ctx, s.db, accountID, domain.SetKindSelection)
	if err != nil {
		return nil, err
	}
	if selection != nil {
		resp.Selection = selection.Models
	}
	return resp, nil
}

func (s *Service) SetOverride(ctx context.Context, req domain.SetOverrideRequest) (*domain.OverrideResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	scopeType, err := scopedomain.ParseType(req.ScopeType)
	if err != nil {
		return nil, err
	}
	if scopeType == scopedomain.TypeAccount {
		return nil, scopedomain.ErrInvalidScopeType
	}
	scopeID := strings.TrimSpace(req.ScopeID)
	if scopeID == "" {
		return nil, domain.ErrInvalidScopeID
	}
	models := normalizeModels(req.Models)

	var resp *domain.OverrideResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, modelID := range models {
			known, err := s.repo.FindModel(ctx, tx, modelID)
			if err != nil {
				return err
			}
			if known == nil {
				return domain.ErrUnknownModel
			}
		}

		override, err := s.repo.FindOverride(ctx, tx, accountID, scopeType, scopeID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if override == nil {
			override = &domain.ModelOverride{
				ID:        s.genID.Generate(),
				AccountID: accountID,
				ScopeType: scopeType,
				ScopeID:   scopeID,
				CreatedAt: now,
			}
		}
		override.Models = models
		override.UpdatedBy = strings.TrimSpace(req.ActorID)
		override.UpdatedAt = now

		if err := s.repo.SaveOverride(ctx, tx, override); err != nil {
			return err
		}
		resp = &domain.OverrideResponse{
			AccountID: accountID,
			ScopeType: scopeType,
			ScopeID:   scopeID,
			Models:    models,
			UpdatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) DeleteOverride(ctx context.Context, accountID, scopeType, scopeID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrInvalidAccount
	}
	parsed, err := scopedomain.ParseType(scopeType)
	if err != nil {
		return err
	}
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		return domain.ErrInvalidScopeID
	}

	deleted, err := s.repo.DeleteOverride(ctx, s.db, accountID, parsed, scopeID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) ListOverrides(ctx context.Context, accountID string) ([]domain.OverrideResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	items, err := s.repo.ListOverrides(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.OverrideResponse, 0, len(items))
	for i := range items {
		resp = append(resp, domain.OverrideResponse{
			AccountID: items[i].AccountID,
			ScopeType: items[i].ScopeType,
			ScopeID:   items[i].ScopeID,
			Models:    items[i].Models,
			UpdatedAt: items[i].UpdatedAt,
		})
	}
	return resp, nil
}

// EffectiveModels computes the visible model list for a caller. Starting from
// the account baseline (eligibility ∩ selection, either set alone, or the
// full catalog when neither exists), scope overrides narrow the result in
// group, team, user order. Disabled models never appear.
func (s *Service) EffectiveModels(ctx context.Context, req domain.EffectiveModelsRequest) ([]domain.ModelResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	catalog, err := s.repo.ListModels(ctx, s.db)
	if err != nil {
		return nil, err
	}

	eligibility, err := s.repo.FindSet(ctx, s.db, accountID, domain.SetKindEligibility)
	if err != nil {
		return nil, err
	}
	selection, err := s.repo.FindSet(ctx, s.db, accountID, domain.SetKindSelection)
	if err != nil {
		return nil, err
	}

	var visible map[string]bool
	switch {
	case eligibility != nil && selection != nil:
		visible = intersect(toSet(eligibility.Models), toSet(selection.Models))
	case selection != nil:
		visible = toSet(selection.Models)
	case eligibility != nil:
		visible = toSet(eligibility.Models)
	default:
		visible = make(map[string]bool, len(catalog))
		for i := range catalog {
			visible[catalog[i].ModelID] = true
		}
	}

	narrowings := []struct {
		scopeType scopedomain.Type
		scopeID   string
	}{
		{scopedomain.TypeGroup, strings.TrimSpace(req.OrganizationID)},
		{scopedomain.TypeTeam, strings.TrimSpace(req.TeamID)},
		{scopedomain.TypeUser, strings.TrimSpace(req.UserID)},
	}
	for _, n := range narrowings {
		if n.scopeID == "" {
			continue
		}
		override, err := s.repo.FindOverride(ctx, s.db, accountID, n.scopeType, n.scopeID)
		if err != nil {
			return nil, err
		}
		if override != nil {
			visible = intersect(visible, toSet(override.Models))
		}
	}

	// Catalog order is display_name ascending; walking it keeps the result
	// sorted and drops model ids that never made it into the catalog.
	resp := make([]domain.ModelResponse, 0, len(visible))
	for i := range catalog {
		model := &catalog[i]
		if !model.Enabled || !visible[model.ModelID] {
			continue
		}
		resp = append(resp, toModelResponse(model))
	}
	return resp, nil
}

func toModelResponse(m *domain.Model) domain.ModelResponse {
	return domain.ModelResponse{
		ModelID:     m.ModelID,
		DisplayName: m.DisplayName,
		Provider:    m.Provider,
		Enabled:     m.Enabled,
	}
}

func normalizeModels(models []string) []string {
	out := make([]string, 0, len(models))
	seen := make(map[string]bool, len(models))
	for _, raw := range models {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toSet(models []string) map[string]bool {
	set := make(map[string]bool, len(models))
	for _, id := range models {
		set[id] = true
	}
	return set
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for id := range a {
		if b[id] {
			out[id] = true
		}
	}
	return out
}
