package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scopeline/scopeline/internal/budget/domain"
	"github.com/scopeline/scopeline/internal/clock"
	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/internal/obsmetrics"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCycle         = "monthly"
	defaultCreditsFactor = 1.0
	poolAlertThreshold   = 0.8
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Alerts  *config.AlertPolicyHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	alerts  *config.AlertPolicyHolder
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("budget.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		alerts:  p.Alerts,
		metrics: p.Metrics,
	}
}

// GetPlan returns the account's plan, synthesizing an unpersisted default
// when none exists yet.
func (s *Service) GetPlan(ctx context.Context, accountID string) (*domain.PlanResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	plan, err := s.repo.FindPlan(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	return s.toPlanResponse(ctx, s.db, accountID, plan)
}

func (s *Service) UpdatePlan(ctx context.Context, req domain.UpdatePlanRequest) (*domain.PlanResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	if req.CreditsFactor != nil && *req.CreditsFactor <= 0 {
		return nil, domain.ErrInvalidFactor
	}
	if req.AccountAllocatedCredits != nil && *req.AccountAllocatedCredits < 0 {
		return nil, domain.ErrInvalidCredits
	}

	var resp *domain.PlanResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plan, err := s.repo.FindPlan(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if plan == nil {
			plan = s.defaultPlan(accountID)
		}
		if req.Cycle != nil && strings.TrimSpace(*req.Cycle) != "" {
			plan.Cycle = strings.TrimSpace(*req.Cycle)
		}
		if req.CreditsFactor != nil {
			plan.CreditsFactor = *req.CreditsFactor
		}
		if req.AccountAllocatedCredits != nil {
			plan.AccountAllocatedCredits = *req.AccountAllocatedCredits
		}
		plan.UpdatedAt = s.clock.Now()

		if err := s.repo.SavePlan(ctx, tx, plan); err != nil {
			return err
		}
		resp, err = s.toPlanResponse(ctx, tx, accountID, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) ListAllocations(ctx context.Context, accountID string) ([]domain.AllocationResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	items, err := s.repo.ListAllocations(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.AllocationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toAllocationResponse(&items[i]))
	}
	return resp, nil
}

// UpsertAllocation creates or updates the single allocation for a scope.
// Updates preserve used_credits, created_at and created_by.
func (s *Service) UpsertAllocation(ctx context.Context, req domain.UpsertAllocationRequest) (*domain.AllocationResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	scopeType, err := scopedomain.ParseType(req.ScopeType)
	if err != nil {
		return nil, err
	}
	if scopeType == scopedomain.TypeAccount {
		return nil, domain.ErrAccountScopeNotAllowed
	}
	scopeID := strings.TrimSpace(req.ScopeID)
	if scopeID == "" {
		return nil, domain.ErrInvalidScopeID
	}
	if req.AllocatedCredits < 0 {
		return nil, domain.ErrInvalidCredits
	}
	if req.OverflowCap != nil && *req.OverflowCap < 0 {
		return nil, domain.ErrInvalidCredits
	}

	var parentType scopedomain.Type
	parentID := strings.TrimSpace(req.ParentScopeID)
	if strings.TrimSpace(req.ParentScopeType) != "" {
		parentType, err = scopedomain.ParseType(req.ParentScopeType)
		if err != nil {
			return nil, err
		}
	}

	var resp domain.AllocationResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		allocation, err := s.findForUpsert(ctx, tx, accountID, req.AllocationID, scopeType, scopeID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if allocation == nil {
			allocation = &domain.Allocation{
				ID:          s.genID.Generate(),
				AccountID:   accountID,
				UsedCredits: 0,
				CreatedBy:   strings.TrimSpace(req.ActorID),
				CreatedAt:   now,
			}
		}
		allocation.ScopeType = scopeType
		allocation.ScopeID = scopeID
		allocation.AllocatedCredits = req.AllocatedCredits
		allocation.OverflowCap = req.OverflowCap
		allocation.ParentScopeType = parentType
		allocation.ParentScopeID = parentID
		allocation.UpdatedAt = now

		if err := s.repo.SaveAllocation(ctx, tx, allocation); err != nil {
			return err
		}

		s.checkParentConsistency(ctx, tx, allocation)
		resp = toAllocationResponse(allocation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) DeleteAllocation(ctx context.Context, accountID, allocationID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrInvalidAccount
	}
	id, err := snowflake.ParseString(strings.TrimSpace(allocationID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}

	deleted, err := s.repo.DeleteAllocation(ctx, s.db, accountID, id.Int64())
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// DistributeEqually splits a credit total across users, honoring explicit
// per-user overrides. The non-overridden remainder is divided evenly.
func (s *Service) DistributeEqually(ctx context.Context, req domain.DistributeRequest) ([]domain.AllocationResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	userIDs := make([]string, 0, len(req.UserIDs))
	seen := make(map[string]bool, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, domain.ErrInvalidScopeID
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		userIDs = append(userIDs, id)
	}
	if len(userIDs) == 0 {
		return nil, domain.ErrNoUsers
	}

	var resp []domain.AllocationResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		total := 0.0
		if req.TotalCredits != nil {
			if *req.TotalCredits < 0 {
				return domain.ErrInvalidCredits
			}
			total = *req.TotalCredits
		} else {
			plan, err := s.repo.FindPlan(ctx, tx, accountID)
			if err != nil {
				return err
			}
			planResp, err := s.toPlanResponse(ctx, tx, accountID, plan)
			if err != nil {
				return err
			}
			total = planResp.UnallocatedCredits
		}

		overridden := 0.0
		defaultCount := 0
		for _, id := range userIDs {
			if amount, ok := req.Overrides[id]; ok {
				if amount < 0 {
					return domain.ErrInvalidCredits
				}
				overridden += amount
			} else {
				defaultCount++
			}
		}
		remaining := total - overridden
		if remaining < 0 {
			return domain.ErrOverAllocated
		}
		defaultEach := 0.0
		if defaultCount > 0 {
			defaultEach = remaining / float64(defaultCount)
		}

		now := s.clock.Now()
		for _, userID := range userIDs {
			amount, ok := req.Overrides[userID]
			if !ok {
				amount = defaultEach
			}

			allocation, err := s.repo.FindAllocation(ctx, tx, accountID, scopedomain.TypeUser, userID)
			if err != nil {
				return err
			}
			if allocation == nil {
				allocation = &domain.Allocation{
					ID:        s.genID.Generate(),
					AccountID: accountID,
					ScopeType: scopedomain.TypeUser,
					ScopeID:   userID,
					CreatedBy: strings.TrimSpace(req.ActorID),
					CreatedAt: now,
				}
			}
			allocation.AllocatedCredits = amount
			allocation.UpdatedAt = now

			if err := s.repo.SaveAllocation(ctx, tx, allocation); err != nil {
				return err
			}
			resp = append(resp, toAllocationResponse(allocation))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RecordUsage charges credits against the most specific existing allocation
// (user, then team, then group); an existing user allocation short-circuits
// even when a broader one also exists. With no match the account pool is
// debited. A usage record is written regardless of match outcome.
func (s *Service) RecordUsage(ctx context.Context, req domain.RecordUsageRequest) (*domain.UsageResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	if req.Cost < 0 {
		return nil, domain.ErrInvalidCost
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, domain.ErrInvalidModel
	}

	var resp domain.UsageResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plan, err := s.repo.FindPlan(ctx, tx, accountID)
		if err != nil {
			return err
		}
		factor := defaultCreditsFactor
		if plan != nil {
			factor = plan.CreditsFactor
		}
		credits := req.Cost * factor

		candidates := []struct {
			scopeType scopedomain.Type
			scopeID   string
		}{
			{scopedomain.TypeUser, strings.TrimSpace(req.UserID)},
			{scopedomain.TypeTeam, strings.TrimSpace(req.TeamID)},
			{scopedomain.TypeGroup, strings.TrimSpace(req.OrganizationID)},
		}

		var effective *domain.Allocation
		for _, cand := range candidates {
			if cand.scopeID == "" {
				continue
			}
			allocation, err := s.repo.FindAllocation(ctx, tx, accountID, cand.scopeType, cand.scopeID)
			if err != nil {
				return err
			}
			if allocation != nil {
				effective = allocation
				break
			}
		}

		effectiveType := scopedomain.TypeAccount
		effectiveID := accountID
		if effective != nil {
			effectiveType = effective.ScopeType
			effectiveID = effective.ScopeID
			if err := s.repo.ApplyAllocationUsage(ctx, tx, accountID, effective.ID.Int64(), credits); err != nil {
				return err
			}
			s.checkOverflow(effective, credits)
		} else {
			if plan == nil {
				plan = s.defaultPlan(accountID)
				if err := s.repo.SavePlan(ctx, tx, plan); err != nil {
					return err
				}
			}
			if err := s.repo.ApplyPoolUsage(ctx, tx, accountID, credits); err != nil {
				return err
			}
		}

		record := &domain.UsageRecord{
			ID:                 s.genID.Generate(),
			AccountID:          accountID,
			Model:              model,
			Cost:               req.Cost,
			Credits:            credits,
			UserID:             optionalString(req.UserID),
			TeamID:             optionalString(req.TeamID),
			OrganizationID:     optionalString(req.OrganizationID),
			EffectiveScopeType: effectiveType,
			EffectiveScopeID:   effectiveID,
			RecordedAt:         s.clock.Now(),
		}
		if err := s.repo.InsertUsage(ctx, tx, record); err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.UsageRecorded.WithLabelValues(string(effectiveType)).Inc()
			s.metrics.CreditsCharged.WithLabelValues(string(effectiveType)).Add(credits)
		}

		resp = toUsageResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) ListUsage(ctx context.Context, req domain.ListUsageRequest) ([]domain.UsageResponse, error) {
	req.AccountID = strings.TrimSpace(req.AccountID)
	if req.AccountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	items, err := s.repo.ListUsage(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.UsageResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toUsageResponse(&items[i]))
	}
	return resp, nil
}

// ListAlerts evaluates allocation and pool thresholds on read.
func (s *Service) ListAlerts(ctx context.Context, accountID string) ([]domain.Alert, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	allocations, err := s.repo.ListAllocations(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.ListAlertRules(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	thresholds := make(map[string]float64, len(rules))
	for _, rule := range rules {
		thresholds[ruleKey(rule.ScopeType, rule.ScopeID)] = rule.ThresholdPct
	}
	defaultThreshold := s.alerts.Get().DefaultThresholdPct

	alerts := make([]domain.Alert, 0)
	for i := range allocations {
		allocation := &allocations[i]

		threshold := defaultThreshold
		if override, ok := thresholds[ruleKey(allocation.ScopeType, allocation.ScopeID)]; ok {
			threshold = override
		}
		if allocation.AllocatedCredits > 0 && allocation.UsedCredits/allocation.AllocatedCredits >= threshold {
			alerts = append(alerts, domain.Alert{
				Kind:             domain.AlertKindAllocation,
				ScopeType:        allocation.ScopeType,
				ScopeID:          allocation.ScopeID,
				UsedCredits:      allocation.UsedCredits,
				AllocatedCredits: allocation.AllocatedCredits,
				ThresholdPct:     threshold,
			})
		}
		if allocation.OverflowCap != nil && allocation.UsedCredits > allocation.AllocatedCredits+*allocation.OverflowCap {
			alerts = append(alerts, domain.Alert{
				Kind:             domain.AlertKindOverCap,
				ScopeType:        allocation.ScopeType,
				ScopeID:          allocation.ScopeID,
				UsedCredits:      allocation.UsedCredits,
				AllocatedCredits: allocation.AllocatedCredits,
				ThresholdPct:     1,
			})
		}
	}

	plan, err := s.repo.FindPlan(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if plan != nil && plan.AccountAllocatedCredits > 0 &&
		plan.UnallocatedUsedCredits/plan.AccountAllocatedCredits >= poolAlertThreshold {
		alerts = append(alerts, domain.Alert{
			Kind:             domain.AlertKindPool,
			ScopeType:        scopedomain.TypeAccount,
			ScopeID:          accountID,
			UsedCredits:      plan.UnallocatedUsedCredits,
			AllocatedCredits: plan.AccountAllocatedCredits,
			ThresholdPct:     poolAlertThreshold,
		})
	}

	if s.metrics != nil {
		s.metrics.AlertsEvaluated.Inc()
		s.metrics.AlertsFired.Add(float64(len(alerts)))
	}
	return alerts, nil
}

func (s *Service) UpsertAlertRule(ctx context.Context, req domain.UpsertAlertRuleRequest) (*domain.AlertRuleResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}
	scopeType, err := scopedomain.ParseType(req.ScopeType)
	if err != nil {
		return nil, err
	}
	scopeID := strings.TrimSpace(req.ScopeID)
	if scopeID == "" {
		return nil, domain.ErrInvalidScopeID
	}
	if req.ThresholdPct <= 0 || req.ThresholdPct > 1 {
		return nil, domain.ErrInvalidThreshold
	}

	now := s.clock.Now()
	rule := &domain.AlertRule{
		ID:           s.genID.Generate(),
		AccountID:    accountID,
		ScopeType:    scopeType,
		ScopeID:      scopeID,
		ThresholdPct: req.ThresholdPct,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.SaveAlertRule(ctx, s.db, rule); err != nil {
		return nil, err
	}

	saved, err := s.repo.FindAlertRule(ctx, s.db, accountID, scopeType, scopeID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = rule
	}
	return &domain.AlertRuleResponse{
		ID:           saved.ID.String(),
		AccountID:    saved.AccountID,
		ScopeType:    saved.ScopeType,
		ScopeID:      saved.ScopeID,
		ThresholdPct: saved.ThresholdPct,
		UpdatedAt:    saved.UpdatedAt,
	}, nil
}

func (s *Service) defaultPlan(accountID string) *domain.Plan {
	now := s.clock.Now()
	return &domain.Plan{
		ID:            s.genID.Generate(),
		AccountID:     accountID,
		Cycle:         defaultCycle,
		CreditsFactor: defaultCreditsFactor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// toPlanResponse derives unallocated_credits from group-scope allocations.
// Team and user allocations are carved out of their parent and do not reduce
// the account pool.
func (s *Service) toPlanResponse(ctx context.Context, db *gorm.DB, accountID string, plan *domain.Plan) (*domain.PlanResponse, error) {
	groupAllocated, err := s.repo.SumAllocated(ctx, db, accountID, scopedomain.TypeGroup)
	if err != nil {
		return nil, err
	}

	resp := &domain.PlanResponse{
		AccountID:     accountID,
		Cycle:         defaultCycle,
		CreditsFactor: defaultCreditsFactor,
	}
	if plan != nil {
		resp.Cycle = plan.Cycle
		resp.CreditsFactor = plan.CreditsFactor
		resp.AccountAllocatedCredits = plan.AccountAllocatedCredits
		resp.UnallocatedUsedCredits = plan.UnallocatedUsedCredits
		resp.Persisted = true
		resp.UpdatedAt = plan.UpdatedAt
	}

	unallocated := resp.AccountAllocatedCredits - groupAllocated
	if unallocated < 0 {
		unallocated = 0
	}
	resp.UnallocatedCredits = unallocated
	return resp, nil
}

func (s *Service) findForUpsert(ctx context.Context, tx *gorm.DB, accountID, allocationID string, scopeType scopedomain.Type, scopeID string) (*domain.Allocation, error) {
	if strings.TrimSpace(allocationID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(allocationID))
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidID
		}
		allocation, err := s.repo.FindAllocationByID(ctx, tx, accountID, id.Int64())
		if err != nil {
			return nil, err
		}
		if allocation == nil {
			return nil, domain.ErrNotFound
		}
		return allocation, nil
	}
	return s.repo.FindAllocation(ctx, tx, accountID, scopeType, scopeID)
}

// checkParentConsistency warns when sibling allocations exceed their parent's
// budget. The invariant is advisory; upserts are never rejected for it.
func (s *Service) checkParentConsistency(ctx context.Context, tx *gorm.DB, allocation *domain.Allocation) {
	if allocation.ParentScopeID == "" || allocation.ParentScopeType == "" {
		return
	}

	childSum, err := s.repo.SumChildAllocated(ctx, tx, allocation.AccountID, allocation.ParentScopeType, allocation.ParentScopeID)
	if err != nil {
		return
	}

	var parentBudget float64
	switch allocation.ParentScopeType {
	case scopedomain.TypeAccount:
		plan, err := s.repo.FindPlan(ctx, tx, allocation.AccountID)
		if err != nil || plan == nil {
			return
		}
		parentBudget = plan.AccountAllocatedCredits
	default:
		parent, err := s.repo.FindAllocation(ctx, tx, allocation.AccountID, allocation.ParentScopeType, allocation.ParentScopeID)
		if err != nil || parent == nil {
			return
		}
		parentBudget = parent.AllocatedCredits
	}

	if childSum > parentBudget {
		s.log.Warn("child allocations exceed parent budget",
			zap.String("account_id", allocation.AccountID),
			zap.String("parent_scope_type", string(allocation.ParentScopeType)),
			zap.String("parent_scope_id", allocation.ParentScopeID),
			zap.Float64("child_allocated", childSum),
			zap.Float64("parent_allocated", parentBudget),
		)
	}
}

// checkOverflow warns when a debit pushes used credits past the informational
// overflow cap. Usage is never rejected.
func (s *Service) checkOverflow(allocation *domain.Allocation, credits float64) {
	if allocation.OverflowCap == nil {
		return
	}
	projected := allocation.UsedCredits + credits
	if projected > allocation.AllocatedCredits+*allocation.OverflowCap {
		s.log.Warn("allocation exceeded overflow cap",
			zap.String("account_id", allocation.AccountID),
			zap.String("scope_type", string(allocation.ScopeType)),
			zap.String("scope_id", allocation.ScopeID),
			zap.Float64("used_credits", projected),
			zap.Float64("allocated_credits", allocation.AllocatedCredits),
			zap.Float64("overflow_cap", *allocation.OverflowCap),
		)
	}
}

func toAllocationResponse(a *domain.Allocation) domain.AllocationResponse {
	return domain.AllocationResponse{
		ID:               a.ID.String(),
		AccountID:        a.AccountID,
		ScopeType:        a.ScopeType,
		ScopeID:          a.ScopeID,
		AllocatedCredits: a.AllocatedCredits,
		UsedCredits:      a.UsedCredits,
		OverflowCap:      a.OverflowCap,
		ParentScopeType:  a.ParentScopeType,
		ParentScopeID:    a.ParentScopeID,
		CreatedBy:        a.CreatedBy,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toUsageResponse(r *domain.UsageRecord) domain.UsageResponse {
	return domain.UsageResponse{
		ID:                 r.ID.String(),
		AccountID:          r.AccountID,
		Model:              r.Model,
		Cost:               r.Cost,
		Credits:            r.Credits,
		UserID:             r.UserID,
		TeamID:             r.TeamID,
		OrganizationID:     r.OrganizationID,
		EffectiveScopeType: r.EffectiveScopeType,
		EffectiveScopeID:   r.EffectiveScopeID,
		RecordedAt:         r.RecordedAt,
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ruleKey(scopeType scopedomain.Type, scopeID string) string {
	return string(scopeType) + ":" + scopeID
}
