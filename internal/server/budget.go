package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scopeline/scopeline/internal/accountctx"
	budgetdomain "github.com/scopeline/scopeline/internal/budget/domain"
	"go.uber.org/zap"
)

func (s *Server) GetBudgetPlan(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	plan, err := s.budgetSvc.GetPlan(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plan})
}

func (s *Server) UpdateBudgetPlan(c *gin.Context) {
	var req budgetdomain.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.AccountID = accountID

	plan, err := s.budgetSvc.UpdatePlan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "budget.plan.update", "budget_plan", accountID, map[string]any{
		"cycle":                     plan.Cycle,
		"credits_factor":            plan.CreditsFactor,
		"account_allocated_credits": plan.AccountAllocatedCredits,
	})

	c.JSON(http.StatusOK, gin.H{"data": plan})
}

func (s *Server) ListAllocations(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	allocations, err := s.budgetSvc.ListAllocations(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": allocations})
}

func (s *Server) UpsertAllocation(c *gin.Context) {
	var req budgetdomain.UpsertAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.AccountID = accountID
	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		req.ActorID = caller.UserID
	}

	allocation, err := s.budgetSvc.UpsertAllocation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "budget.allocation.upsert", "budget_allocation", allocation.ID, map[string]any{
		"scope_type":        allocation.ScopeType,
		"scope_id":          allocation.ScopeID,
		"allocated_credits": allocation.AllocatedCredits,
	})

	c.JSON(http.StatusOK, gin.H{"data": allocation})
}

func (s *Server) DeleteAllocation(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	allocationID := strings.TrimSpace(c.Param("id"))
	if err := s.budgetSvc.DeleteAllocation(c.Request.Context(), accountID, allocationID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "budget.allocation.delete", "budget_allocation", allocationID, nil)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) DistributeAllocations(c *gin.Context) {
	var req budgetdomain.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.AccountID = accountID
	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		req.ActorID = caller.UserID
	}

	// Distribution rewrites every user allocation for the account; two
	// concurrent runs would interleave writes, so runs are serialized.
	token, acquired, err := s.usageLimiter.TryLockDistribution(c.Request.Context(), accountID)
	if err != nil {
		s.log.Warn("distribution lock unavailable", zap.String("account_id", accountID), zap.Error(err))
	} else if !acquired {
		AbortWithError(c, ErrTooManyRequests)
		return
	}
	if token != "" {
		defer func() {
			if releaseErr := s.usageLimiter.ReleaseDistribution(c.Request.Context(), accountID, token); releaseErr != nil {
				s.log.Warn("distribution lock release failed", zap.String("account_id", accountID), zap.Error(releaseErr))
			}
		}()
	}

	allocations, err := s.budgetSvc.DistributeEqually(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "budget.allocation.distribute", "budget_plan", accountID, map[string]any{
		"user_count": len(req.UserIDs),
		"overrides":  len(req.Overrides),
	})

	c.JSON(http.StatusOK, gin.H{"data": allocations})
}

func (s *Server) RecordUsage(c *gin.Context) {
	var req budgetdomain.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.AccountID = accountID

	usage, err := s.budgetSvc.RecordUsage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": usage})
}

func (s *Server) ListUsage(c *gin.Context) {
	var query struct {
		AccountID string `form:"account_id"`
		Model     string `form:"model"`
		UserID    string `form:"user_id"`
		StartAt   string `form:"start_at"`
		EndAt     string `form:"end_at"`
		Limit     int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, query.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	records, err := s.budgetSvc.ListUsage(c.Request.Context(), budgetdomain.ListUsageRequest{
		AccountID: accountID,
		Model:     strings.TrimSpace(query.Model),
		UserID:    strings.TrimSpace(query.UserID),
		StartAt:   startAt,
		EndAt:     endAt,
		Limit:     query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) ListAlerts(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	alerts, err := s.budgetSvc.ListAlerts(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (s *Server) UpsertAlertRule(c *gin.Context) {
	var req budgetdomain.UpsertAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.AccountID = accountID

	rule, err := s.budgetSvc.UpsertAlertRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "budget.alert_rule.upsert", "budget_alert_rule", rule.ID, map[string]any{
		"scope_type":    rule.ScopeType,
		"scope_id":      rule.ScopeID,
		"threshold_pct": rule.ThresholdPct,
	})

	c.JSON(http.StatusOK, gin.H{"data": rule})
}
