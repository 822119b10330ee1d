package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	budgetdomain "github.com/scopeline/scopeline/internal/budget/domain"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"go.uber.org/zap"
)

type fakeScopeService struct {
	lastReq scopedomain.ResolveRequest
}

func (f *fakeScopeService) Resolve(ctx context.Context, req scopedomain.ResolveRequest) ([]scopedomain.Scope, error) {
	_ = ctx
	f.lastReq = req
	return []scopedomain.Scope{
		{Type: scopedomain.TypeUser, ID: "u-1"},
		{Type: scopedomain.TypeAccount, ID: req.AccountID},
	}, nil
}

type fakeBudgetService struct {
	planCalls []string
}

func (f *fakeBudgetService) GetPlan(ctx context.Context, accountID string) (*budgetdomain.PlanResponse, error) {
	_ = ctx
	f.planCalls = append(f.planCalls, accountID)
	return &budgetdomain.PlanResponse{AccountID: accountID, Cycle: "monthly", CreditsFactor: 1}, nil
}

func (f *fakeBudgetService) UpdatePlan(ctx context.Context, req budgetdomain.UpdatePlanRequest) (*budgetdomain.PlanResponse, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) ListAllocations(ctx context.Context, accountID string) ([]budgetdomain.AllocationResponse, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) UpsertAllocation(ctx context.Context, req budgetdomain.UpsertAllocationRequest) (*budgetdomain.AllocationResponse, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) DeleteAllocation(ctx context.Context, accountID, allocationID string) error {
	panic("unimplemented")
}

func (f *fakeBudgetService) DistributeEqually(ctx context.Context, req budgetdomain.DistributeRequest) ([]budgetdomain.AllocationResponse, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) RecordUsage(ctx context.Context, req budgetdomain.RecordUsageRequest) (*budgetdomain.UsageResponse, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) ListUsage(ctx context.Context, req budgetdomain.ListUsageRequest) ([]budgetdomain.UsageResponse, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) ListAlerts(ctx context.Context, accountID string) ([]budgetdomain.Alert, error) {
	panic("unimplemented")
}

func (f *fakeBudgetService) UpsertAlertRule(ctx context.Context, req budgetdomain.UpsertAlertRuleRequest) (*budgetdomain.AlertRuleResponse, error) {
	panic("unimplemented")
}

func newTestServer(t *testing.T) (*Server, *fakeScopeService, *fakeBudgetService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scopeSvc := &fakeScopeService{}
	budgetSvc := &fakeBudgetService{}

	s := &Server{
		engine:    NewEngine(),
		log:       zap.NewNop(),
		scopeSvc:  scopeSvc,
		budgetSvc: budgetSvc,
	}
	s.registerAPIRoutes()

	return s, scopeSvc, budgetSvc
}

func TestResolveScopeChainHandler(t *testing.T) {
	s, scopeSvc, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"scope_type": "user",
		"scope_id":   "u-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/scopes/resolve", bytes.NewReader(body))
	req.Header.Set("X-Account-ID", "acct-1")
	req.Header.Set("X-User-ID", "u-1")

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if scopeSvc.lastReq.AccountID != "acct-1" {
		t.Fatalf("resolved account = %q, want acct-1", scopeSvc.lastReq.AccountID)
	}
	if scopeSvc.lastReq.Claims == nil || scopeSvc.lastReq.Claims.UserID != "u-1" {
		t.Fatalf("claims not forwarded: %+v", scopeSvc.lastReq.Claims)
	}
}

func TestAuthRequiredRejectsMissingIdentity(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/budget/plan", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminGateBlocksMembers(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"cycle": "monthly"})
	req := httptest.NewRequest(http.MethodPut, "/v1/budget/plan", bytes.NewReader(body))
	req.Header.Set("X-Account-ID", "acct-1")
	req.Header.Set("X-Role", "member")

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestSuperAdminGateBlocksAccountAdmins(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"display_name": "Example"})
	req := httptest.NewRequest(http.MethodPut, "/v1/models/catalog/example-model", bytes.NewReader(body))
	req.Header.Set("X-Account-ID", "acct-1")
	req.Header.Set("X-Role", "admin")

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAccountOverrideRequiresSuperAdmin(t *testing.T) {
	s, _, budgetSvc := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/budget/plan?account_id=acct-other", nil)
	req.Header.Set("X-Account-ID", "acct-1")
	req.Header.Set("X-Role", "admin")

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/budget/plan?account_id=acct-other", nil)
	req.Header.Set("X-Account-ID", "acct-1")
	req.Header.Set("X-Role", "super_admin")

	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if len(budgetSvc.planCalls) != 1 || budgetSvc.planCalls[0] != "acct-other" {
		t.Fatalf("plan calls = %v, want [acct-other]", budgetSvc.planCalls)
	}
}
