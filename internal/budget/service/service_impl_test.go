package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/scopeline/scopeline/internal/budget/domain"
	"github.com/scopeline/scopeline/internal/budget/repository"
	"github.com/scopeline/scopeline/internal/clock"
	"github.com/scopeline/scopeline/internal/config"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	stmts := []string{
		`CREATE TABLE budget_plans (
			id INTEGER PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			cycle TEXT NOT NULL DEFAULT 'monthly',
			credits_factor REAL NOT NULL DEFAULT 1,
			account_allocated_credits REAL NOT NULL DEFAULT 0,
			unallocated_used_credits REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE budget_allocations (
			id INTEGER PRIMARY KEY,
			account_id TEXT NOT NULL,
			scope_type TEXT NOT NULL,
			scope_id TEXT NOT NULL,
			allocated_credits REAL NOT NULL DEFAULT 0,
			used_credits REAL NOT NULL DEFAULT 0,
			overflow_cap REAL,
			parent_scope_type TEXT,
			parent_scope_id TEXT,
			created_by TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_budget_alloc_scope ON budget_allocations (account_id, scope_type, scope_id)`,
		`CREATE TABLE budget_usage_records (
			id INTEGER PRIMARY KEY,
			account_id TEXT NOT NULL,
			model TEXT NOT NULL,
			cost REAL NOT NULL,
			credits REAL NOT NULL,
			user_id TEXT,
			team_id TEXT,
			organization_id TEXT,
			effective_scope_type TEXT NOT NULL,
			effective_scope_id TEXT NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE TABLE budget_alert_rules (
			id INTEGER PRIMARY KEY,
			account_id TEXT NOT NULL,
			scope_type TEXT NOT NULL,
			scope_id TEXT NOT NULL,
			threshold_pct REAL NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_budget_alert_rule_scope ON budget_alert_rules (account_id, scope_type, scope_id)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:     setupTestDB(t),
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Clock:  fakeClock,
		Alerts: config.StaticAlertPolicyHolder(config.DefaultAlertPolicy()),
	})
	return svc, fakeClock
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGetPlanSynthesizesDefault(t *testing.T) {
	svc, _ := newTestService(t)

	plan, err := svc.GetPlan(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if plan.Persisted {
		t.Fatalf("expected unpersisted default plan")
	}
	if plan.Cycle != "monthly" || !floatEq(plan.CreditsFactor, 1) {
		t.Fatalf("unexpected defaults: cycle=%s factor=%v", plan.Cycle, plan.CreditsFactor)
	}
	if !floatEq(plan.UnallocatedCredits, 0) {
		t.Fatalf("expected zero unallocated, got %v", plan.UnallocatedCredits)
	}
}

func TestUpdatePlanAndUnallocatedDerivation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	allocated := 1000.0
	plan, err := svc.UpdatePlan(ctx, domain.UpdatePlanRequest{
		AccountID:               "acct-1",
		AccountAllocatedCredits: &allocated,
	})
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if !plan.Persisted || !floatEq(plan.UnallocatedCredits, 1000) {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	if _, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "group",
		ScopeID:          "org-1",
		AllocatedCredits: 400,
	}); err != nil {
		t.Fatalf("upsert group allocation: %v", err)
	}

	plan, err = svc.GetPlan(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !floatEq(plan.UnallocatedCredits, 600) {
		t.Fatalf("expected 600 unallocated, got %v", plan.UnallocatedCredits)
	}
}

func TestUnallocatedNeverNegative(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	allocated := 100.0
	if _, err := svc.UpdatePlan(ctx, domain.UpdatePlanRequest{
		AccountID:               "acct-1",
		AccountAllocatedCredits: &allocated,
	}); err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if _, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "group",
		ScopeID:          "org-1",
		AllocatedCredits: 400,
	}); err != nil {
		t.Fatalf("upsert group allocation: %v", err)
	}

	plan, err := svc.GetPlan(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !floatEq(plan.UnallocatedCredits, 0) {
		t.Fatalf("unallocated must clamp at zero, got %v", plan.UnallocatedCredits)
	}
}

func TestUpsertAllocationRejectsAccountScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpsertAllocation(context.Background(), domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "account",
		ScopeID:          "acct-1",
		AllocatedCredits: 10,
	})
	if !errors.Is(err, domain.ErrAccountScopeNotAllowed) {
		t.Fatalf("expected ErrAccountScopeNotAllowed, got %v", err)
	}
}

func TestUpsertAllocationPreservesUsageOnUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "user",
		ScopeID:          "user-1",
		AllocatedCredits: 50,
		ActorID:          "admin-1",
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	if _, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID: "acct-1",
		Cost:      7,
		Model:     "gpt-4o",
		UserID:    "user-1",
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	updated, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "user",
		ScopeID:          "user-1",
		AllocatedCredits: 80,
	})
	if err != nil {
		t.Fatalf("update allocation: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("update must reuse the existing row, got %s want %s", updated.ID, created.ID)
	}
	if !floatEq(updated.UsedCredits, 7) {
		t.Fatalf("used credits must survive update, got %v", updated.UsedCredits)
	}
	if updated.CreatedBy != "admin-1" {
		t.Fatalf("created_by must survive update, got %q", updated.CreatedBy)
	}
	if !floatEq(updated.AllocatedCredits, 80) {
		t.Fatalf("allocated credits not updated, got %v", updated.AllocatedCredits)
	}
}

func TestDeleteAllocation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "team",
		ScopeID:          "team-1",
		AllocatedCredits: 25,
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	if err := svc.DeleteAllocation(ctx, "acct-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteAllocation(ctx, "acct-1", created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	items, err := svc.ListAllocations(ctx, "acct-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}
}

func TestDistributeEquallyWithOverrides(t *testing.T) {
	svc, _ := newTestService(t)

	total := 100.0
	items, err := svc.DistributeEqually(context.Background(), domain.DistributeRequest{
		AccountID:    "acct-1",
		UserIDs:      []string{"a", "b", "c"},
		TotalCredits: &total,
		Overrides:    map[string]float64{"a": 40},
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	got := make(map[string]float64, len(items))
	sum := 0.0
	for _, item := range items {
		if item.ScopeType != scopedomain.TypeUser {
			t.Fatalf("expected user scope, got %s", item.ScopeType)
		}
		got[item.ScopeID] = item.AllocatedCredits
		sum += item.AllocatedCredits
	}
	if !floatEq(got["a"], 40) || !floatEq(got["b"], 30) || !floatEq(got["c"], 30) {
		t.Fatalf("unexpected split: %v", got)
	}
	if !floatEq(sum, total) {
		t.Fatalf("split must conserve the total, got %v", sum)
	}
}

func TestDistributeEquallyDefaultsToUnallocated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	allocated := 90.0
	if _, err := svc.UpdatePlan(ctx, domain.UpdatePlanRequest{
		AccountID:               "acct-1",
		AccountAllocatedCredits: &allocated,
	}); err != nil {
		t.Fatalf("update plan: %v", err)
	}

	items, err := svc.DistributeEqually(ctx, domain.DistributeRequest{
		AccountID: "acct-1",
		UserIDs:   []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	for _, item := range items {
		if !floatEq(item.AllocatedCredits, 30) {
			t.Fatalf("expected 30 each, got %v for %s", item.AllocatedCredits, item.ScopeID)
		}
	}
}

func TestDistributeEquallyOverAllocated(t *testing.T) {
	svc, _ := newTestService(t)

	total := 50.0
	_, err := svc.DistributeEqually(context.Background(), domain.DistributeRequest{
		AccountID:    "acct-1",
		UserIDs:      []string{"a", "b"},
		TotalCredits: &total,
		Overrides:    map[string]float64{"a": 60},
	})
	if !errors.Is(err, domain.ErrOverAllocated) {
		t.Fatalf("expected ErrOverAllocated, got %v", err)
	}
}

func TestRecordUsageDebitsMostSpecificAllocation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, alloc := range []domain.UpsertAllocationRequest{
		{AccountID: "acct-1", ScopeType: "user", ScopeID: "user-1", AllocatedCredits: 50},
		{AccountID: "acct-1", ScopeType: "group", ScopeID: "org-1", AllocatedCredits: 500},
	} {
		if _, err := svc.UpsertAllocation(ctx, alloc); err != nil {
			t.Fatalf("upsert allocation: %v", err)
		}
	}

	usage, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID:      "acct-1",
		Cost:           10,
		Model:          "claude-sonnet",
		UserID:         "user-1",
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if usage.EffectiveScopeType != scopedomain.TypeUser || usage.EffectiveScopeID != "user-1" {
		t.Fatalf("expected user allocation to win, got %s/%s", usage.EffectiveScopeType, usage.EffectiveScopeID)
	}

	items, err := svc.ListAllocations(ctx, "acct-1")
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	for _, item := range items {
		switch item.ScopeType {
		case scopedomain.TypeUser:
			if !floatEq(item.UsedCredits, 10) {
				t.Fatalf("user allocation not debited: %v", item.UsedCredits)
			}
		case scopedomain.TypeGroup:
			if !floatEq(item.UsedCredits, 0) {
				t.Fatalf("group allocation must stay untouched: %v", item.UsedCredits)
			}
		}
	}
}

func TestRecordUsageSkipsMissingNarrowScopes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "team",
		ScopeID:          "team-1",
		AllocatedCredits: 200,
	}); err != nil {
		t.Fatalf("upsert allocation: %v", err)
	}

	usage, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID: "acct-1",
		Cost:      5,
		Model:     "claude-sonnet",
		UserID:    "user-without-allocation",
		TeamID:    "team-1",
	})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if usage.EffectiveScopeType != scopedomain.TypeTeam || usage.EffectiveScopeID != "team-1" {
		t.Fatalf("expected team fallback, got %s/%s", usage.EffectiveScopeType, usage.EffectiveScopeID)
	}
}

func TestRecordUsagePoolFallbackAppliesFactor(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	allocated := 1000.0
	factor := 2.0
	if _, err := svc.UpdatePlan(ctx, domain.UpdatePlanRequest{
		AccountID:               "acct-1",
		AccountAllocatedCredits: &allocated,
		CreditsFactor:           &factor,
	}); err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if _, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "group",
		ScopeID:          "org-1",
		AllocatedCredits: 400,
	}); err != nil {
		t.Fatalf("upsert allocation: %v", err)
	}

	usage, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID: "acct-1",
		Cost:      10,
		Model:     "claude-opus",
		UserID:    "user-nomatch",
	})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if usage.EffectiveScopeType != scopedomain.TypeAccount || usage.EffectiveScopeID != "acct-1" {
		t.Fatalf("expected pool fallback, got %s/%s", usage.EffectiveScopeType, usage.EffectiveScopeID)
	}
	if !floatEq(usage.Credits, 20) {
		t.Fatalf("expected credits = cost * factor = 20, got %v", usage.Credits)
	}
	if !usage.RecordedAt.Equal(fakeClock.Now()) {
		t.Fatalf("recorded_at must come from the clock")
	}

	plan, err := svc.GetPlan(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !floatEq(plan.UnallocatedCredits, 600) {
		t.Fatalf("expected 600 unallocated, got %v", plan.UnallocatedCredits)
	}
	if !floatEq(plan.UnallocatedUsedCredits, 20) {
		t.Fatalf("expected pool debit of 20, got %v", plan.UnallocatedUsedCredits)
	}
}

func TestRecordUsagePersistsPlanLazily(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID: "acct-new",
		Cost:      3,
		Model:     "claude-haiku",
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	plan, err := svc.GetPlan(ctx, "acct-new")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !plan.Persisted {
		t.Fatalf("pool debit must persist a default plan")
	}
	if !floatEq(plan.UnallocatedUsedCredits, 3) {
		t.Fatalf("expected pool debit of 3, got %v", plan.UnallocatedUsedCredits)
	}
}

func TestListUsageFilters(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	for _, req := range []domain.RecordUsageRequest{
		{AccountID: "acct-1", Cost: 1, Model: "claude-opus", UserID: "user-1"},
		{AccountID: "acct-1", Cost: 2, Model: "claude-haiku", UserID: "user-2"},
		{AccountID: "acct-1", Cost: 3, Model: "claude-opus", UserID: "user-1"},
	} {
		if _, err := svc.RecordUsage(ctx, req); err != nil {
			t.Fatalf("record usage: %v", err)
		}
		fakeClock.Advance(time.Minute)
	}

	items, err := svc.ListUsage(ctx, domain.ListUsageRequest{
		AccountID: "acct-1",
		Model:     "claude-opus",
		UserID:    "user-1",
	})
	if err != nil {
		t.Fatalf("list usage: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 records, got %d", len(items))
	}
	if !items[0].RecordedAt.After(items[1].RecordedAt) {
		t.Fatalf("expected newest-first ordering")
	}
}

func TestListAlertsDefaultAndRuleOverride(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, alloc := range []domain.UpsertAllocationRequest{
		{AccountID: "acct-1", ScopeType: "user", ScopeID: "user-hot", AllocatedCredits: 100},
		{AccountID: "acct-1", ScopeType: "user", ScopeID: "user-quiet", AllocatedCredits: 100},
	} {
		if _, err := svc.UpsertAllocation(ctx, alloc); err != nil {
			t.Fatalf("upsert allocation: %v", err)
		}
	}
	// Both allocations land at 85% used.
	for _, userID := range []string{"user-hot", "user-quiet"} {
		if _, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
			AccountID: "acct-1",
			Cost:      85,
			Model:     "claude-opus",
			UserID:    userID,
		}); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}
	// A 0.9 rule keeps user-quiet below its threshold.
	if _, err := svc.UpsertAlertRule(ctx, domain.UpsertAlertRuleRequest{
		AccountID:    "acct-1",
		ScopeType:    "user",
		ScopeID:      "user-quiet",
		ThresholdPct: 0.9,
	}); err != nil {
		t.Fatalf("upsert alert rule: %v", err)
	}

	alerts, err := svc.ListAlerts(ctx, "acct-1")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d: %+v", len(alerts), alerts)
	}
	alert := alerts[0]
	if alert.Kind != domain.AlertKindAllocation || alert.ScopeID != "user-hot" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if !floatEq(alert.ThresholdPct, 0.8) {
		t.Fatalf("expected default threshold 0.8, got %v", alert.ThresholdPct)
	}
}

func TestListAlertsOverCapAndPool(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	overflowCap := 10.0
	if _, err := svc.UpsertAllocation(ctx, domain.UpsertAllocationRequest{
		AccountID:        "acct-1",
		ScopeType:        "team",
		ScopeID:          "team-1",
		AllocatedCredits: 100,
		OverflowCap:      &overflowCap,
	}); err != nil {
		t.Fatalf("upsert allocation: %v", err)
	}
	if _, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID: "acct-1",
		Cost:      120,
		Model:     "claude-opus",
		TeamID:    "team-1",
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	allocated := 100.0
	if _, err := svc.UpdatePlan(ctx, domain.UpdatePlanRequest{
		AccountID:               "acct-1",
		AccountAllocatedCredits: &allocated,
	}); err != nil {
		t.Fatalf("update plan: %v", err)
	}
	// Pool debit at 85% of the account budget.
	if _, err := svc.RecordUsage(ctx, domain.RecordUsageRequest{
		AccountID: "acct-1",
		Cost:      85,
		Model:     "claude-opus",
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	alerts, err := svc.ListAlerts(ctx, "acct-1")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}

	kinds := make(map[domain.AlertKind]bool, len(alerts))
	for _, alert := range alerts {
		kinds[alert.Kind] = true
	}
	for _, want := range []domain.AlertKind{domain.AlertKindAllocation, domain.AlertKindOverCap, domain.AlertKindPool} {
		if !kinds[want] {
			t.Fatalf("missing %s alert in %+v", want, alerts)
		}
	}
}

func TestUpsertAlertRuleValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.UpsertAlertRuleRequest
		want error
	}{
		{"zero threshold", domain.UpsertAlertRuleRequest{AccountID: "acct-1", ScopeType: "user", ScopeID: "u", ThresholdPct: 0}, domain.ErrInvalidThreshold},
		{"over one", domain.UpsertAlertRuleRequest{AccountID: "acct-1", ScopeType: "user", ScopeID: "u", ThresholdPct: 1.5}, domain.ErrInvalidThreshold},
		{"missing scope", domain.UpsertAlertRuleRequest{AccountID: "acct-1", ScopeType: "user", ThresholdPct: 0.5}, domain.ErrInvalidScopeID},
	}
	for _, tc := range cases {
		if _, err := svc.UpsertAlertRule(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	rule, err := svc.UpsertAlertRule(ctx, domain.UpsertAlertRuleRequest{
		AccountID:    "acct-1",
		ScopeType:    "team",
		ScopeID:      "team-1",
		ThresholdPct: 0.5,
	})
	if err != nil {
		t.Fatalf("upsert rule: %v", err)
	}
	// Same scope updates in place.
	updated, err := svc.UpsertAlertRule(ctx, domain.UpsertAlertRuleRequest{
		AccountID:    "acct-1",
		ScopeType:    "team",
		ScopeID:      "team-1",
		ThresholdPct: 0.7,
	})
	if err != nil {
		t.Fatalf("upsert rule: %v", err)
	}
	if updated.ID != rule.ID {
		t.Fatalf("rule upsert must reuse the row, got %s want %s", updated.ID, rule.ID)
	}
	if !floatEq(updated.ThresholdPct, 0.7) {
		t.Fatalf("threshold not updated: %v", updated.ThresholdPct)
	}
}
