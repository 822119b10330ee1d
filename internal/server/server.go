package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scopeline/scopeline/internal/actor"
	"github.com/scopeline/scopeline/internal/audit"
	auditdomain "github.com/scopeline/scopeline/internal/audit/domain"
	"github.com/scopeline/scopeline/internal/budget"
	budgetdomain "github.com/scopeline/scopeline/internal/budget/domain"
	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/internal/directory"
	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
	"github.com/scopeline/scopeline/internal/entitlement"
	entitlementdomain "github.com/scopeline/scopeline/internal/entitlement/domain"
	"github.com/scopeline/scopeline/internal/modelcatalog"
	modeldomain "github.com/scopeline/scopeline/internal/modelcatalog/domain"
	"github.com/scopeline/scopeline/internal/obsmetrics"
	"github.com/scopeline/scopeline/internal/ratelimit"
	"github.com/scopeline/scopeline/internal/scope"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	actor.Module,
	obsmetrics.Module,
	audit.Module,
	directory.Module,
	scope.Module,
	budget.Module,
	modelcatalog.Module,
	entitlement.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	db             *gorm.DB
	genID          *snowflake.Node
	resolver       actor.Resolver
	scopeSvc       scopedomain.Service
	budgetSvc      budgetdomain.Service
	modelSvc       modeldomain.Service
	entitlementSvc entitlementdomain.Service
	directorySvc   directorydomain.Service
	auditSvc       auditdomain.Service
	usageLimiter   *ratelimit.UsageLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	DB             *gorm.DB
	GenID          *snowflake.Node
	Resolver       actor.Resolver `optional:"true"`
	ScopeSvc       scopedomain.Service
	BudgetSvc      budgetdomain.Service
	ModelSvc       modeldomain.Service
	EntitlementSvc entitlementdomain.Service
	DirectorySvc   directorydomain.Service
	AuditSvc       auditdomain.Service
	UsageLimiter   *ratelimit.UsageLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		db:             p.DB,
		genID:          p.GenID,
		resolver:       p.Resolver,
		scopeSvc:       p.ScopeSvc,
		budgetSvc:      p.BudgetSvc,
		modelSvc:       p.ModelSvc,
		entitlementSvc: p.EntitlementSvc,
		directorySvc:   p.DirectorySvc,
		auditSvc:       p.AuditSvc,
		usageLimiter:   p.UsageLimiter,
	}

	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.AuthRequired())

	v1.POST("/scopes/resolve", s.ResolveScopeChain)

	budgets := v1.Group("/budget")
	budgets.GET("/plan", s.GetBudgetPlan)
	budgets.PUT("/plan", s.RequireAdmin(), s.UpdateBudgetPlan)
	budgets.GET("/allocations", s.ListAllocations)
	budgets.POST("/allocations", s.RequireAdmin(), s.UpsertAllocation)
	budgets.DELETE("/allocations/:id", s.RequireAdmin(), s.DeleteAllocation)
	budgets.POST("/allocations/distribute", s.RequireAdmin(), s.DistributeAllocations)
	budgets.POST("/usage", s.UsageRateLimit(), s.RecordUsage)
	budgets.GET("/usage", s.ListUsage)
	budgets.GET("/alerts", s.ListAlerts)
	budgets.PUT("/alerts/rules", s.RequireAdmin(), s.UpsertAlertRule)

	models := v1.Group("/models")
	models.GET("/catalog", s.ListModelCatalog)
	models.PUT("/catalog/:code", s.RequireSuperAdmin(), s.UpsertCatalogModel)
	models.GET("/eligibility", s.GetModelSets)
	models.PUT("/eligibility", s.RequireSuperAdmin(), s.SetModelEligibility)
	models.GET("/selection", s.GetModelSets)
	models.PUT("/selection", s.RequireAdmin(), s.SetModelSelection)
	models.GET("/overrides", s.ListModelOverrides)
	models.PUT("/overrides", s.RequireAdmin(), s.SetModelOverride)
	models.DELETE("/overrides", s.RequireAdmin(), s.DeleteModelOverride)
	models.GET("/effective", s.EffectiveModels)

	v1.GET("/features", s.ListFeatures)
	v1.PUT("/features", s.RequireSuperAdmin(), s.UpsertFeature)

	entitlements := v1.Group("/entitlements")
	entitlements.GET("", s.ListEntitlements)
	entitlements.POST("", s.RequireSuperAdmin(), s.GrantEntitlement)
	entitlements.DELETE("/:id", s.RequireSuperAdmin(), s.RevokeEntitlement)
	entitlements.GET("/effective", s.EffectiveEntitlementConfig)

	dir := v1.Group("/directory", s.RequireAdmin())
	dir.PUT("/teams", s.UpsertDirectoryTeam)
	dir.PUT("/memberships", s.UpsertDirectoryMembership)

	v1.GET("/audit-logs", s.RequireAdmin(), s.ListAuditLogs)
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
