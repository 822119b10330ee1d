package migration

import (
	"strings"

	auditdomain "github.com/scopeline/scopeline/internal/audit/domain"
	budgetdomain "github.com/scopeline/scopeline/internal/budget/domain"
	"github.com/scopeline/scopeline/internal/config"
	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
	entitlementdomain "github.com/scopeline/scopeline/internal/entitlement/domain"
	modeldomain "github.com/scopeline/scopeline/internal/modelcatalog/domain"
	"github.com/scopeline/scopeline/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite deployments (including tests) get the schema
			// from the models directly.
			if err := conn.AutoMigrate(
				&directorydomain.Team{},
				&directorydomain.Membership{},
				&budgetdomain.Plan{},
				&budgetdomain.Allocation{},
				&budgetdomain.UsageRecord{},
				&budgetdomain.AlertRule{},
				&modeldomain.Model{},
				&modeldomain.AccountModelSet{},
				&modeldomain.ModelOverride{},
				&entitlementdomain.Feature{},
				&entitlementdomain.Entitlement{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedCatalog {
			return seed.EnsureDefaultCatalog(conn)
		}
		return nil
	}),
)
