package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/scopeline/scopeline/internal/entitlement/domain"
	modeldomain "github.com/scopeline/scopeline/internal/modelcatalog/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var defaultModels = []modeldomain.Model{
	{ModelID: "claude-3-5-haiku", DisplayName: "Claude 3.5 Haiku", Provider: "anthropic", Enabled: true},
	{ModelID: "claude-3-7-sonnet", DisplayName: "Claude 3.7 Sonnet", Provider: "anthropic", Enabled: true},
	{ModelID: "gpt-4o", DisplayName: "GPT-4o", Provider: "openai", Enabled: true},
	{ModelID: "gpt-4o-mini", DisplayName: "GPT-4o mini", Provider: "openai", Enabled: true},
	{ModelID: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash", Provider: "google", Enabled: true},
}

// EnsureDefaultCatalog seeds the model catalog and the gateway feature
// catalog when both are empty, so a fresh deployment resolves something
// sensible before an operator configures it.
func EnsureDefaultCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureModelCatalogTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureFeatureCatalogTx(ctx, tx, node)
	})
}

func ensureModelCatalogTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&modeldomain.Model{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, model := range defaultModels {
		model.ID = node.Generate()
		if err := tx.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureFeatureCatalogTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&entitlementdomain.Feature{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rateLimits := "rate_limits"
	features := []entitlementdomain.Feature{
		{
			ProductCode: "gateway",
			Description: "Gateway product defaults",
			DefaultConfig: datatypes.JSONMap{
				"max_context_tokens": float64(200000),
			},
		},
		{
			ProductCode: "gateway",
			FeatureCode: &rateLimits,
			Description: "Per-account request rate limits",
			DefaultConfig: datatypes.JSONMap{
				"requests_per_minute": float64(60),
				"burst":               float64(120),
			},
		},
	}

	for _, feature := range features {
		feature.ID = node.Generate()
		if err := tx.WithContext(ctx).Create(&feature).Error; err != nil {
			return err
		}
	}
	return nil
}
