package observability

import (
	"os"
	"strings"

	"github.com/scopeline/scopeline/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		NewLogger,
	),
)

func provideLoggerConfig(cfg config.Config) LoggerConfig {
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "" {
		format = "json"
	}

	return LoggerConfig{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.LogLevel,
		Format:              format,
		IncludeCaller:       true,
		IncludeStackOnError: isDevEnv(cfg.Environment),
	}
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
