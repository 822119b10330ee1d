package audit

import (
	"github.com/scopeline/scopeline/internal/audit/repository"
	"github.com/scopeline/scopeline/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
