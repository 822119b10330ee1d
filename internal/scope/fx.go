package scope

import (
	"github.com/scopeline/scopeline/internal/scope/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scope.service",
	fx.Provide(service.New),
)
