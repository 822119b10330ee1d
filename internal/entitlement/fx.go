package entitlement

import (
	"github.com/scopeline/scopeline/internal/entitlement/repository"
	"github.com/scopeline/scopeline/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
