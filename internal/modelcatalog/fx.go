package modelcatalog

import (
	"github.com/scopeline/scopeline/internal/modelcatalog/repository"
	"github.com/scopeline/scopeline/internal/modelcatalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("modelcatalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
