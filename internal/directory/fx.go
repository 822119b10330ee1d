package directory

import (
	"github.com/scopeline/scopeline/internal/cache"
	"github.com/scopeline/scopeline/internal/directory/repository"
	"github.com/scopeline/scopeline/internal/directory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("directory.service",
	fx.Provide(cache.NewDirectoryCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
