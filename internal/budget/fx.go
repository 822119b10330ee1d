package budget

import (
	"github.com/scopeline/scopeline/internal/budget/repository"
	"github.com/scopeline/scopeline/internal/budget/service"
	"go.uber.org/fx"
)

var Module = fx.Module("budget.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
