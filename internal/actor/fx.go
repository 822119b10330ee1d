package actor

import "go.uber.org/fx"

var Module = fx.Provide(NewResolver)
