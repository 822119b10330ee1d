package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/scopeline/scopeline/internal/clock"
	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/internal/migration"
	"github.com/scopeline/scopeline/internal/observability"
	"github.com/scopeline/scopeline/internal/server"
	"github.com/scopeline/scopeline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
