package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/migration"
	"github.com/smallbiznis/procura/internal/observability"
	"github.com/smallbiznis/procura/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrate applies the schema and seeds the admin, then exits. It ignores
// DATABASE_AUTO_MIGRATE.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(RunOnce),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNodeID)
}

func RunOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, conn *gorm.DB, cfg config.Config, node *snowflake.Node, clk clock.Clock, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := migration.Bootstrap(ctx, conn, cfg, node, clk, log); err != nil {
				return err
			}
			return shutdowner.Shutdown()
		},
	})
}
