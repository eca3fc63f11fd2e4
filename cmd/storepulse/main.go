package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storepulse/internal/clock"
	"github.com/smallbiznis/storepulse/internal/config"
	"github.com/smallbiznis/storepulse/internal/observability"
	"github.com/smallbiznis/storepulse/internal/pipeline"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		pipeline.Module,

		fx.Invoke(RunPipeline),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// RunPipeline executes one batch once the app has started and shuts the app
// down with a non-zero exit code when the run fails.
func RunPipeline(lc fx.Lifecycle, svc *pipeline.Service, log *zap.Logger, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if _, err := svc.Execute(ctx); err != nil {
					log.Error("pipeline run failed", zap.Error(err))
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
