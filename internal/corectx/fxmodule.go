package corectx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a CoreContext to an fx application and drives its
// Start/Stop through the application lifecycle, adapted from the
// reference corpus's worker-pool fx module: a Provide for the
// component plus an Invoke that registers the lifecycle hooks.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, logger *zap.Logger, c *CoreContext) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return c.Stop(ctx)
		},
	})
}
