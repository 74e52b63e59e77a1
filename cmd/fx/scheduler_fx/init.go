package scheduler_fx

import (
	"context"
	"os"
	"time"

	"go.uber.org/fx"
	"tably/internal/scheduler"
	"tably/internal/services"
)

var Module = fx.Options(
	fx.Provide(provideScheduler),
	fx.Invoke(runScheduler))

func provideScheduler(lifecycle services.LifecycleServiceInterface) *scheduler.Service {
	interval := 24 * time.Hour
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			interval = parsed
		}
	}
	return scheduler.NewService(lifecycle, interval)
}

func runScheduler(lc fx.Lifecycle, svc *scheduler.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go svc.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.Stop()
			return nil
		},
	})
}
