package webhookqueue

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fstopworks/darkroom/internal/app/service/billing"
)

func runConsumer(lc fx.Lifecycle, log *zap.SugaredLogger, svc *Service) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("starting webhook consumer")
			go func() {
				defer close(done)
				svc.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Infow("stopping webhook consumer")
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// Module exposes the durable webhook queue and starts its consumer.
var Module = fx.Options(
	fx.Provide(func(svc *billing.Service) Processor { return svc }),
	fx.Provide(NewService),
	fx.Invoke(runConsumer),
)
