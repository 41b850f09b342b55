package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/config"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

var MessagingModule = fx.Module("messaging",
	fx.Provide(
		NewEventPublisher,
	),
	fx.Invoke(StartAuditConsumer),
)

// NewEventPublisher publishes to RabbitMQ when RABBITMQ_URL is set and
// drops events otherwise.
func NewEventPublisher(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) service.EventPublisher {
	if cfg.RabbitMQ.URL == "" {
		log.Info("RABBITMQ_URL not set; domain events are not published")
		return service.NopPublisher{}
	}
	p := queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)
	lc.Append(fx.StopHook(p.Close))
	return p
}

// StartAuditConsumer runs the consumer that appends every event to
// AUDIT_LOG_PATH for the lifetime of the app.
func StartAuditConsumer(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) error {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}
	f, err := queue.OpenAuditLog(cfg.RabbitMQ.AuditLog)
	if err != nil {
		return err
	}
	c := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, f, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				_ = c.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stop.Done():
			}
			return f.Close()
		},
	})
	return nil
}
