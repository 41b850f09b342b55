package bootstrap

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/config"
)

var RedisModule = fx.Module("redis",
	fx.Provide(
		NewRedis,
	),
)

// NewRedis returns nil when Redis is disabled or unreachable; the rate
// limiter and response cache then pass every request through.
func NewRedis(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || (!cfg.RateLimit.Enabled && !cfg.Cache.Enabled) {
		return nil
	}
	client, err := config.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled", slog.String("error", err.Error()))
		return nil
	}
	lc.Append(fx.StopHook(client.Close))
	log.Info("connected to redis", slog.String("addr", cfg.Redis.Address()))
	return client
}
