package redisconn

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/botsense/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the shared redis client. The client is nil when no address
// is configured; consumers fall back to their in-process implementations.
var Module = fx.Module("redisconn", fx.Provide(New))

func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("redis not configured, using in-process stores")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// The classification path must stay up even when the shared
				// store is down; consumers degrade per their own policy.
				log.Warn("redis ping failed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})

	log.Info("redis configured", zap.String("addr", addr))
	return client
}
