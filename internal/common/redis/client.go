package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/config"
)

// pingTimeout 启动时连通性检查上限
const pingTimeout = 3 * time.Second

// NewRedisClient 缓存与事件流共用的客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return redis.NewClient(opts)
}

// Ping ctx 无截止时间时使用 pingTimeout
func Ping(ctx context.Context, client *redis.Client) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}
	return client.Ping(ctx).Err()
}

// Close nil 安全
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
