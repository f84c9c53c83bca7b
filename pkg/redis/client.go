package redis

import (
	"context"
	"fmt"
	"time"

	"todoapp/pkg/config"

	"github.com/redis/go-redis/v9"
)

var Rdb *redis.Client

// NewRedisClient 创建 Redis 客户端并 ping 一次，连接失败直接返回错误
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	Rdb = rdb
	return rdb, nil
}
