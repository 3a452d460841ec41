package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/pkg/log"
)

// RDB 记录 Kafka 入库任务的失败次数，未启用 Redis 时为 nil。
var RDB *redis.Client

const redisPingTimeout = 5 * time.Second

// InitRedis 连接 Redis 并 Ping 一次，连接失败时关闭客户端并返回错误。
func InitRedis(cfg config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisPingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("连接 Redis %s 失败: %w", cfg.Addr, err)
	}

	RDB = client
	log.Infof("Redis 连接成功, Addr: %s, DB: %d", cfg.Addr, cfg.DB)
	return nil
}
