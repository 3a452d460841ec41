package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// attemptsTTL 是失败计数的过期时间。
const attemptsTTL = 24 * time.Hour

// AttemptCounter 记录每个任务的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// RedisAttempts 把失败次数保存在 Redis，计数 24 小时后过期。
type RedisAttempts struct {
	rdb *redis.Client
}

func NewRedisAttempts(rdb *redis.Client) *RedisAttempts {
	return &RedisAttempts{rdb: rdb}
}

func (r *RedisAttempts) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = r.rdb.Expire(ctx, key, attemptsTTL).Err()
	return n, nil
}

func (r *RedisAttempts) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// MemoryAttempts 在未启用 Redis 时使用，计数只在进程内有效。
type MemoryAttempts struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{counts: make(map[string]int64)}
}

func (m *MemoryAttempts) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MemoryAttempts) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	return nil
}
