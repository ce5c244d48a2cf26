package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard 保证入库对每个文档至多执行一次，并为失败留痕。
type Guard interface {
	// TryAcquire 尝试占有文档的入库权，返回 false 表示已被执行过。
	TryAcquire(ctx context.Context, documentID uint) (bool, error)
	// RecordFailure 记录一次入库失败，仅供运维侧观察，不触发任何重试。
	RecordFailure(ctx context.Context, documentID uint)
}

type redisGuard struct {
	rdb *redis.Client
}

// NewRedisGuard 创建基于 Redis SETNX 的入库防重闸门。
func NewRedisGuard(rdb *redis.Client) Guard {
	return &redisGuard{rdb: rdb}
}

// TryAcquire 的键不过期：重新触发入库属于运维操作，由运维删除键后重投任务。
func (g *redisGuard) TryAcquire(ctx context.Context, documentID uint) (bool, error) {
	key := fmt.Sprintf("ingest:once:%d", documentID)
	ok, err := g.rdb.SetNX(ctx, key, 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire ingest guard: %w", err)
	}
	return ok, nil
}

func (g *redisGuard) RecordFailure(ctx context.Context, documentID uint) {
	key := fmt.Sprintf("ingest:fail:%d", documentID)
	if err := g.rdb.Incr(ctx, key).Err(); err != nil {
		return
	}
	_ = g.rdb.Expire(ctx, key, 24*time.Hour).Err()
}
