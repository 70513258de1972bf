package cache

import (
	"context"
	"time"
)

// OnceLock 基于 SET NX EX 的一次性锁，用于同一时段任务去重
type OnceLock struct {
	store *Store
}

// NewOnceLock 创建一次性锁
func NewOnceLock(store *Store) *OnceLock {
	return &OnceLock{store: store}
}

// Acquire 尝试占用 key，已被占用返回 false
func (l *OnceLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil || !l.store.Enabled() {
		return false, ErrStoreUnavailable
	}
	return l.store.client.SetNX(ctx, l.store.Key(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}
