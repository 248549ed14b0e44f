package services

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// LockService provides short-lived processing locks backed by Redis SETNX.
// It is a best-effort layer: when Redis is unavailable (nil client or a
// failing call) every acquisition succeeds, because correctness is carried
// by the ledger's unique index, not the lock.
type LockService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLockService(client *redis.Client) *LockService {
	return &LockService{
		client: client,
		ttl:    30 * time.Second,
	}
}

// Acquire tries to take the named lock. The returned release function is
// always safe to call, including when acquisition failed.
func (l *LockService) Acquire(ctx context.Context, key string) (release func(), acquired bool) {
	noop := func() {}
	if l == nil || l.client == nil {
		return noop, true
	}

	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		log.Printf("Redis lock %s unavailable: %v", key, err)
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := l.client.Del(context.Background(), key).Err(); err != nil {
			log.Printf("Failed to release lock %s: %v", key, err)
		}
	}, true
}
