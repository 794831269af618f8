package service

import (
	"context"
	"sync"
	"time"
	"values_edu_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const completionLockPrefix = "lock:completion:"

// Locker 按 key 互斥；返回的 unlock 必须调用
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// NewLocker redis 可用时使用分布式锁，否则使用进程内锁
func NewLocker(rdb *redis.Client, ttl time.Duration) Locker {
	if rdb == nil {
		return NewMemoryLocker()
	}
	return NewRedisLocker(rdb, ttl)
}

// lockEntry sem 容量为 1，持有即占用
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker 进程内按 key 加锁，空闲 key 自动回收；等待可被 ctx 取消
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*lockEntry)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	return func() {
		<-entry.sem
		l.release(key, entry)
	}, nil
}

func (l *MemoryLocker) release(key string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// 仅删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker SETNX + 过期时间，多实例部署共享
type RedisLocker struct {
	Redis         *redis.Client
	TTL           time.Duration
	RetryInterval time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{Redis: rdb, TTL: ttl, RetryInterval: 50 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := completionLockPrefix + key
	token := uuid.New().String()
	deadline := time.Now().Add(l.TTL)

	for {
		ok, err := l.Redis.SetNX(ctx, redisKey, token, l.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseScript.Run(context.Background(), l.Redis, []string{redisKey}, token)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, util.ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.RetryInterval):
		}
	}
}
