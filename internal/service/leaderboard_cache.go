package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"values_edu_backend/internal/model"
	"values_edu_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardKeyPrefix = "leaderboard:class:"

type LeaderboardCache interface {
	Get(ctx context.Context, classID uint) ([]model.LeaderboardEntry, bool)
	Set(ctx context.Context, classID uint, entries []model.LeaderboardEntry)
	Invalidate(ctx context.Context, classID uint)
}

func NewLeaderboardCache(rdb *redis.Client, ttl time.Duration) LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if rdb == nil {
		return NewMemoryLeaderboardCache(ttl)
	}
	return &RedisLeaderboardCache{Redis: rdb, TTL: ttl}
}

type RedisLeaderboardCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func leaderboardKey(classID uint) string {
	return fmt.Sprintf("%s%d", leaderboardKeyPrefix, classID)
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, classID uint) ([]model.LeaderboardEntry, bool) {
	val, err := c.Redis.Get(ctx, leaderboardKey(classID)).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		logger.Log.Warn("读取排行榜缓存失败", zap.Uint("classID", classID), zap.Error(err))
		return nil, false
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, classID uint, entries []model.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, leaderboardKey(classID), data, c.TTL).Err(); err != nil {
		logger.Log.Warn("写入排行榜缓存失败", zap.Uint("classID", classID), zap.Error(err))
	}
}

func (c *RedisLeaderboardCache) Invalidate(ctx context.Context, classID uint) {
	c.Redis.Del(ctx, leaderboardKey(classID))
}

type cachedLeaderboard struct {
	entries []model.LeaderboardEntry
	expires time.Time
}

// MemoryLeaderboardCache 单实例部署使用
type MemoryLeaderboardCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uint]cachedLeaderboard
}

func NewMemoryLeaderboardCache(ttl time.Duration) *MemoryLeaderboardCache {
	return &MemoryLeaderboardCache{ttl: ttl, entries: make(map[uint]cachedLeaderboard)}
}

func (c *MemoryLeaderboardCache) Get(_ context.Context, classID uint) ([]model.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.entries[classID]
	if !ok || time.Now().After(item.expires) {
		return nil, false
	}
	return item.entries, true
}

func (c *MemoryLeaderboardCache) Set(_ context.Context, classID uint, entries []model.LeaderboardEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[classID] = cachedLeaderboard{entries: entries, expires: time.Now().Add(c.ttl)}
}

func (c *MemoryLeaderboardCache) Invalidate(_ context.Context, classID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, classID)
}
