package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"gogame-presence/pkg/redis"
)

// Cache 分布式键值缓存抽象。
// Redis本身没有命名空间，约定将命名空间前缀拼接到键上（namespace|key）。
type Cache interface {
	// Get 读取缓存值并反序列化到dest，未命中返回false
	Get(ctx context.Context, key, namespace string, dest interface{}) (bool, error)
	// Set 写入缓存值，ttl为零表示不过期
	Set(ctx context.Context, key, namespace string, value interface{}, ttl time.Duration) error
}

// redisCache 基于Redis的缓存实现
type redisCache struct {
	client *redis.RedisClient
}

// NewRedisCache 创建Redis缓存实例
func NewRedisCache(client *redis.RedisClient) Cache {
	return &redisCache{client: client}
}

func nsKey(key, namespace string) string {
	if namespace == "" {
		return key
	}
	return namespace + "|" + key
}

// Get 读取缓存值
func (c *redisCache) Get(ctx context.Context, key, namespace string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, nsKey(key, namespace))
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set 写入缓存值
func (c *redisCache) Set(ctx context.Context, key, namespace string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, nsKey(key, namespace), data, ttl)
}

// memoryCache 进程内缓存实现，测试和无Redis环境使用
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

// Get 读取缓存值
func (c *memoryCache) Get(ctx context.Context, key, namespace string, dest interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[nsKey(key, namespace)]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set 写入缓存值
func (c *memoryCache) Set(ctx context.Context, key, namespace string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[nsKey(key, namespace)] = entry
	c.mu.Unlock()
	return nil
}
