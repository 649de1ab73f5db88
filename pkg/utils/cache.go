package utils

import (
	"sync"
	"time"
)

// TTLCache 基于 sync.Map 的并发安全过期缓存
type TTLCache[V any] struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// cacheItem 内部结构，包含值和过期时间
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache 创建缓存，ttl 为默认过期时间
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{ttl: ttl, now: time.Now}
}

// Set 写入缓存
func (c *TTLCache[V]) Set(key string, value V) {
	c.items.Store(key, cacheItem[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Get 读取缓存，过期项懒删除
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.items.Load(key)
	if !ok {
		return zero, false
	}
	item := raw.(cacheItem[V])
	if c.now().After(item.expiresAt) {
		c.items.Delete(key)
		return zero, false
	}
	return item.value, true
}

// Take 读取并删除 (用完即焚)
func (c *TTLCache[V]) Take(key string) (V, bool) {
	var zero V
	raw, ok := c.items.LoadAndDelete(key)
	if !ok {
		return zero, false
	}
	item := raw.(cacheItem[V])
	if c.now().After(item.expiresAt) {
		return zero, false
	}
	return item.value, true
}

// Delete 删除缓存
func (c *TTLCache[V]) Delete(key string) {
	c.items.Delete(key)
}
