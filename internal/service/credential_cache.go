package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mockup_embedder_v1_202610/internal/model"
	"mockup_embedder_v1_202610/pkg/utils"
)

// CredentialCache 凭证缓存视图，读多写少
// Get 未命中返回 (nil, nil)
type CredentialCache interface {
	Get(ctx context.Context, shop string) (*model.ShopCredential, error)
	Set(ctx context.Context, cred *model.ShopCredential) error
	Delete(ctx context.Context, shop string) error
}

// ==================== 内存实现 ====================

type memoryCredentialCache struct {
	items *utils.TTLCache[model.ShopCredential]
}

// NewMemoryCredentialCache 进程内缓存，ttl <= 0 时取 10 分钟
func NewMemoryCredentialCache(ttl time.Duration) CredentialCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &memoryCredentialCache{items: utils.NewTTLCache[model.ShopCredential](ttl)}
}

func (c *memoryCredentialCache) Get(_ context.Context, shop string) (*model.ShopCredential, error) {
	cred, ok := c.items.Get(shop)
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (c *memoryCredentialCache) Set(_ context.Context, cred *model.ShopCredential) error {
	c.items.Set(cred.ShopDomain, *cred)
	return nil
}

func (c *memoryCredentialCache) Delete(_ context.Context, shop string) error {
	c.items.Delete(shop)
	return nil
}

// ==================== Redis 实现 ====================

const credentialKeyPrefix = "cred:"

type redisCredentialCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCredentialCache 多实例部署时共享凭证视图
func NewRedisCredentialCache(client redis.UniversalClient, ttl time.Duration) CredentialCache {
	return &redisCredentialCache{client: client, ttl: ttl}
}

func (c *redisCredentialCache) Get(ctx context.Context, shop string) (*model.ShopCredential, error) {
	raw, err := c.client.Get(ctx, credentialKeyPrefix+shop).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cred model.ShopCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		// 脏数据按未命中处理，回源后覆盖
		return nil, nil
	}
	return &cred, nil
}

func (c *redisCredentialCache) Set(ctx context.Context, cred *model.ShopCredential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, credentialKeyPrefix+cred.ShopDomain, raw, c.ttl).Err()
}

func (c *redisCredentialCache) Delete(ctx context.Context, shop string) error {
	return c.client.Del(ctx, credentialKeyPrefix+shop).Err()
}
