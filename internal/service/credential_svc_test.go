package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/internal/model"
	"mockup_embedder_v1_202610/internal/repository"
)

func TestCredentialStore_NotInstalled(t *testing.T) {
	store := setupStore(t, nil)

	_, err := store.GetCredential(context.Background(), "ghost.myshopify.com")
	if !errors.Is(err, apperr.ErrTenantNotInstalled) {
		t.Fatalf("GetCredential() error = %v, want ErrTenantNotInstalled", err)
	}
	if !IsAuthFailure(err) {
		t.Error("not-installed must be treated as an authorization failure")
	}
}

func TestCredentialStore_UpsertGetRevoke(t *testing.T) {
	store := setupStore(t, map[string]string{"shop-a.myshopify.com": "tok-1"})
	ctx := context.Background()

	cred, err := store.GetCredential(ctx, "shop-a.myshopify.com")
	if err != nil || cred.AccessToken != "tok-1" {
		t.Fatalf("GetCredential() = %+v, %v", cred, err)
	}

	// 重新安装覆盖
	if err := store.UpsertCredential(ctx, "shop-a.myshopify.com", "tok-2", "write_products"); err != nil {
		t.Fatalf("UpsertCredential() error = %v", err)
	}
	cred, _ = store.GetCredential(ctx, "shop-a.myshopify.com")
	if cred.AccessToken != "tok-2" {
		t.Errorf("AccessToken = %s, want tok-2", cred.AccessToken)
	}

	if err := store.RevokeCredential(ctx, "shop-a.myshopify.com"); err != nil {
		t.Fatalf("RevokeCredential() error = %v", err)
	}
	// 幂等
	if err := store.RevokeCredential(ctx, "shop-a.myshopify.com"); err != nil {
		t.Fatalf("RevokeCredential() repeat error = %v", err)
	}
	if _, err := store.GetCredential(ctx, "shop-a.myshopify.com"); !errors.Is(err, apperr.ErrTenantNotInstalled) {
		t.Errorf("after revoke GetCredential() error = %v", err)
	}
}

func TestCredentialStore_RevokeEvictsCache(t *testing.T) {
	repo := repository.NewShopRepository(setupTestDB(t))
	cache := NewMemoryCredentialCache(time.Minute)
	store := NewCredentialStore(repo, cache, nil)
	ctx := context.Background()

	_ = store.UpsertCredential(ctx, "shop-a.myshopify.com", "tok-1", "")
	if _, err := store.GetCredential(ctx, "shop-a.myshopify.com"); err != nil {
		t.Fatalf("GetCredential() error = %v", err)
	}
	if c, _ := cache.Get(ctx, "shop-a.myshopify.com"); c == nil {
		t.Fatal("credential should be cached")
	}

	_ = store.RevokeCredential(ctx, "shop-a.myshopify.com")
	if c, _ := cache.Get(ctx, "shop-a.myshopify.com"); c != nil {
		t.Errorf("cache still holds %+v after revoke", c)
	}
	row, _ := repo.GetByDomain(ctx, "shop-a.myshopify.com")
	if row.HasToken() || row.TokenStatus != model.TokenStatusInvalid {
		t.Errorf("row not revoked: %+v", row)
	}
}

func TestCredentialStore_RevokeTokenOnlyMatchesFailedToken(t *testing.T) {
	repo := repository.NewShopRepository(setupTestDB(t))
	cache := NewMemoryCredentialCache(time.Minute)
	store := NewCredentialStore(repo, cache, nil)
	ctx := context.Background()

	_ = store.UpsertCredential(ctx, "shop-a.myshopify.com", "tok-2", "")
	if _, err := store.GetCredential(ctx, "shop-a.myshopify.com"); err != nil {
		t.Fatalf("GetCredential() error = %v", err)
	}

	// 旧令牌失败：数据库与缓存都保持 tok-2
	if err := store.RevokeToken(ctx, "shop-a.myshopify.com", "tok-1"); err != nil {
		t.Fatalf("RevokeToken(tok-1) error = %v", err)
	}
	if c, _ := cache.Get(ctx, "shop-a.myshopify.com"); c == nil || c.AccessToken != "tok-2" {
		t.Errorf("cache = %+v, want tok-2 kept", c)
	}
	cred, err := store.GetCredential(ctx, "shop-a.myshopify.com")
	if err != nil || cred.AccessToken != "tok-2" {
		t.Fatalf("GetCredential() = %+v, %v", cred, err)
	}

	// 当前令牌失败：吊销并清缓存
	if err := store.RevokeToken(ctx, "shop-a.myshopify.com", "tok-2"); err != nil {
		t.Fatalf("RevokeToken(tok-2) error = %v", err)
	}
	if c, _ := cache.Get(ctx, "shop-a.myshopify.com"); c != nil {
		t.Errorf("cache still holds %+v", c)
	}
	if _, err := store.GetCredential(ctx, "shop-a.myshopify.com"); !errors.Is(err, apperr.ErrTenantNotInstalled) {
		t.Errorf("after revoke GetCredential() error = %v", err)
	}

	if err := store.RevokeToken(ctx, "shop-a.myshopify.com", ""); err == nil {
		t.Error("RevokeToken with empty token should fail")
	}
}

func TestCredentialStore_ConcurrentWriters(t *testing.T) {
	store := setupStore(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%3 == 0 {
				_ = store.RevokeCredential(ctx, "shop-a.myshopify.com")
				return
			}
			_ = store.UpsertCredential(ctx, "shop-a.myshopify.com", "tok", "")
		}(i)
	}
	wg.Wait()

	// 结束后缓存与数据库一致：要么都有令牌，要么都没有
	_, cacheErr := store.GetCredential(ctx, "shop-a.myshopify.com")
	row, _ := store.repo.GetByDomain(ctx, "shop-a.myshopify.com")
	if (cacheErr == nil) != row.HasToken() {
		t.Errorf("cache/store diverged: getErr=%v hasToken=%v", cacheErr, row.HasToken())
	}
}

func TestRedisCredentialCache(t *testing.T) {
	addr := os.Getenv("APP_REDIS_ADDR")
	if addr == "" {
		t.Skip("APP_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	cache := NewRedisCredentialCache(client, time.Minute)
	ctx := context.Background()

	cred := &model.ShopCredential{ShopDomain: "redis-test.myshopify.com", AccessToken: "tok"}
	if err := cache.Set(ctx, cred); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := cache.Get(ctx, cred.ShopDomain)
	if err != nil || got == nil || got.AccessToken != "tok" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	_ = cache.Delete(ctx, cred.ShopDomain)
	if got, _ := cache.Get(ctx, cred.ShopDomain); got != nil {
		t.Errorf("Get() after Delete = %+v", got)
	}
}
