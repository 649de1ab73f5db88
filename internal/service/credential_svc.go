package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/internal/model"
	"mockup_embedder_v1_202610/internal/repository"
)

// CredentialStore 每个店铺一条离线凭证
// 写操作按店铺串行化，缓存与数据库在同一把锁内更新
type CredentialStore struct {
	repo  repository.ShopRepository
	cache CredentialCache
	log   *zap.Logger

	locks sync.Map // shop -> *sync.Mutex
}

// NewCredentialStore 创建凭证存储，cache 为 nil 时不启用缓存
func NewCredentialStore(repo repository.ShopRepository, cache CredentialCache, log *zap.Logger) *CredentialStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialStore{repo: repo, cache: cache, log: log.Named("credential")}
}

func (s *CredentialStore) lockFor(shop string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(shop, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GetCredential 查询店铺凭证
// 无记录或凭证已清空时返回 ErrTenantNotInstalled
func (s *CredentialStore) GetCredential(ctx context.Context, shop string) (*model.ShopCredential, error) {
	if cred := s.cached(ctx, shop); cred != nil {
		return cred, nil
	}

	mu := s.lockFor(shop)
	mu.Lock()
	defer mu.Unlock()

	// 拿锁后再查一次缓存，避免并发回源
	if cred := s.cached(ctx, shop); cred != nil {
		return cred, nil
	}

	row, err := s.repo.GetByDomain(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if !row.HasToken() {
		return nil, apperr.TenantNotInstalled(shop)
	}

	cred := &model.ShopCredential{ShopDomain: row.ShopDomain, AccessToken: *row.AccessToken, Scope: row.Scope}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cred); err != nil {
			s.log.Warn("写入凭证缓存失败", zap.String("shop", shop), zap.Error(err))
		}
	}
	return cred, nil
}

// UpsertCredential 写入或覆盖凭证 (重新安装直接覆盖)
func (s *CredentialStore) UpsertCredential(ctx context.Context, shop, accessToken, scope string) error {
	mu := s.lockFor(shop)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repo.Upsert(ctx, shop, accessToken, scope); err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	if s.cache != nil {
		cred := &model.ShopCredential{ShopDomain: shop, AccessToken: accessToken, Scope: scope}
		if err := s.cache.Set(ctx, cred); err != nil {
			// 缓存写失败时删掉旧值，让下次读回源
			_ = s.cache.Delete(ctx, shop)
		}
	}
	s.log.Info("凭证已更新", zap.String("shop", shop))
	return nil
}

// RevokeCredential 无条件吊销店铺凭证 (shop/redact)，幂等
// 先清数据库再删缓存，两者都完成后才返回
func (s *CredentialStore) RevokeCredential(ctx context.Context, shop string) error {
	return s.revoke(ctx, shop, "")
}

// RevokeToken 只吊销失败的那个令牌
// 店铺已重新安装换了令牌时不做任何改动
func (s *CredentialStore) RevokeToken(ctx context.Context, shop, token string) error {
	if token == "" {
		return fmt.Errorf("revoke token: empty token for %s", shop)
	}
	return s.revoke(ctx, shop, token)
}

func (s *CredentialStore) revoke(ctx context.Context, shop, token string) error {
	mu := s.lockFor(shop)
	mu.Lock()
	defer mu.Unlock()

	rows, err := s.repo.ClearAccessToken(ctx, shop, token)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	if token != "" && rows == 0 {
		s.log.Info("令牌已被替换，跳过吊销", zap.String("shop", shop))
		return nil
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, shop); err != nil {
			return fmt.Errorf("evict credential cache: %w", err)
		}
	}
	s.log.Warn("凭证已吊销", zap.String("shop", shop))
	return nil
}

// ListInstalled 列出持有凭证的店铺
func (s *CredentialStore) ListInstalled(ctx context.Context) ([]model.Shop, error) {
	return s.repo.ListInstalled(ctx)
}

func (s *CredentialStore) cached(ctx context.Context, shop string) *model.ShopCredential {
	if s.cache == nil {
		return nil
	}
	cred, err := s.cache.Get(ctx, shop)
	if err != nil {
		s.log.Warn("读取凭证缓存失败", zap.String("shop", shop), zap.Error(err))
		return nil
	}
	return cred
}
