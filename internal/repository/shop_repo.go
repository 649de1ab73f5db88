package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mockup_embedder_v1_202610/internal/model"
)

// ==================== 接口定义 ====================

// ShopRepository 店铺凭证仓储接口
type ShopRepository interface {
	// GetByDomain 未找到时返回 (nil, nil)
	GetByDomain(ctx context.Context, shopDomain string) (*model.Shop, error)
	// Upsert 按域名写入或覆盖凭证
	Upsert(ctx context.Context, shopDomain, accessToken, scope string) error
	// ClearAccessToken 清空凭证并标记为需重新授权，返回受影响行数
	// token 非空时只清空仍持有该令牌的记录，已被重新安装覆盖的不动
	ClearAccessToken(ctx context.Context, shopDomain, token string) (int64, error)
	// ListInstalled 列出持有有效凭证的店铺
	ListInstalled(ctx context.Context) ([]model.Shop, error)
}

// ==================== 仓储实现 ====================

type shopRepo struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓储
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) GetByDomain(ctx context.Context, shopDomain string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).Where("shop_domain = ?", shopDomain).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) Upsert(ctx context.Context, shopDomain, accessToken, scope string) error {
	now := time.Now()
	shop := &model.Shop{
		ShopDomain:  shopDomain,
		AccessToken: &accessToken,
		Scope:       scope,
		InstalledAt: &now,
		TokenStatus: model.TokenStatusValid,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "scope", "installed_at", "token_status", "revoked_at", "updated_at",
		}),
	}).Create(shop).Error
}

func (r *shopRepo) ClearAccessToken(ctx context.Context, shopDomain, token string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Shop{}).Where("shop_domain = ?", shopDomain)
	if token != "" {
		q = q.Where("access_token = ?", token)
	}
	res := q.Updates(map[string]interface{}{
		"access_token": nil,
		"token_status": model.TokenStatusInvalid,
		"revoked_at":   time.Now(),
	})
	return res.RowsAffected, res.Error
}

func (r *shopRepo) ListInstalled(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).
		Where("access_token IS NOT NULL AND token_status = ?", model.TokenStatusValid).
		Order("id ASC").
		Find(&shops).Error
	return shops, err
}
