package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/pkg/shopify"
)

// 合规 Webhook 主题
const (
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
)

// shopRedactor shop/redact 需要无条件清空凭证
type shopRedactor interface {
	RevokeCredential(ctx context.Context, shop string) error
}

// ComplianceService 隐私合规 Webhook
// 本应用不保存顾客数据，只有 shop/redact 需要清理凭证
type ComplianceService struct {
	store  shopRedactor
	secret string
	log    *zap.Logger
}

// NewComplianceService 创建合规服务
func NewComplianceService(store shopRedactor, apiSecret string, log *zap.Logger) *ComplianceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ComplianceService{store: store, secret: apiSecret, log: log.Named("compliance")}
}

// Handle 验签后按主题处理
func (s *ComplianceService) Handle(ctx context.Context, topic string, body []byte, signature string) error {
	if !shopify.VerifyWebhookHMAC(body, signature, s.secret) {
		return fmt.Errorf("%w: webhook hmac mismatch", apperr.ErrUnauthenticated)
	}

	var payload struct {
		ShopDomain string `json:"shop_domain"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperr.Validation("malformed %s payload: %v", topic, err)
	}
	s.log.Info("收到合规 Webhook", zap.String("topic", topic), zap.String("shop", payload.ShopDomain))

	switch topic {
	case TopicShopRedact:
		if payload.ShopDomain == "" {
			return apperr.Validation("shop_domain is required")
		}
		return s.store.RevokeCredential(ctx, payload.ShopDomain)
	case TopicCustomersDataRequest, TopicCustomersRedact:
		return nil
	default:
		return apperr.Validation("unknown topic %q", topic)
	}
}
