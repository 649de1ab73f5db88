package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/internal/config"
	"mockup_embedder_v1_202610/pkg/shopify"
	"mockup_embedder_v1_202610/pkg/utils"
)

// CallbackPath OAuth 回调路径，需与应用后台配置一致
const CallbackPath = "/auth/callback"

// stateTTL 足够完成一次授权跳转
const stateTTL = 10 * time.Minute

// OAuthAPI 授权码换令牌
type OAuthAPI interface {
	ExchangeCode(ctx context.Context, shop, clientID, clientSecret, code string) (*shopify.AccessTokenResponse, error)
}

type credentialWriter interface {
	UpsertCredential(ctx context.Context, shop, accessToken, scope string) error
}

// AuthService 店铺安装授权
type AuthService struct {
	api    OAuthAPI
	store  credentialWriter
	states *utils.TTLCache[string]
	cfg    config.ShopifyConfig
	appURL string
	log    *zap.Logger
}

// NewAuthService 工厂方法
func NewAuthService(api OAuthAPI, store credentialWriter, cfg config.ShopifyConfig, appURL string, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		api:    api,
		store:  store,
		states: utils.NewTTLCache[string](stateTTL),
		cfg:    cfg,
		appURL: strings.TrimRight(appURL, "/"),
		log:    log.Named("auth"),
	}
}

// BeginInstall 生成授权链接，state 缓存 10 分钟
func (s *AuthService) BeginInstall(shop string) (string, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if !shopify.ValidShopDomain(shop) {
		return "", apperr.Validation("invalid shop domain: %q", shop)
	}

	state := uuid.NewString()
	s.states.Set(state, shop)

	q := url.Values{}
	q.Set("client_id", s.cfg.APIKey)
	q.Set("scope", strings.Join(s.cfg.Scopes, ","))
	q.Set("redirect_uri", s.appURL+CallbackPath)
	q.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode()), nil
}

// CompleteInstall 处理回调：验签 -> 校验 state -> 换令牌 -> 写入凭证
func (s *AuthService) CompleteInstall(ctx context.Context, query url.Values) (string, error) {
	// 1. 验签
	if !shopify.VerifyQueryHMAC(query, s.cfg.APISecret) {
		return "", fmt.Errorf("%w: callback hmac mismatch", apperr.ErrUnauthenticated)
	}

	// 2. 校验店铺与 state (一次性)
	shop := strings.ToLower(query.Get("shop"))
	if !shopify.ValidShopDomain(shop) {
		return "", apperr.Validation("invalid shop domain: %q", shop)
	}
	expected, ok := s.states.Take(query.Get("state"))
	if !ok || expected != shop {
		return "", fmt.Errorf("%w: unknown or expired oauth state", apperr.ErrUnauthenticated)
	}
	code := query.Get("code")
	if code == "" {
		return "", apperr.Validation("code is required")
	}

	// 3. 换取离线令牌
	tok, err := s.api.ExchangeCode(ctx, shop, s.cfg.APIKey, s.cfg.APISecret, code)
	if err != nil {
		s.log.Error("换取令牌失败", zap.String("shop", shop), zap.Error(err))
		return "", err
	}

	// 4. 写入凭证 (重新安装覆盖旧值)
	if err := s.store.UpsertCredential(ctx, shop, tok.AccessToken, tok.Scope); err != nil {
		return "", err
	}
	s.log.Info("店铺安装完成", zap.String("shop", shop), zap.String("scope", tok.Scope))
	return shop, nil
}

// EmbeddedAppURL 安装或计费完成后回到嵌入式后台的地址
func EmbeddedAppURL(shop string) string {
	q := url.Values{}
	q.Set("shop", shop)
	q.Set("host", shopify.EmbeddedHost(shop))
	return "/?" + q.Encode()
}
