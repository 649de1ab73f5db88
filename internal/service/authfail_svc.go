package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/pkg/shopify"
)

// ReauthSignal 通知调用方在顶层窗口重新走授权入口
type ReauthSignal struct {
	Shop        string
	RedirectURL string
	Cause       error
}

func (s *ReauthSignal) Error() string {
	return "reauthorization required for " + s.Shop + ": " + s.Cause.Error()
}

func (s *ReauthSignal) Unwrap() error {
	return s.Cause
}

// tokenRevoker 授权失败处理只依赖按令牌吊销
type tokenRevoker interface {
	RevokeToken(ctx context.Context, shop, token string) error
}

// AuthFailureHandler 授权失败统一处理：吊销凭证并给出重新授权地址
type AuthFailureHandler struct {
	store     tokenRevoker
	entryPath string
	log       *zap.Logger
}

// NewAuthFailureHandler entryPath 为授权入口，如 /auth/install
func NewAuthFailureHandler(store tokenRevoker, entryPath string, log *zap.Logger) *AuthFailureHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if entryPath == "" {
		entryPath = "/auth/install"
	}
	return &AuthFailureHandler{store: store, entryPath: entryPath, log: log.Named("authfail")}
}

// Handle 判断 err 是否为授权失败
// 是：吊销发起这次调用的 token，返回 *ReauthSignal (同时作为 error 返回)
// 否：原样返回 err，不吞错误
// token 为空表示还没拿到凭证 (未安装)，此时没有可吊销的令牌
func (h *AuthFailureHandler) Handle(ctx context.Context, shop, token string, err error) error {
	if err == nil || h == nil {
		return err
	}
	var signal *ReauthSignal
	if errors.As(err, &signal) {
		return err
	}
	if !IsAuthFailure(err) {
		return err
	}

	if token != "" {
		if rerr := h.store.RevokeToken(ctx, shop, token); rerr != nil {
			h.log.Error("吊销凭证失败", zap.String("shop", shop), zap.Error(rerr))
		}
	}
	h.log.Warn("授权失败，要求重新授权", zap.String("shop", shop), zap.Error(err))
	return &ReauthSignal{Shop: shop, RedirectURL: h.RedirectFor(shop), Cause: err}
}

// RedirectFor 授权入口地址
func (h *AuthFailureHandler) RedirectFor(shop string) string {
	return h.entryPath + "?shop=" + url.QueryEscape(shop)
}

// 授权失败关键字 (小写匹配)
var authFailurePhrases = []string{
	"invalid api key",
	"expired access token",
	"not authorized",
	"unauthorized",
	"missing session",
	"no offline session",
}

// IsAuthFailure 授权失败判定
// 401/403、客户端标记为 auth、未安装，或错误文本命中关键字
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperr.ErrTenantNotInstalled) {
		return true
	}
	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Kind == shopify.KindAuth || apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return true
		}
	}
	// 暂存上传被拒与平台凭证无关
	if errors.Is(err, apperr.ErrUploadRejected) {
		return false
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access token") && strings.Contains(msg, "invalid") {
		return true
	}
	for _, p := range authFailurePhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
