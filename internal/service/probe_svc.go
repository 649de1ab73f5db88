package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ShopProbeAPI 最轻量的远程调用
type ShopProbeAPI interface {
	ShopName(ctx context.Context, shop, token string) (string, error)
}

// CredentialProbe 凭证巡检：用一次轻量查询验证凭证是否仍然有效
type CredentialProbe struct {
	api     ShopProbeAPI
	store   credentialGetter
	authErr *AuthFailureHandler
	log     *zap.Logger
}

// NewCredentialProbe 创建巡检服务
func NewCredentialProbe(api ShopProbeAPI, store credentialGetter, authErr *AuthFailureHandler, log *zap.Logger) *CredentialProbe {
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialProbe{api: api, store: store, authErr: authErr, log: log.Named("probe")}
}

// Probe 返回凭证是否因授权失败被吊销
// 非授权类错误只返回，不吊销
func (p *CredentialProbe) Probe(ctx context.Context, shop string) (bool, error) {
	var token string
	cred, err := p.store.GetCredential(ctx, shop)
	if err == nil {
		token = cred.AccessToken
		_, err = p.api.ShopName(ctx, shop, token)
	}
	if err == nil {
		return false, nil
	}

	err = p.authErr.Handle(ctx, shop, token, err)
	var signal *ReauthSignal
	if errors.As(err, &signal) {
		return true, nil
	}
	return false, err
}
