package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/config"
	"mockup_embedder_v1_202610/internal/model"
	"mockup_embedder_v1_202610/pkg/shopify"
)

// SubscriptionState 订阅检查结果，不落库
type SubscriptionState struct {
	Active          bool   `json:"active"`
	ConfirmationURL string `json:"confirmationUrl,omitempty"`
}

// 视为已付费的订阅状态
var activeSubscriptionStatuses = map[string]bool{
	"ACTIVE":   true,
	"ACCEPTED": true,
}

// BillingAPI 计费相关的远程调用
type BillingAPI interface {
	ActiveSubscriptions(ctx context.Context, shop, token string) ([]shopify.AppSubscription, error)
	CreateSubscription(ctx context.Context, shop, token string, plan shopify.SubscriptionPlan) (string, error)
}

// credentialGetter 取凭证
type credentialGetter interface {
	GetCredential(ctx context.Context, shop string) (*model.ShopCredential, error)
}

// BillingGate 订阅检查
type BillingGate struct {
	api     BillingAPI
	store   credentialGetter
	authErr *AuthFailureHandler
	plan    config.BillingConfig
	appURL  string
	log     *zap.Logger
}

// NewBillingGate 创建计费检查服务
func NewBillingGate(api BillingAPI, store credentialGetter, authErr *AuthFailureHandler, plan config.BillingConfig, appURL string, log *zap.Logger) *BillingGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingGate{
		api:     api,
		store:   store,
		authErr: authErr,
		plan:    plan,
		appURL:  strings.TrimRight(appURL, "/"),
		log:     log.Named("billing"),
	}
}

// EnsureActive 已有有效订阅返回 active=true；否则创建订阅并返回确认地址
func (g *BillingGate) EnsureActive(ctx context.Context, shop string) (*SubscriptionState, error) {
	// 1. 取凭证
	cred, err := g.store.GetCredential(ctx, shop)
	if err != nil {
		g.log.Warn("取凭证失败", zap.String("shop", shop), zap.Error(err))
		return nil, g.authErr.Handle(ctx, shop, "", err)
	}

	state, err := g.ensureActive(ctx, shop, cred.AccessToken)
	if err != nil {
		g.log.Error("订阅检查失败", zap.String("shop", shop), zap.Error(err))
		return nil, g.authErr.Handle(ctx, shop, cred.AccessToken, err)
	}
	return state, nil
}

func (g *BillingGate) ensureActive(ctx context.Context, shop, token string) (*SubscriptionState, error) {
	// 2. 查询当前订阅
	subs, err := g.api.ActiveSubscriptions(ctx, shop, token)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if IsActiveSubscription(sub.Status) {
			return &SubscriptionState{Active: true}, nil
		}
	}

	// 3. 没有有效订阅，创建并返回确认地址
	confirmationURL, err := g.api.CreateSubscription(ctx, shop, token, g.planFor(shop))
	if err != nil {
		return nil, err
	}
	g.log.Info("已创建订阅，等待商家确认", zap.String("shop", shop))
	return &SubscriptionState{Active: false, ConfirmationURL: confirmationURL}, nil
}

func (g *BillingGate) planFor(shop string) shopify.SubscriptionPlan {
	return shopify.SubscriptionPlan{
		Name:         g.plan.PlanName,
		Price:        g.plan.Price,
		CurrencyCode: g.plan.CurrencyCode,
		Interval:     g.plan.Interval,
		TrialDays:    g.plan.TrialDays,
		Test:         g.plan.Test,
		ReturnURL:    g.appURL + g.plan.ReturnPath + "?shop=" + url.QueryEscape(shop),
	}
}

// IsActiveSubscription 状态是否视为已付费
func IsActiveSubscription(status string) bool {
	return activeSubscriptionStatuses[strings.ToUpper(status)]
}
