package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/controller"
	"mockup_embedder_v1_202610/internal/logger"
	"mockup_embedder_v1_202610/internal/middleware"
	"mockup_embedder_v1_202610/internal/service"
)

// Controllers 控制器集合
type Controllers struct {
	Health  *controller.HealthController
	Auth    *controller.AuthController
	Billing *controller.BillingController
	Attach  *controller.AttachController
	Webhook *controller.WebhookController
}

// Options 路由层依赖
type Options struct {
	Verifier middleware.SessionVerifier
	Limiter  *middleware.ShopRateLimiter
	Logger   *zap.Logger
}

// SetupRouter 创建引擎并注册所有路由
func SetupRouter(ctls *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(logger.RequestID(), logger.GinMiddleware(opts.Logger), logger.Recovery(opts.Logger), middleware.EmbedHeaders())

	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers, opts Options) {
	sessionAuth := middleware.SessionAuth(opts.Verifier)

	// 1. 探针
	r.GET("/healthz", ctls.Health.Healthz)

	// 2. 安装授权 (顶层页面跳转，不带会话令牌)
	auth := r.Group("/auth")
	{
		auth.GET("/install", ctls.Auth.Install)
		auth.GET("/callback", ctls.Auth.Callback)
	}

	// 3. 计费
	billing := r.Group("/billing")
	{
		// GET /billing/confirm 平台付款后回跳
		billing.GET("/confirm", ctls.Billing.Confirm)
		billing.GET("/ensure", sessionAuth, ctls.Billing.Ensure)
	}

	// 4. 嵌入式前端调用的接口
	api := r.Group("/api", sessionAuth)
	{
		api.GET("/ping", ctls.Health.Ping)
		if opts.Limiter != nil {
			api.POST("/attach", opts.Limiter.Middleware(), ctls.Attach.Attach)
		} else {
			api.POST("/attach", ctls.Attach.Attach)
		}
		api.POST("/embed-description", ctls.Attach.EmbedDescription)
	}

	// 5. 隐私合规 Webhook
	webhooks := r.Group("/webhooks/privacy")
	{
		webhooks.POST("/customers/data_request", ctls.Webhook.Privacy(service.TopicCustomersDataRequest))
		webhooks.POST("/customers/redact", ctls.Webhook.Privacy(service.TopicCustomersRedact))
		webhooks.POST("/shop/redact", ctls.Webhook.Privacy(service.TopicShopRedact))
	}
}
