package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"mockup_embedder_v1_202610/internal/service"
)

// HeaderWebhookHMAC Webhook 签名头
const HeaderWebhookHMAC = "X-Shopify-Hmac-Sha256"

type WebhookController struct {
	compliance *service.ComplianceService
}

func NewWebhookController(compliance *service.ComplianceService) *WebhookController {
	return &WebhookController{compliance: compliance}
}

// Privacy 返回指定主题的处理函数，签名必须基于原始请求体校验
func (c *WebhookController) Privacy(topic string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 1<<20))
		if err != nil {
			badRequest(ctx, "read body failed")
			return
		}
		if err := c.compliance.Handle(ctx.Request.Context(), topic, body, ctx.GetHeader(HeaderWebhookHMAC)); err != nil {
			respondError(ctx, err)
			return
		}
		ctx.String(http.StatusOK, "ok")
	}
}
