package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mockup_embedder_v1_202610/internal/middleware"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

// Healthz 存活探针
func (c *HealthController) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// Ping 会话令牌连通性检查
func (c *HealthController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ok": true, "shop": middleware.GetShop(ctx)})
}
