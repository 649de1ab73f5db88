package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mockup_embedder_v1_202610/internal/service"
)

type AuthController struct {
	authSvc *service.AuthService
}

func NewAuthController(authSvc *service.AuthService) *AuthController {
	return &AuthController{authSvc: authSvc}
}

// Install 授权入口，顶层跳转到平台授权页
func (c *AuthController) Install(ctx *gin.Context) {
	authURL, err := c.authSvc.BeginInstall(ctx.Query("shop"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, authURL)
}

// Callback 平台回调：换取令牌后回到嵌入式后台
func (c *AuthController) Callback(ctx *gin.Context) {
	shop, err := c.authSvc.CompleteInstall(ctx.Request.Context(), ctx.Request.URL.Query())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, service.EmbeddedAppURL(shop))
}
