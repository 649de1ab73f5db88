package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mockup_embedder_v1_202610/internal/api/dto"
	"mockup_embedder_v1_202610/internal/middleware"
	"mockup_embedder_v1_202610/internal/service"
)

type BillingController struct {
	gate *service.BillingGate
}

func NewBillingController(gate *service.BillingGate) *BillingController {
	return &BillingController{gate: gate}
}

// Ensure 检查订阅，未订阅时返回付款确认地址
// @Summary 订阅检查
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.BillingResp
// @Failure 401 {object} dto.ErrorResp
// @Router /billing/ensure [get]
func (c *BillingController) Ensure(ctx *gin.Context) {
	state, err := c.gate.EnsureActive(ctx.Request.Context(), middleware.GetShop(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.BillingResp{OK: true, Active: state.Active, ConfirmationURL: state.ConfirmationURL})
}

// Confirm 付款确认后平台回跳，带回嵌入式后台
func (c *BillingController) Confirm(ctx *gin.Context) {
	shop := ctx.Query("shop")
	if shop == "" {
		badRequest(ctx, "missing shop")
		return
	}
	ctx.Redirect(http.StatusFound, service.EmbeddedAppURL(shop))
}
