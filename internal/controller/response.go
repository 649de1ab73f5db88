package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/api/dto"
	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/internal/logger"
	"mockup_embedder_v1_202610/internal/service"
)

// respondError 统一错误映射
// 需要重新授权 -> 401 + redirect；令牌无效 -> 401；参数错误 -> 400；其余 -> 500 原样透出
func respondError(ctx *gin.Context, err error) {
	_ = ctx.Error(err)

	var signal *service.ReauthSignal
	switch {
	case errors.As(err, &signal):
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResp{Error: "unauthorized", Redirect: signal.RedirectURL})
	case errors.Is(err, apperr.ErrUnauthenticated):
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResp{Error: "unauthorized"})
	case errors.Is(err, apperr.ErrValidation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResp{Error: err.Error()})
	case errors.Is(err, apperr.ErrContentURLTimeout):
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResp{
			Error: "the file is still processing and may appear in your store shortly: " + err.Error(),
		})
	default:
		logger.FromGin(ctx).Error("请求处理失败", zap.String("stage", string(service.FailedStage(err))), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResp{Error: err.Error()})
	}
}

// badRequest 参数绑定失败
func badRequest(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusBadRequest, dto.ErrorResp{Error: msg})
}
