package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"mockup_embedder_v1_202610/internal/api/dto"
	"mockup_embedder_v1_202610/internal/middleware"
	"mockup_embedder_v1_202610/internal/service"
)

type AttachController struct {
	pipeline *service.AttachmentPipeline
	maxBytes int64
}

func NewAttachController(pipeline *service.AttachmentPipeline, maxBytes int64) *AttachController {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &AttachController{pipeline: pipeline, maxBytes: maxBytes}
}

// Attach 上传图片并挂到商品图库或描述
// @Summary 上传并挂载图片
// @Tags Attach
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "图片文件"
// @Param productId formData string true "商品 ID"
// @Param mode formData string false "media | description"
// @Success 200 {object} dto.AttachResp
// @Failure 400 {object} dto.ErrorResp
// @Failure 401 {object} dto.ErrorResp
// @Failure 500 {object} dto.ErrorResp
// @Router /api/attach [post]
func (c *AttachController) Attach(ctx *gin.Context) {
	var req dto.AttachReq
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		badRequest(ctx, "file is required")
		return
	}
	if fh.Size > c.maxBytes {
		badRequest(ctx, fmt.Sprintf("file exceeds %d bytes", c.maxBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.maxBytes+1))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if int64(len(data)) > c.maxBytes {
		badRequest(ctx, fmt.Sprintf("file exceeds %d bytes", c.maxBytes))
		return
	}

	shop := middleware.GetShop(ctx)
	// 调用方断开不打断已经发出的远程调用
	runCtx := context.WithoutCancel(ctx.Request.Context())
	res, err := c.pipeline.Run(runCtx, shop, service.AttachRequest{
		ProductID:  req.ProductID,
		Filename:   fh.Filename,
		MimeType:   detectMime(fh.Header.Get("Content-Type"), data),
		Content:    bytes.NewReader(data),
		Alt:        req.Alt,
		Mode:       service.AttachMode(req.Mode),
		Position:   req.Position,
		ReplaceAll: req.ReplaceAll,
		Where:      req.Where,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toAttachResp(res))
}

// EmbedDescription 将已有图片地址写入商品描述
// @Summary 写入描述
// @Tags Attach
// @Accept json
// @Produce json
// @Param body body dto.EmbedDescriptionReq true "请求"
// @Success 200 {object} dto.AttachResp
// @Router /api/embed-description [post]
func (c *AttachController) EmbedDescription(ctx *gin.Context) {
	var req dto.EmbedDescriptionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}

	runCtx := context.WithoutCancel(ctx.Request.Context())
	res, err := c.pipeline.EmbedDescription(runCtx, middleware.GetShop(ctx), req.ProductID, req.ImageURL, req.Where, req.Alt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toAttachResp(res))
}

func toAttachResp(res *service.AttachResult) dto.AttachResp {
	return dto.AttachResp{
		OK:          true,
		FileURL:     res.FileURL,
		FileID:      res.FileID,
		MediaID:     res.MediaID,
		Removed:     res.Removed,
		Description: res.Description,
	}
}

// detectMime 客户端声明的类型不可信或缺失时按内容识别
func detectMime(declared string, data []byte) string {
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	detected := mimetype.Detect(data).String()
	return strings.TrimSpace(strings.SplitN(detected, ";", 2)[0])
}
