package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/pkg/shopify"
)

// ==================== 状态机定义 ====================

// Stage 附件流水线状态
type Stage string

const (
	StageStaging       Stage = "STAGING"
	StageUploading     Stage = "UPLOADING"
	StageMaterializing Stage = "MATERIALIZING"
	StageResolving     Stage = "RESOLVING"
	StageAttaching     Stage = "ATTACHING"
	StageDone          Stage = "DONE"
	StageFailed        Stage = "FAILED"
)

// AttachMode 挂载方式
type AttachMode string

const (
	ModeMedia       AttachMode = "media"
	ModeDescription AttachMode = "description"
)

// 位置参数
const (
	PositionFirst = "first"
	PositionLast  = "last"
	WhereTop      = "top"
	WhereBottom   = "bottom"
)

// PipelineError 流水线失败，记录出错的阶段
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", strings.ToLower(string(e.Stage)), e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Clock 轮询等待使用的时钟，测试中可替换
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// AttachAPI 流水线需要的远程能力
type AttachAPI interface {
	StagedUploadsCreate(ctx context.Context, shop, token, filename, mimeType, resource string) ([]shopify.StagedTarget, error)
	UploadStaged(ctx context.Context, target shopify.StagedTarget, file shopify.UploadFile) error
	FileCreate(ctx context.Context, shop, token, resourceURL, contentType, alt string) ([]shopify.RemoteFile, error)
	GetFile(ctx context.Context, shop, token, id string) (*shopify.RemoteFile, error)
	ListProductImages(ctx context.Context, shop, token, productID string) ([]shopify.ProductImage, error)
	DeleteProductImage(ctx context.Context, shop, token, productID string, imageID int64) error
	CreateProductImage(ctx context.Context, shop, token, productID, src string, position int) (*shopify.ProductImage, error)
	GetProductDescription(ctx context.Context, shop, token, productID string) (string, error)
	UpdateProductDescription(ctx context.Context, shop, token, productID, html string) error
}

// AttachRequest 一次上传挂载请求
type AttachRequest struct {
	ProductID  string
	Filename   string
	MimeType   string
	Content    io.Reader
	Alt        string
	Mode       AttachMode
	Position   string // first | last，仅 media 模式
	ReplaceAll bool   // 仅 media 模式
	Where      string // top | bottom，仅 description 模式
}

// AttachResult 挂载结果
type AttachResult struct {
	FileURL     string `json:"fileUrl"`
	FileID      string `json:"fileId,omitempty"`
	MediaID     int64  `json:"mediaId,omitempty"`
	Removed     int    `json:"removed,omitempty"`
	Description string `json:"description,omitempty"`
}

// PipelineOptions 轮询参数
type PipelineOptions struct {
	PollInterval time.Duration
	PollAttempts int
	Clock        Clock
}

// AttachmentPipeline 上传 -> 建文件 -> 等地址 -> 挂到商品
// 不保存跨调用状态，每次调用都从 STAGING 开始
type AttachmentPipeline struct {
	api     AttachAPI
	store   credentialGetter
	authErr *AuthFailureHandler
	opts    PipelineOptions
	log     *zap.Logger
}

// NewAttachmentPipeline 创建流水线
func NewAttachmentPipeline(api AttachAPI, store credentialGetter, authErr *AuthFailureHandler, opts PipelineOptions, log *zap.Logger) *AttachmentPipeline {
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 8
	}
	if opts.PollInterval < 0 {
		opts.PollInterval = 0
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AttachmentPipeline{api: api, store: store, authErr: authErr, opts: opts, log: log.Named("pipeline")}
}

// attachRun 单次调用的中间结果
type attachRun struct {
	shop   string
	token  string
	req    AttachRequest
	target shopify.StagedTarget
	result AttachResult
}

// ==================== 入口 ====================

// Run 执行完整流水线
func (p *AttachmentPipeline) Run(ctx context.Context, shop string, req AttachRequest) (*AttachResult, error) {
	if err := validateAttach(&req); err != nil {
		return nil, err
	}
	return p.execute(ctx, shop, req, StageStaging, AttachResult{})
}

// EmbedDescription 已有图片地址时直接写入描述，跳过上传阶段
func (p *AttachmentPipeline) EmbedDescription(ctx context.Context, shop, productID, imageURL, where, alt string) (*AttachResult, error) {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(imageURL) == "" {
		return nil, apperr.Validation("productId and imageUrl are required")
	}
	where, err := normalizeWhere(where)
	if err != nil {
		return nil, err
	}
	req := AttachRequest{ProductID: productID, Mode: ModeDescription, Where: where, Alt: alt}
	return p.execute(ctx, shop, req, StageAttaching, AttachResult{FileURL: imageURL})
}

func (p *AttachmentPipeline) execute(ctx context.Context, shop string, req AttachRequest, start Stage, seed AttachResult) (*AttachResult, error) {
	cred, err := p.store.GetCredential(ctx, shop)
	if err != nil {
		p.log.Warn("取凭证失败", zap.String("shop", shop), zap.Error(err))
		return nil, p.authErr.Handle(ctx, shop, "", err)
	}

	run := &attachRun{shop: shop, token: cred.AccessToken, req: req, result: seed}
	stage := start
	for stage != StageDone {
		next, err := p.step(ctx, run, stage)
		if err != nil {
			perr := &PipelineError{Stage: stage, Err: err}
			p.log.Error("附件流水线失败",
				zap.String("shop", shop),
				zap.String("stage", string(stage)),
				zap.String("product_id", req.ProductID),
				zap.Error(err),
			)
			return nil, p.authErr.Handle(ctx, shop, run.token, perr)
		}
		p.log.Debug("stage done", zap.String("shop", shop), zap.String("stage", string(stage)), zap.String("next", string(next)))
		stage = next
	}
	return &run.result, nil
}

func (p *AttachmentPipeline) step(ctx context.Context, run *attachRun, stage Stage) (Stage, error) {
	switch stage {
	case StageStaging:
		return p.stage(ctx, run)
	case StageUploading:
		return p.upload(ctx, run)
	case StageMaterializing:
		return p.materialize(ctx, run)
	case StageResolving:
		return p.resolve(ctx, run)
	case StageAttaching:
		return p.attach(ctx, run)
	default:
		return StageFailed, fmt.Errorf("unexpected stage %s", stage)
	}
}

// ==================== 各阶段 ====================

// stage 申请一次性上传目标
func (p *AttachmentPipeline) stage(ctx context.Context, run *attachRun) (Stage, error) {
	targets, err := p.api.StagedUploadsCreate(ctx, run.shop, run.token, run.req.Filename, run.req.MimeType, resourceFor(run.req.MimeType))
	if err != nil {
		return StageFailed, err
	}
	if len(targets) == 0 || targets[0].URL == "" || targets[0].ResourceURL == "" {
		return StageFailed, apperr.ErrNoUploadTarget
	}
	run.target = targets[0]
	return StageUploading, nil
}

// upload 直传文件，目标只能用一次，失败不重试
func (p *AttachmentPipeline) upload(ctx context.Context, run *attachRun) (Stage, error) {
	err := p.api.UploadStaged(ctx, run.target, shopify.UploadFile{
		Filename: run.req.Filename,
		MimeType: run.req.MimeType,
		Reader:   run.req.Content,
	})
	if err != nil {
		return StageFailed, fmt.Errorf("%w: %v", apperr.ErrUploadRejected, err)
	}
	return StageMaterializing, nil
}

// materialize 由暂存资源创建文件，地址可能立即可用也可能需要轮询
func (p *AttachmentPipeline) materialize(ctx context.Context, run *attachRun) (Stage, error) {
	files, err := p.api.FileCreate(ctx, run.shop, run.token, run.target.ResourceURL, resourceFor(run.req.MimeType), run.req.Alt)
	if err != nil {
		return StageFailed, err
	}
	if len(files) == 0 || files[0].ID == "" {
		return StageFailed, apperr.ErrFileCreateFailed
	}
	file := files[0]
	if file.FileStatus == shopify.FileStatusFailed {
		return StageFailed, fmt.Errorf("%w: file %s processing failed", apperr.ErrFileCreateFailed, file.ID)
	}

	run.result.FileID = file.ID
	if u := file.ContentURL(); u != "" {
		run.result.FileURL = u
		return StageAttaching, nil
	}
	return StageResolving, nil
}

// resolve 有界轮询文件地址，每次等待后查询一次
func (p *AttachmentPipeline) resolve(ctx context.Context, run *attachRun) (Stage, error) {
	for attempt := 1; attempt <= p.opts.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return StageFailed, ctx.Err()
		case <-p.opts.Clock.After(p.opts.PollInterval):
		}

		file, err := p.api.GetFile(ctx, run.shop, run.token, run.result.FileID)
		if err != nil {
			return StageFailed, err
		}
		if file != nil && file.FileStatus == shopify.FileStatusFailed {
			return StageFailed, fmt.Errorf("%w: file %s processing failed", apperr.ErrFileCreateFailed, run.result.FileID)
		}
		if u := file.ContentURL(); u != "" {
			run.result.FileURL = u
			return StageAttaching, nil
		}
	}
	return StageFailed, fmt.Errorf("%w: file %s not ready after %d polls", apperr.ErrContentURLTimeout, run.result.FileID, p.opts.PollAttempts)
}

// attach 按模式挂到商品
func (p *AttachmentPipeline) attach(ctx context.Context, run *attachRun) (Stage, error) {
	var err error
	if run.req.Mode == ModeDescription {
		err = p.embedInDescription(ctx, run)
	} else {
		err = p.attachMedia(ctx, run)
	}
	if err != nil {
		return StageFailed, err
	}
	return StageDone, nil
}

// attachMedia 可选清空图库后新增一张图片
// 清空过程中途失败不回滚，已删除数量随错误返回
func (p *AttachmentPipeline) attachMedia(ctx context.Context, run *attachRun) error {
	if run.req.ReplaceAll {
		images, err := p.api.ListProductImages(ctx, run.shop, run.token, run.req.ProductID)
		if err != nil {
			return err
		}
		for i, img := range images {
			if err := p.api.DeleteProductImage(ctx, run.shop, run.token, run.req.ProductID, img.ID); err != nil {
				return fmt.Errorf("delete image %d (%d of %d removed): %w", img.ID, i, len(images), err)
			}
			run.result.Removed++
		}
	}

	position := 0
	if run.req.Position == PositionFirst {
		position = 1
	}
	img, err := p.api.CreateProductImage(ctx, run.shop, run.token, run.req.ProductID, run.result.FileURL, position)
	if err != nil {
		return err
	}
	run.result.MediaID = img.ID
	return nil
}

// embedInDescription 读描述 -> 拼接图片标签 -> 一次写回
// 不做去重，重复调用会累积多张图片
func (p *AttachmentPipeline) embedInDescription(ctx context.Context, run *attachRun) error {
	current, err := p.api.GetProductDescription(ctx, run.shop, run.token, run.req.ProductID)
	if err != nil {
		return err
	}
	updated := EmbedImage(current, ImageTag(run.result.FileURL, run.req.Alt), run.req.Where)
	if err := p.api.UpdateProductDescription(ctx, run.shop, run.token, run.req.ProductID, updated); err != nil {
		return err
	}
	run.result.Description = updated
	return nil
}

// ==================== 辅助函数 ====================

// ImageTag 生成图片标签
func ImageTag(src, alt string) string {
	return fmt.Sprintf(`<img src="%s" alt="%s" />`, html.EscapeString(src), html.EscapeString(alt))
}

// EmbedImage top 放在最前，其余放在最后，原内容原样保留
func EmbedImage(description, tag, where string) string {
	if where == WhereTop {
		return tag + description
	}
	return description + tag
}

// resourceFor 图片走 IMAGE，其余走 FILE
func resourceFor(mimeType string) string {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return "IMAGE"
	}
	return "FILE"
}

func validateAttach(req *AttachRequest) error {
	if strings.TrimSpace(req.ProductID) == "" {
		return apperr.Validation("productId is required")
	}
	if req.Content == nil {
		return apperr.Validation("file is required")
	}
	if req.Filename == "" {
		req.Filename = "upload"
	}
	if req.MimeType == "" {
		req.MimeType = "application/octet-stream"
	}

	switch req.Mode {
	case "", ModeMedia:
		req.Mode = ModeMedia
		switch req.Position {
		case "", PositionLast:
			req.Position = PositionLast
		case PositionFirst:
		default:
			return apperr.Validation("position must be first or last")
		}
	case ModeDescription:
		where, err := normalizeWhere(req.Where)
		if err != nil {
			return err
		}
		req.Where = where
	default:
		return apperr.Validation("mode must be media or description")
	}
	return nil
}

// normalizeWhere 未指定位置时默认插到描述顶部
func normalizeWhere(where string) (string, error) {
	switch where {
	case "", WhereTop:
		return WhereTop, nil
	case WhereBottom:
		return WhereBottom, nil
	}
	return "", apperr.Validation("where must be top or bottom")
}

// FailedStage 取出失败阶段，非流水线错误返回空串
func FailedStage(err error) Stage {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Stage
	}
	return ""
}
