package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	pnet "mockup_embedder_v1_202610/pkg/net"
	"mockup_embedder_v1_202610/pkg/utils"
)

// Config 客户端配置
type Config struct {
	APIVersion string
	Timeout    time.Duration
	ProxyURL   string
	Debug      bool
	// BaseURL 返回店铺 Admin 根地址，默认 https://{shop}
	BaseURL func(shop string) string
}

// Client 平台 Admin API 客户端，无状态，可并发使用
// 不做任何重试，失败原样返回给调用方
type Client struct {
	cfg    Config
	http   *resty.Client
	upload *resty.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-07"
	}
	if cfg.BaseURL == nil {
		cfg.BaseURL = func(shop string) string { return "https://" + shop }
	}
	opts := utils.ClientOptions{Timeout: cfg.Timeout, Debug: cfg.Debug, ProxyURL: cfg.ProxyURL}
	return &Client{
		cfg:    cfg,
		http:   utils.NewHTTPClient(opts),
		upload: utils.NewHTTPClient(opts),
	}
}

// ==================== 通用调用 ====================

// Query 执行 GraphQL 查询/变更，data 解码到 out
// 非 2xx 与响应体内的 errors 都返回 *APIError
func (c *Client) Query(ctx context.Context, shop, token, document string, variables map[string]any, out any) error {
	payload := map[string]any{"query": document}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	resp, err := pnet.BuildAdminRequest(ctx, c.http, token).
		SetBody(payload).
		Post(c.adminURL(shop, "graphql.json"))
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	if !resp.IsSuccess() {
		return newHTTPError(resp.StatusCode(), resp.Body())
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 && string(envelope.Errors) != "null" {
		msgs, auth := extractMessages(envelope.Errors)
		if len(msgs) > 0 {
			kind := KindGeneric
			if auth {
				kind = KindAuth
			}
			return &APIError{Kind: kind, Status: resp.StatusCode(), Messages: msgs}
		}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

// REST 调用 REST 资源接口，path 相对于 /admin/api/{version}/
func (c *Client) REST(ctx context.Context, shop, token, method, path string, body, out any) error {
	req := pnet.BuildAdminRequest(ctx, c.http, token)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, c.adminURL(shop, path))
	if err != nil {
		return fmt.Errorf("rest %s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		return newHTTPError(resp.StatusCode(), resp.Body())
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode rest response: %w", err)
	}
	return nil
}

func (c *Client) adminURL(shop, path string) string {
	return fmt.Sprintf("%s/admin/api/%s/%s", strings.TrimRight(c.cfg.BaseURL(shop), "/"), c.cfg.APIVersion, strings.TrimLeft(path, "/"))
}

// ==================== 暂存上传 ====================

// StagedUploadsCreate 申请一个上传目标
func (c *Client) StagedUploadsCreate(ctx context.Context, shop, token, filename, mimeType, resource string) ([]StagedTarget, error) {
	vars := map[string]any{
		"input": []map[string]any{{
			"filename":   filename,
			"mimeType":   mimeType,
			"resource":   resource,
			"httpMethod": "POST",
		}},
	}
	var data stagedUploadsCreateData
	if err := c.Query(ctx, shop, token, stagedUploadsCreateMutation, vars, &data); err != nil {
		return nil, err
	}
	if err := UserErrorsToAPIError(data.StagedUploadsCreate.UserErrors); err != nil {
		return nil, err
	}
	return data.StagedUploadsCreate.StagedTargets, nil
}

// UploadFile 待上传的二进制内容
type UploadFile struct {
	Filename string
	MimeType string
	Reader   io.Reader
}

// UploadStaged 直传到暂存目标，平台字段按原顺序写入，文件字段放最后
func (c *Client) UploadStaged(ctx context.Context, target StagedTarget, file UploadFile) error {
	fields := make([]pnet.FormField, 0, len(target.Parameters))
	for _, p := range target.Parameters {
		fields = append(fields, pnet.FormField{Name: p.Name, Value: p.Value})
	}
	part := pnet.FilePart{FieldName: "file", FileName: file.Filename, ContentType: file.MimeType, Reader: file.Reader}

	resp, err := pnet.BuildMultipartRequest(ctx, c.upload, fields, part).Post(target.URL)
	if err != nil {
		return fmt.Errorf("staged upload: %w", err)
	}
	if !resp.IsSuccess() {
		return &UploadError{Status: resp.StatusCode(), Body: truncate(resp.String(), 300)}
	}
	return nil
}

// ==================== 文件 ====================

// FileCreate 由暂存资源创建文件，返回平台给出的文件列表
func (c *Client) FileCreate(ctx context.Context, shop, token, resourceURL, contentType, alt string) ([]RemoteFile, error) {
	vars := map[string]any{
		"files": []map[string]any{{
			"originalSource": resourceURL,
			"contentType":    contentType,
			"alt":            alt,
		}},
	}
	var data fileCreateData
	if err := c.Query(ctx, shop, token, fileCreateMutation, vars, &data); err != nil {
		return nil, err
	}
	if err := UserErrorsToAPIError(data.FileCreate.UserErrors); err != nil {
		return nil, err
	}
	return data.FileCreate.Files, nil
}

// GetFile 按 ID 查询文件，只读
func (c *Client) GetFile(ctx context.Context, shop, token, id string) (*RemoteFile, error) {
	var data nodeData
	if err := c.Query(ctx, shop, token, fileNodeQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.Node, nil
}

// ==================== 商品 ====================

// ListProductImages 列出商品现有图片
func (c *Client) ListProductImages(ctx context.Context, shop, token, productID string) ([]ProductImage, error) {
	var out ProductImagesResponse
	path := fmt.Sprintf("products/%s/images.json", NumericID(productID))
	if err := c.REST(ctx, shop, token, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

// DeleteProductImage 删除一张商品图片
func (c *Client) DeleteProductImage(ctx context.Context, shop, token, productID string, imageID int64) error {
	path := fmt.Sprintf("products/%s/images/%d.json", NumericID(productID), imageID)
	return c.REST(ctx, shop, token, http.MethodDelete, path, nil, nil)
}

// CreateProductImage 以外链地址新建商品图片，position 为 0 时追加到末尾
func (c *Client) CreateProductImage(ctx context.Context, shop, token, productID, src string, position int) (*ProductImage, error) {
	image := map[string]any{"src": src}
	if position > 0 {
		image["position"] = position
	}
	var out ProductImageResponse
	path := fmt.Sprintf("products/%s/images.json", NumericID(productID))
	if err := c.REST(ctx, shop, token, http.MethodPost, path, map[string]any{"image": image}, &out); err != nil {
		return nil, err
	}
	return &out.Image, nil
}

// GetProductDescription 读取商品描述 HTML
func (c *Client) GetProductDescription(ctx context.Context, shop, token, productID string) (string, error) {
	var data productDescriptionData
	if err := c.Query(ctx, shop, token, productDescriptionQuery, map[string]any{"id": ProductGID(productID)}, &data); err != nil {
		return "", err
	}
	if data.Product == nil {
		return "", &APIError{Kind: KindValidation, Messages: []string{"product not found: " + productID}}
	}
	return data.Product.DescriptionHTML, nil
}

// UpdateProductDescription 一次性写回描述，userErrors 非空视为失败
func (c *Client) UpdateProductDescription(ctx context.Context, shop, token, productID, html string) error {
	vars := map[string]any{"input": map[string]any{"id": ProductGID(productID), "descriptionHtml": html}}
	var data productUpdateData
	if err := c.Query(ctx, shop, token, productUpdateMutation, vars, &data); err != nil {
		return err
	}
	return UserErrorsToAPIError(data.ProductUpdate.UserErrors)
}

// ==================== 订阅 ====================

// ActiveSubscriptions 查询当前安装的订阅
func (c *Client) ActiveSubscriptions(ctx context.Context, shop, token string) ([]AppSubscription, error) {
	var data activeSubscriptionsData
	if err := c.Query(ctx, shop, token, activeSubscriptionsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.AppInstallation.ActiveSubscriptions, nil
}

// CreateSubscription 创建订阅，返回付款确认地址
func (c *Client) CreateSubscription(ctx context.Context, shop, token string, plan SubscriptionPlan) (string, error) {
	vars := map[string]any{
		"name":      plan.Name,
		"returnUrl": plan.ReturnURL,
		"test":      plan.Test,
		"trialDays": plan.TrialDays,
		"lineItems": []map[string]any{{
			"plan": map[string]any{
				"appRecurringPricingDetails": map[string]any{
					"price":    map[string]any{"amount": plan.Price, "currencyCode": plan.CurrencyCode},
					"interval": plan.Interval,
				},
			},
		}},
	}
	var data subscriptionCreateData
	if err := c.Query(ctx, shop, token, appSubscriptionCreateMutation, vars, &data); err != nil {
		return "", err
	}
	if err := UserErrorsToAPIError(data.AppSubscriptionCreate.UserErrors); err != nil {
		return "", err
	}
	if data.AppSubscriptionCreate.ConfirmationURL == "" {
		return "", &APIError{Kind: KindGeneric, Messages: []string{"appSubscriptionCreate returned no confirmationUrl"}}
	}
	return data.AppSubscriptionCreate.ConfirmationURL, nil
}

// ==================== 店铺 ====================

// ShopName 轻量查询，用于凭证巡检
func (c *Client) ShopName(ctx context.Context, shop, token string) (string, error) {
	var data struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	if err := c.Query(ctx, shop, token, shopNameQuery, nil, &data); err != nil {
		return "", err
	}
	return data.Shop.Name, nil
}

// ==================== OAuth ====================

// ExchangeCode 用授权码换取离线令牌
func (c *Client) ExchangeCode(ctx context.Context, shop, clientID, clientSecret, code string) (*AccessTokenResponse, error) {
	var out AccessTokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(map[string]string{
			"client_id":     clientID,
			"client_secret": clientSecret,
			"code":          code,
		}).
		SetResult(&out).
		Post(strings.TrimRight(c.cfg.BaseURL(shop), "/") + "/admin/oauth/access_token")
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, newHTTPError(resp.StatusCode(), resp.Body())
	}
	if out.AccessToken == "" {
		return nil, &APIError{Kind: KindAuth, Status: resp.StatusCode(), Messages: []string{"no access_token in response"}}
	}
	return &out, nil
}
