package net

import (
	"context"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"
)

// AccessTokenHeader 平台离线令牌请求头
const AccessTokenHeader = "X-Shopify-Access-Token"

// BuildAdminRequest 通用 Admin API 请求构建器
// 职责：统一封装鉴权头与 JSON 头，调用方只关心 URL 与 body
func BuildAdminRequest(ctx context.Context, client *resty.Client, accessToken string) *resty.Request {
	return client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(AccessTokenHeader, accessToken)
}

// FormField 表单字段 (保持顺序)
type FormField struct {
	Name  string
	Value string
}

// FilePart 文件字段
type FilePart struct {
	FieldName   string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// BuildMultipartRequest 构建 multipart 上传请求
// 普通字段严格按传入顺序写出，文件字段总是放在最后，不附加鉴权头
func BuildMultipartRequest(ctx context.Context, client *resty.Client, fields []FormField, file FilePart) *resty.Request {
	parts := make([]*resty.MultipartField, 0, len(fields)+1)
	for _, f := range fields {
		parts = append(parts, &resty.MultipartField{
			Param:  f.Name,
			Reader: strings.NewReader(f.Value),
		})
	}
	parts = append(parts, &resty.MultipartField{
		Param:       file.FieldName,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Reader:      file.Reader,
	})
	return client.R().SetContext(ctx).SetMultipartFields(parts...)
}
