package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientOptions HTTP 客户端参数
type ClientOptions struct {
	Timeout   time.Duration
	Debug     bool
	UserAgent string
	ProxyURL  string
}

// NewHTTPClient 创建配置好超时、代理与调试模式的 Resty 客户端
// 不开启重试：远程调用失败直接返回给调用方
func NewHTTPClient(opts ClientOptions) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mockup-Embedder/1.0"
	}
	client := resty.New().
		SetDebug(opts.Debug).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)

	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}
	return client
}
