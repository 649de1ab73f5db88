package apperr

import (
	"errors"
	"fmt"
)

// ==================== 错误分类 ====================

// 业务错误哨兵值，调用方通过 errors.Is 判断
var (
	// ErrUnauthenticated 会话令牌缺失/格式错误/过期/签名无效
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTenantNotInstalled 店铺未安装或凭证已被清空，按授权失败处理
	ErrTenantNotInstalled = errors.New("tenant not installed")

	// ErrValidation 请求缺少必填字段，无副作用
	ErrValidation = errors.New("validation failed")

	// ErrNoUploadTarget 平台未返回可用的暂存上传目标
	ErrNoUploadTarget = errors.New("no upload target")

	// ErrUploadRejected 暂存上传被目标地址拒绝 (非 2xx)
	ErrUploadRejected = errors.New("upload rejected")

	// ErrFileCreateFailed 平台未返回文件对象
	ErrFileCreateFailed = errors.New("file create failed")

	// ErrContentURLTimeout 轮询次数用尽仍未拿到文件地址
	ErrContentURLTimeout = errors.New("content url timeout")
)

// Validation 构造带说明的参数错误
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// TenantNotInstalled 构造带店铺标识的未安装错误
func TenantNotInstalled(shop string) error {
	return fmt.Errorf("%w: %s", ErrTenantNotInstalled, shop)
}
