package shopify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind 远程错误分类
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindGeneric    ErrorKind = "generic"
)

// APIError 平台 API 错误
// HTTP 层失败与响应体内的 errors / userErrors 统一归一到这里
type APIError struct {
	Kind     ErrorKind
	Status   int // 无法得知时为 0
	Messages []string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" && e.Status > 0 {
		msg = http.StatusText(e.Status)
	}
	if e.Status > 0 {
		return fmt.Sprintf("shopify api error (status %d): %s", e.Status, msg)
	}
	return "shopify api error: " + msg
}

// IsAuth 是否为授权类错误
func (e *APIError) IsAuth() bool {
	return e.Kind == KindAuth || e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// UserErrorsToAPIError 将 mutation 返回的 userErrors 转为校验错误，列表为空时返回 nil
func UserErrorsToAPIError(errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, ue := range errs {
		if len(ue.Field) > 0 {
			msgs = append(msgs, strings.Join(ue.Field, ".")+": "+ue.Message)
		} else {
			msgs = append(msgs, ue.Message)
		}
	}
	return &APIError{Kind: KindValidation, Messages: msgs}
}

// UploadError 暂存上传被拒绝
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("staged upload failed (status %d): %s", e.Status, e.Body)
}

// newHTTPError 由非 2xx 响应构造错误
func newHTTPError(status int, body []byte) *APIError {
	kind := KindGeneric
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = KindValidation
	}

	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	msgs := []string(nil)
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Errors) > 0 {
		msgs, _ = extractMessages(envelope.Errors)
	}
	if len(msgs) == 0 {
		if s := strings.TrimSpace(truncate(string(body), 300)); s != "" {
			msgs = []string{s}
		}
	}
	return &APIError{Kind: kind, Status: status, Messages: msgs}
}

// extractMessages 解析 errors 字段：字符串 / 数组 / 字段映射三种形态
// 第二个返回值表示是否携带授权类错误码
func extractMessages(raw json.RawMessage) ([]string, bool) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s == "" {
			return nil, false
		}
		return []string{s}, false
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var msgs []string
		auth := false
		for _, item := range list {
			var str string
			if json.Unmarshal(item, &str) == nil {
				msgs = append(msgs, str)
				continue
			}
			var ge graphQLError
			if json.Unmarshal(item, &ge) == nil {
				msgs = append(msgs, ge.Message)
				switch ge.Extensions.Code {
				case "ACCESS_DENIED", "UNAUTHORIZED", "UNAUTHENTICATED":
					auth = true
				}
			}
		}
		return msgs, auth
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var msgs []string
		for _, k := range keys {
			sub, _ := extractMessages(fields[k])
			for _, m := range sub {
				msgs = append(msgs, k+": "+m)
			}
		}
		return msgs, false
	}
	return nil, false
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
