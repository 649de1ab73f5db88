package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyQueryHMAC 校验 OAuth 回调参数签名
// 除 hmac/signature 外的参数按 key 排序后以 k=v&k=v 拼接，HMAC-SHA256 后十六进制比较
func VerifyQueryHMAC(query url.Values, secret string) bool {
	given := query.Get("hmac")
	if given == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(given), []byte(SignQuery(query, secret)))
}

// SignQuery 计算查询参数签名
func SignQuery(query url.Values, secret string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(query[k], ","))
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookHMAC 校验 Webhook 原始请求体签名 (base64)
func VerifyWebhookHMAC(body []byte, header, secret string) bool {
	if header == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(header), []byte(SignWebhook(body, secret)))
}

// SignWebhook 计算 Webhook 签名
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidShopDomain 仅接受 xxx.myshopify.com 形式的店铺域名
func ValidShopDomain(shop string) bool {
	const suffix = ".myshopify.com"
	if !strings.HasSuffix(shop, suffix) {
		return false
	}
	name := strings.TrimSuffix(shop, suffix)
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// EmbeddedHost 生成嵌入式后台使用的 host 参数
func EmbeddedHost(shop string) string {
	return base64.StdEncoding.EncodeToString([]byte(shop + "/admin"))
}
