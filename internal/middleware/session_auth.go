package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyShop 已校验的店铺域名
const ContextKeyShop = "shop"

// SessionVerifier 会话令牌校验
type SessionVerifier interface {
	Verify(raw string) (string, error)
}

// ==================== Gin 中间件 ====================

// SessionAuth 校验 Authorization: Bearer <session token>，店铺只从令牌中取
func SessionAuth(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 认证方案名大小写不敏感
		scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		shop, err := v.Verify(token)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextKeyShop, shop)
		c.Next()
	}
}

// GetShop 从上下文获取店铺域名
func GetShop(c *gin.Context) string {
	return c.GetString(ContextKeyShop)
}
