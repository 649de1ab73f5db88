package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ==================== 店铺维度限流 ====================

// ShopRateLimiter 每个店铺一个令牌桶
type ShopRateLimiter struct {
	limiters sync.Map // shop -> *rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewShopRateLimiter rps 为每秒补充的令牌数
func NewShopRateLimiter(rps float64, burst int) *ShopRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ShopRateLimiter{limit: rate.Limit(rps), burst: burst}
}

// Allow 是否放行
func (l *ShopRateLimiter) Allow(shop string) bool {
	v, _ := l.limiters.LoadOrStore(shop, rate.NewLimiter(l.limit, l.burst))
	return v.(*rate.Limiter).Allow()
}

// Middleware 需挂在 SessionAuth 之后
func (l *ShopRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}
		if !l.Allow(GetShop(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please retry shortly"})
			return
		}
		c.Next()
	}
}
