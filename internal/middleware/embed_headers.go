package middleware

import (
	"github.com/gin-gonic/gin"

	"mockup_embedder_v1_202610/pkg/shopify"
)

// EmbedHeaders 允许应用被嵌入商家后台
// 已知店铺时只放行该店铺，否则放行所有 myshopify 子域
func EmbedHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		ancestors := "https://admin.shopify.com https://*.myshopify.com"
		if shop := c.Query("shop"); shopify.ValidShopDomain(shop) {
			ancestors = "https://admin.shopify.com https://" + shop
		}
		c.Header("Content-Security-Policy", "frame-ancestors "+ancestors+";")
		c.Next()
	}
}
