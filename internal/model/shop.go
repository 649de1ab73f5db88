package model

import (
	"time"
)

// Token 状态常量
const (
	TokenStatusValid   = "valid"        // 有效
	TokenStatusInvalid = "auth_invalid" // 已吊销，需重新授权
)

// Shop 已安装本应用的店铺 (租户) 及其离线访问凭证
type Shop struct {
	BaseModel
	// ShopDomain 店铺域名，形如 my-store.myshopify.com，租户唯一标识
	ShopDomain string `gorm:"size:255;uniqueIndex;not null" json:"shop_domain"`
	// AccessToken 离线令牌，吊销后置为 NULL
	AccessToken *string    `gorm:"type:text" json:"-"`
	Scope       string     `gorm:"size:512" json:"scope"`
	InstalledAt *time.Time `json:"installed_at"`
	TokenStatus string     `gorm:"size:20;default:'valid';index" json:"token_status"`
	RevokedAt   *time.Time `json:"revoked_at"`
}

func (Shop) TableName() string {
	return "shops"
}

// HasToken 凭证是否可用
func (s *Shop) HasToken() bool {
	return s != nil && s.AccessToken != nil && *s.AccessToken != ""
}

// ShopCredential 缓存/传递用的凭证快照
type ShopCredential struct {
	ShopDomain  string `json:"shop_domain"`
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
