package model

import (
	"time"
)

// BaseModel 主键与时间戳
// 租户行按 shop_domain 唯一且重装时原地覆盖，不做软删除
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
