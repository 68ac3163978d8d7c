package models

import (
	"time"
)

// DealerToken 经销商登录令牌
// 每个登录设备对应一条记录，登出或刷新时删除
type DealerToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`             // 主键ID
	DealerID  uint      `json:"dealer_id" gorm:"index"`           // 关联的经销商ID
	Token     string    `json:"token" gorm:"size:500;index"`      // JWT令牌字符串
	UserAgent string    `json:"user_agent" gorm:"size:255"`       // 登录设备的用户代理
	IP        string    `json:"ip" gorm:"size:50"`                // 登录IP
	ExpiredAt time.Time `json:"expired_at" gorm:"index"`          // 过期时间
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"` // 创建时间
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"` // 更新时间
}

// TableName 返回表名
func (DealerToken) TableName() string {
	return "dealer_tokens"
}
