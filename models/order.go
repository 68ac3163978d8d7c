// Package models 定义了应用程序的数据模型
// 包含所有与数据库表对应的结构体定义和相关方法
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// 支付状态
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// ShopOrder 店铺订单
// 由下单流程维护，佣金计算只读取
type ShopOrder struct {
	ID            uint            `json:"id" gorm:"primaryKey"`                         // 主键ID
	OrderNo       string          `json:"order_no" gorm:"size:64;uniqueIndex"`          // 订单号
	DealerID      uint            `json:"dealer_id" gorm:"index;not null"`              // 所属经销商ID
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(18,2)"`              // 订单金额
	Status        string          `json:"status" gorm:"size:20;default:pending"`        // 状态：pending, completed, cancelled
	PaymentStatus string          `json:"payment_status" gorm:"size:20;default:unpaid"` // 支付状态：unpaid, paid, refunded
	CustomerName  string          `json:"customer_name" gorm:"size:100"`                // 客户姓名
	CustomerPhone string          `json:"customer_phone" gorm:"size:20"`                // 客户电话
	CompletedAt   *time.Time      `json:"completed_at"`                                 // 完成时间
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`             // 创建时间
	UpdatedAt     time.Time       `json:"updated_at" gorm:"autoUpdateTime"`             // 更新时间
}

// TableName 指定模型对应的数据库表名
func (ShopOrder) TableName() string {
	return "shop_orders"
}

// IsCompleted 订单是否已完成
func (o *ShopOrder) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}
