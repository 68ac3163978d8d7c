package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 结算周期
const (
	PayoutFrequencyWeekly   = "weekly"
	PayoutFrequencyMonthly  = "monthly"
	PayoutFrequencyOnDemand = "on_demand"
)

// 佣金流水状态，只允许 PENDING -> PAID
const (
	CommissionStatusPending = "PENDING"
	CommissionStatusPaid    = "PAID"
)

// DefaultMinimumPayout 默认最低结算金额
var DefaultMinimumPayout = decimal.NewFromInt(100)

// DealerCommission 上下级经销商之间的佣金协议
// (parent_dealer_id, child_dealer_id) 唯一
type DealerCommission struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`                                             // 主键ID
	ParentDealerID        uint            `json:"parent_dealer_id" gorm:"uniqueIndex:idx_commission_pair;not null"` // 上级经销商ID
	ChildDealerID         uint            `json:"child_dealer_id" gorm:"uniqueIndex:idx_commission_pair;not null"`  // 下级经销商ID
	OrderCommissionRate   decimal.Decimal `json:"order_commission_rate" gorm:"type:decimal(5,2);default:0"`         // 订单佣金比例（百分比）
	ProductCommissionRate decimal.Decimal `json:"product_commission_rate" gorm:"type:decimal(5,2);default:0"`       // 商品佣金比例（百分比），仅保存
	FixedOrderCommission  decimal.Decimal `json:"fixed_order_commission" gorm:"type:decimal(18,2);default:0"`       // 每单固定佣金
	MinimumPayout         decimal.Decimal `json:"minimum_payout" gorm:"type:decimal(18,2);default:100"`             // 最低结算金额
	PayoutFrequency       string          `json:"payout_frequency" gorm:"size:20;default:monthly"`                  // 结算周期：weekly, monthly, on_demand
	IsActive              bool            `json:"is_active"`                                                        // 是否启用
	CreatedAt             time.Time       `json:"created_at" gorm:"autoCreateTime"`                                 // 创建时间
	UpdatedAt             time.Time       `json:"updated_at" gorm:"autoUpdateTime"`                                 // 更新时间
}

// TableName 返回表名
func (DealerCommission) TableName() string {
	return "dealer_commissions"
}

// CommissionTransaction 佣金流水
// 每个订单最多一条，order_id 唯一索引防止重复计提
type CommissionTransaction struct {
	ID               uint            `json:"id" gorm:"primaryKey"`                        // 主键ID
	CommissionID     uint            `json:"commission_id" gorm:"index;not null"`         // 佣金协议ID
	ParentDealerID   uint            `json:"parent_dealer_id" gorm:"index"`               // 上级经销商ID（冗余，便于查询）
	ChildDealerID    uint            `json:"child_dealer_id" gorm:"index"`                // 下级经销商ID（冗余，便于查询）
	OrderID          uint            `json:"order_id" gorm:"uniqueIndex;not null"`        // 订单ID
	OrderTotal       decimal.Decimal `json:"order_total" gorm:"type:decimal(18,2)"`       // 订单金额
	CommissionAmount decimal.Decimal `json:"commission_amount" gorm:"type:decimal(18,2)"` // 佣金金额
	CommissionRate   decimal.Decimal `json:"commission_rate" gorm:"type:decimal(5,2)"`    // 计提时的佣金比例
	Status           string          `json:"status" gorm:"size:20;index;default:PENDING"` // 状态：PENDING待结算, PAID已结算
	PayoutID         *uint           `json:"payout_id" gorm:"index"`                      // 结算批次ID
	PaidAt           *time.Time      `json:"paid_at"`                                     // 结算时间
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`            // 创建时间
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`            // 更新时间
}

// TableName 返回表名
func (CommissionTransaction) TableName() string {
	return "commission_transactions"
}

// CommissionPayout 佣金结算批次
// 一次成功结算生成一条，记录本次结清的流水数量和金额
type CommissionPayout struct {
	ID               uint            `json:"id" gorm:"primaryKey"`                 // 主键ID
	PayoutNo         string          `json:"payout_no" gorm:"size:64;uniqueIndex"` // 结算单号
	CommissionID     uint            `json:"commission_id" gorm:"index"`           // 佣金协议ID
	ParentDealerID   uint            `json:"parent_dealer_id" gorm:"index"`        // 上级经销商ID
	ChildDealerID    uint            `json:"child_dealer_id" gorm:"index"`         // 下级经销商ID
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(18,2)"`     // 结算金额
	TransactionCount int             `json:"transaction_count"`                    // 结清的流水数量
	PaidAt           time.Time       `json:"paid_at"`                              // 结算时间
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`     // 创建时间
}

// TableName 返回表名
func (CommissionPayout) TableName() string {
	return "commission_payouts"
}

// CommissionTransactionQuery 佣金流水查询参数
type CommissionTransactionQuery struct {
	ChildDealerID uint   `json:"child_dealer_id" query:"child_dealer_id"` // 下级经销商ID
	Status        string `json:"status" query:"status"`                   // 状态
	Page          int    `json:"page" query:"page"`                       // 页码
	PageSize      int    `json:"page_size" query:"page_size"`             // 每页数量
}
