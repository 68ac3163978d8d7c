package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealer_hub/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeCommission 订单佣金 = 订单金额 * 订单佣金比例 / 100 + 每单固定佣金，保留两位小数
func ComputeCommission(total, orderRate, fixed decimal.Decimal) decimal.Decimal {
	return total.Mul(orderRate).Div(hundred).Add(fixed).Round(2)
}

// CalculateOrderCommission 为已完成订单向上级经销商计提一条佣金流水
// 协议不存在或已停用时不做任何写入，返回 success=false
// 同一订单只会计提一次，重复调用返回 KindAlreadyRecorded
func CalculateOrderCommission(ctx context.Context, db *gorm.DB, orderID uint) Result {
	db = db.WithContext(ctx)

	var order models.ShopOrder
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(KindOrderNotFound)
		}
		return internalError("查询订单", err)
	}
	if !order.IsCompleted() {
		return fail(KindOrderNotCompleted)
	}

	var dealer models.Dealer
	if err := db.First(&dealer, order.DealerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(KindDealerNotFound)
		}
		return internalError("查询下单经销商", err)
	}

	// 顶级经销商的订单没有上级可分佣
	if dealer.ParentDealerID == nil {
		return fail(KindNoParentDealer)
	}
	parentID := *dealer.ParentDealerID

	// 开始事务，锁住佣金协议行，与结算互斥
	tx := db.Begin()
	if tx.Error != nil {
		return internalError("开始事务", tx.Error)
	}

	var txClosed bool
	defer func() {
		if !txClosed {
			tx.Rollback()
		}
	}()

	var commission models.DealerCommission
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("parent_dealer_id = ? AND child_dealer_id = ?", parentID, dealer.ID).
		First(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(KindCommissionNotFound)
		}
		return internalError("查询佣金协议", err)
	}
	if !commission.IsActive {
		return fail(KindCommissionInactive)
	}

	var existing int64
	if err := tx.Model(&models.CommissionTransaction{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
		return internalError("检查佣金流水", err)
	}
	if existing > 0 {
		return fail(KindAlreadyRecorded)
	}

	amount := ComputeCommission(order.Total, commission.OrderCommissionRate, commission.FixedOrderCommission)
	if !amount.IsPositive() {
		return fail(KindZeroCommission)
	}

	record := models.CommissionTransaction{
		CommissionID:     commission.ID,
		ParentDealerID:   parentID,
		ChildDealerID:    dealer.ID,
		OrderID:          order.ID,
		OrderTotal:       order.Total,
		CommissionAmount: amount,
		CommissionRate:   commission.OrderCommissionRate,
		Status:           models.CommissionStatusPending,
	}
	if err := tx.Create(&record).Error; err != nil {
		// order_id 唯一索引兜底并发重复计提，先释放事务再复查
		tx.Rollback()
		txClosed = true
		if recorded, _ := orderAlreadyRecorded(db, order.ID); recorded {
			return fail(KindAlreadyRecorded)
		}
		return internalError("创建佣金流水", fmt.Errorf("订单(ID:%d): %w", order.ID, err))
	}

	if err := tx.Commit().Error; err != nil {
		return internalError("提交事务", err)
	}
	txClosed = true

	invalidateStats(ctx, parentID)
	log.Printf("订单 %s 计提佣金 %s，上级经销商ID: %d", order.OrderNo, amount.StringFixed(2), parentID)

	res := okWithAmount(amount)
	res.ID = record.ID
	return res
}

func orderAlreadyRecorded(db *gorm.DB, orderID uint) (bool, error) {
	var count int64
	err := db.Model(&models.CommissionTransaction{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}
