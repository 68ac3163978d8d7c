package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealer_hub/models"
)

// ProcessCommissionPayout 结清某个下级经销商在指定上级下的全部待结算佣金
// 锁协议行、汇总、比较最低结算额、批量更新在同一个事务内完成，
// 只有被汇总的那些流水会变为 PAID
func ProcessCommissionPayout(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint) Result {
	db = db.WithContext(ctx)

	tx := db.Begin()
	if tx.Error != nil {
		return internalError("开始事务", tx.Error)
	}

	var txCommitted bool
	defer func() {
		if !txCommitted {
			tx.Rollback()
		}
	}()

	var commission models.DealerCommission
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("parent_dealer_id = ? AND child_dealer_id = ?", parentDealerID, childDealerID).
		First(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(KindCommissionNotFound)
		}
		return internalError("查询佣金协议", err)
	}

	var pending []models.CommissionTransaction
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("commission_id = ? AND status = ?", commission.ID, models.CommissionStatusPending).
		Order("id").
		Find(&pending).Error
	if err != nil {
		return internalError("查询待结算佣金", err)
	}
	if len(pending) == 0 {
		return fail(KindNoPendingTransactions)
	}

	total := decimal.Zero
	ids := make([]uint, 0, len(pending))
	for _, t := range pending {
		total = total.Add(t.CommissionAmount)
		ids = append(ids, t.ID)
	}

	if total.LessThan(commission.MinimumPayout) {
		return fail(KindBelowMinimumPayout)
	}

	now := time.Now()
	payout := models.CommissionPayout{
		PayoutNo:         uuid.New().String(),
		CommissionID:     commission.ID,
		ParentDealerID:   parentDealerID,
		ChildDealerID:    childDealerID,
		Amount:           total,
		TransactionCount: len(ids),
		PaidAt:           now,
	}
	if err := tx.Create(&payout).Error; err != nil {
		return internalError("创建结算批次", err)
	}

	update := tx.Model(&models.CommissionTransaction{}).
		Where("id IN ? AND status = ?", ids, models.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":    models.CommissionStatusPaid,
			"paid_at":   now,
			"payout_id": payout.ID,
		})
	if update.Error != nil {
		return internalError("更新佣金流水状态", update.Error)
	}
	if update.RowsAffected != int64(len(ids)) {
		return internalError("更新佣金流水状态",
			fmt.Errorf("预期更新 %d 条，实际 %d 条", len(ids), update.RowsAffected))
	}

	if err := tx.Commit().Error; err != nil {
		return internalError("提交事务", err)
	}
	txCommitted = true

	invalidateStats(ctx, parentDealerID)
	log.Printf("佣金结算完成 %s：上级 %d，下级 %d，共 %d 笔，金额 %s",
		payout.PayoutNo, parentDealerID, childDealerID, len(ids), total.StringFixed(2))

	res := okWithAmount(total)
	res.ID = payout.ID
	return res
}

// ListPayouts 查询上级经销商的结算批次，childDealerID 为 0 时不过滤
func ListPayouts(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint) ([]models.CommissionPayout, error) {
	query := db.WithContext(ctx).Where("parent_dealer_id = ?", parentDealerID)
	if childDealerID != 0 {
		query = query.Where("child_dealer_id = ?", childDealerID)
	}

	var payouts []models.CommissionPayout
	if err := query.Order("paid_at DESC, id DESC").Find(&payouts).Error; err != nil {
		return nil, fmt.Errorf("查询结算批次失败: %w", err)
	}
	return payouts, nil
}
