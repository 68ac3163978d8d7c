package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dealer_hub/models"
)

// CommissionSettingsInput 佣金协议参数
type CommissionSettingsInput struct {
	OrderCommissionRate   float64  `json:"order_commission_rate" validate:"gte=0,lte=100"`
	ProductCommissionRate float64  `json:"product_commission_rate" validate:"gte=0,lte=100"`
	FixedOrderCommission  float64  `json:"fixed_order_commission" validate:"gte=0"`
	MinimumPayout         *float64 `json:"minimum_payout" validate:"omitempty,gte=0"` // 为空时使用默认值 100
	PayoutFrequency       string   `json:"payout_frequency" validate:"omitempty,oneof=weekly monthly on_demand"`
	IsActive              *bool    `json:"is_active"`
}

func (in CommissionSettingsInput) minimumPayout() decimal.Decimal {
	if in.MinimumPayout == nil {
		return models.DefaultMinimumPayout
	}
	return decimal.NewFromFloat(*in.MinimumPayout).Round(2)
}

func (in CommissionSettingsInput) payoutFrequency() string {
	if in.PayoutFrequency == "" {
		return models.PayoutFrequencyMonthly
	}
	return in.PayoutFrequency
}

// CommissionSettingsItem 协议列表项，附带下级经销商名称和待结算金额
type CommissionSettingsItem struct {
	models.DealerCommission
	ChildDealerName string          `json:"child_dealer_name"`
	ChildDealerSlug string          `json:"child_dealer_slug"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
}

// findDirectChild 查找未删除的直属下级
func findDirectChild(db *gorm.DB, parentDealerID, childDealerID uint) (*models.Dealer, error) {
	var child models.Dealer
	if err := db.First(&child, childDealerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealerNotFound
		}
		return nil, fmt.Errorf("查询下级经销商失败: %w", err)
	}
	if child.IsDeleted() || !child.IsChildOf(parentDealerID) {
		return nil, ErrNotSubDealer
	}
	return &child, nil
}

// childLookupResult 把 findDirectChild 的错误映射成结果
func childLookupResult(err error) Result {
	switch {
	case errors.Is(err, ErrDealerNotFound):
		return fail(KindDealerNotFound)
	case errors.Is(err, ErrNotSubDealer):
		return fail(KindNotSubDealer)
	default:
		return internalError("查询下级经销商", err)
	}
}

// CreateOrUpdateCommissionSettings 按 (上级, 下级) 创建或覆盖佣金协议
func CreateOrUpdateCommissionSettings(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint, input CommissionSettingsInput) Result {
	if res, valid := validationResult(input); !valid {
		return res
	}
	db = db.WithContext(ctx)

	if _, err := findDirectChild(db, parentDealerID, childDealerID); err != nil {
		return childLookupResult(err)
	}

	id, err := upsertCommission(db, parentDealerID, childDealerID, input)
	if err != nil {
		return internalError("保存佣金协议", err)
	}

	invalidateStats(ctx, parentDealerID)
	res := ok()
	res.ID = id
	return res
}

// upsertCommission 以组合键为准创建或更新，可在事务中调用
func upsertCommission(db *gorm.DB, parentDealerID, childDealerID uint, input CommissionSettingsInput) (uint, error) {
	var existing models.DealerCommission
	err := db.Where("parent_dealer_id = ? AND child_dealer_id = ?", parentDealerID, childDealerID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if err == nil {
		updates := map[string]interface{}{
			"order_commission_rate":   decimal.NewFromFloat(input.OrderCommissionRate).Round(2),
			"product_commission_rate": decimal.NewFromFloat(input.ProductCommissionRate).Round(2),
			"fixed_order_commission":  decimal.NewFromFloat(input.FixedOrderCommission).Round(2),
			"minimum_payout":          input.minimumPayout(),
			"payout_frequency":        input.payoutFrequency(),
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	commission := models.DealerCommission{
		ParentDealerID:        parentDealerID,
		ChildDealerID:         childDealerID,
		OrderCommissionRate:   decimal.NewFromFloat(input.OrderCommissionRate).Round(2),
		ProductCommissionRate: decimal.NewFromFloat(input.ProductCommissionRate).Round(2),
		FixedOrderCommission:  decimal.NewFromFloat(input.FixedOrderCommission).Round(2),
		MinimumPayout:         input.minimumPayout(),
		PayoutFrequency:       input.payoutFrequency(),
		IsActive:              isActive,
	}
	if err := db.Create(&commission).Error; err != nil {
		return 0, err
	}
	return commission.ID, nil
}

// DeleteCommissionSettings 删除佣金协议，存在待结算流水时拒绝
func DeleteCommissionSettings(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint) Result {
	db = db.WithContext(ctx)

	commission, err := GetCommissionSettings(ctx, db, parentDealerID, childDealerID)
	if err != nil {
		if errors.Is(err, ErrCommissionNotFound) {
			return fail(KindCommissionNotFound)
		}
		return internalError("查询佣金协议", err)
	}

	var pending int64
	if err := db.Model(&models.CommissionTransaction{}).
		Where("commission_id = ? AND status = ?", commission.ID, models.CommissionStatusPending).
		Count(&pending).Error; err != nil {
		return internalError("统计待结算佣金", err)
	}
	if pending > 0 {
		return fail(KindHasPendingTransactions)
	}

	// 仅当此刻仍无待结算流水时删除
	del := db.Where("id = ?", commission.ID).
		Where("NOT EXISTS (?)", db.Model(&models.CommissionTransaction{}).
			Select("1").
			Where("commission_id = ? AND status = ?", commission.ID, models.CommissionStatusPending)).
		Delete(&models.DealerCommission{})
	if del.Error != nil {
		return internalError("删除佣金协议", del.Error)
	}
	if del.RowsAffected == 0 {
		return fail(KindHasPendingTransactions)
	}

	invalidateStats(ctx, parentDealerID)
	return ok()
}

// ToggleCommissionSettings 启用或停用佣金协议，历史流水不受影响
// active 为 nil 时在一条语句内取反当前状态
func ToggleCommissionSettings(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint, active *bool) Result {
	db = db.WithContext(ctx)

	commission, err := GetCommissionSettings(ctx, db, parentDealerID, childDealerID)
	if err != nil {
		if errors.Is(err, ErrCommissionNotFound) {
			return fail(KindCommissionNotFound)
		}
		return internalError("查询佣金协议", err)
	}

	value := interface{}(gorm.Expr("NOT is_active"))
	if active != nil {
		value = *active
	}
	if err := db.Model(&models.DealerCommission{}).Where("id = ?", commission.ID).
		Update("is_active", value).Error; err != nil {
		return internalError("更新佣金协议状态", err)
	}

	invalidateStats(ctx, parentDealerID)
	res := ok()
	res.ID = commission.ID
	return res
}

// GetCommissionSettings 查询单个佣金协议
func GetCommissionSettings(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint) (*models.DealerCommission, error) {
	var commission models.DealerCommission
	err := db.WithContext(ctx).
		Where("parent_dealer_id = ? AND child_dealer_id = ?", parentDealerID, childDealerID).
		First(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommissionNotFound
		}
		return nil, fmt.Errorf("查询佣金协议失败: %w", err)
	}
	return &commission, nil
}

// ListCommissionSettings 列出上级经销商的全部佣金协议
func ListCommissionSettings(ctx context.Context, db *gorm.DB, parentDealerID uint) ([]CommissionSettingsItem, error) {
	db = db.WithContext(ctx)

	var commissions []models.DealerCommission
	if err := db.Where("parent_dealer_id = ?", parentDealerID).Order("id").Find(&commissions).Error; err != nil {
		return nil, fmt.Errorf("查询佣金协议失败: %w", err)
	}
	if len(commissions) == 0 {
		return []CommissionSettingsItem{}, nil
	}

	childIDs := make([]uint, 0, len(commissions))
	commissionIDs := make([]uint, 0, len(commissions))
	for _, c := range commissions {
		childIDs = append(childIDs, c.ChildDealerID)
		commissionIDs = append(commissionIDs, c.ID)
	}

	var children []models.Dealer
	if err := db.Where("id IN ?", childIDs).Find(&children).Error; err != nil {
		return nil, fmt.Errorf("查询下级经销商失败: %w", err)
	}
	childByID := make(map[uint]models.Dealer, len(children))
	for _, d := range children {
		childByID[d.ID] = d
	}

	var pendingRows []struct {
		CommissionID uint
		Amount       decimal.Decimal
	}
	if err := db.Model(&models.CommissionTransaction{}).
		Select("commission_id, COALESCE(SUM(commission_amount), 0) AS amount").
		Where("commission_id IN ? AND status = ?", commissionIDs, models.CommissionStatusPending).
		Group("commission_id").
		Scan(&pendingRows).Error; err != nil {
		return nil, fmt.Errorf("汇总待结算佣金失败: %w", err)
	}
	pendingByID := make(map[uint]decimal.Decimal, len(pendingRows))
	for _, r := range pendingRows {
		pendingByID[r.CommissionID] = r.Amount
	}

	items := make([]CommissionSettingsItem, 0, len(commissions))
	for _, c := range commissions {
		child := childByID[c.ChildDealerID]
		pending, found := pendingByID[c.ID]
		if !found {
			pending = decimal.Zero
		}
		items = append(items, CommissionSettingsItem{
			DealerCommission: c,
			ChildDealerName:  child.Name,
			ChildDealerSlug:  child.Slug,
			PendingAmount:    pending,
		})
	}
	return items, nil
}
