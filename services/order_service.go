package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dealer_hub/models"
	"dealer_hub/utils"
)

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	Total         float64 `json:"total" validate:"gt=0"`
	CustomerName  string  `json:"customer_name" validate:"omitempty,max=100"`
	CustomerPhone string  `json:"customer_phone" validate:"omitempty,max=20"`
}

// CreateOrder 为经销商创建待完成订单
func CreateOrder(ctx context.Context, db *gorm.DB, dealerID uint, input CreateOrderInput) Result {
	if res, valid := validationResult(input); !valid {
		return res
	}
	// 金额按分取整后仍须为正
	total := decimal.NewFromFloat(input.Total).Round(2)
	if !total.IsPositive() {
		return Result{Success: false, Kind: KindValidationFailed, Fields: []string{"total"}}
	}
	db = db.WithContext(ctx)

	if _, err := GetDealer(ctx, db, dealerID); err != nil {
		if errors.Is(err, ErrDealerNotFound) {
			return fail(KindDealerNotFound)
		}
		return internalError("查询经销商", err)
	}

	order := models.ShopOrder{
		OrderNo:       utils.GenerateOrderNo(),
		DealerID:      dealerID,
		Total:         total,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
	}
	if err := db.Create(&order).Error; err != nil {
		return internalError("创建订单", err)
	}

	res := ok()
	res.ID = order.ID
	return res
}

// CompleteOrder 将本经销商的订单标记为已完成并已支付
// 已完成的订单直接返回成功，已取消的订单不能完成
func CompleteOrder(ctx context.Context, db *gorm.DB, dealerID, orderID uint) Result {
	db = db.WithContext(ctx)

	var order models.ShopOrder
	if err := db.Where("id = ? AND dealer_id = ?", orderID, dealerID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(KindOrderNotFound)
		}
		return internalError("查询订单", err)
	}

	switch order.Status {
	case models.OrderStatusCompleted:
		res := ok()
		res.ID = order.ID
		return res
	case models.OrderStatusCancelled:
		return fail(KindOrderNotCompleted)
	}

	now := time.Now()
	if err := db.Model(&order).Updates(map[string]interface{}{
		"status":         models.OrderStatusCompleted,
		"payment_status": models.PaymentStatusPaid,
		"completed_at":   now,
	}).Error; err != nil {
		return internalError("完成订单", err)
	}

	res := ok()
	res.ID = order.ID
	return res
}

// GetOrderForDealer 订单属于该经销商或其直属下级时返回
func GetOrderForDealer(ctx context.Context, db *gorm.DB, dealerID, orderID uint) (*models.ShopOrder, error) {
	db = db.WithContext(ctx)

	var order models.ShopOrder
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if order.DealerID == dealerID {
		return &order, nil
	}

	var owner models.Dealer
	if err := db.First(&owner, order.DealerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("查询订单所属经销商失败: %w", err)
	}
	if !owner.IsChildOf(dealerID) {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// ListOrders 分页查询经销商自己的订单
func ListOrders(ctx context.Context, db *gorm.DB, dealerID uint, page, pageSize int) ([]models.ShopOrder, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := db.WithContext(ctx).Model(&models.ShopOrder{}).Where("dealer_id = ?", dealerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计订单失败: %w", err)
	}

	var orders []models.ShopOrder
	if err := query.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("查询订单失败: %w", err)
	}
	return orders, total, nil
}

// normalizePage 默认第1页、每页10条，每页最多100条
func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
