package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"dealer_hub/database"
	"dealer_hub/middleware"
	"dealer_hub/services"
)

// CreateOrder 为当前经销商创建订单
func CreateOrder(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	var input services.CreateOrderInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}

	res := services.CreateOrder(c.UserContext(), database.GetDB(), dealerID, input)
	return respondResult(c, res, fiber.StatusCreated)
}

// ListOrders 分页查询当前经销商的订单
func ListOrders(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	orders, total, err := services.ListOrders(c.UserContext(), database.GetDB(), dealerID, c.QueryInt("page", 1), c.QueryInt("page_size", 10))
	if err != nil {
		log.Printf("查询订单失败: %v", err)
		return serverError(c, "查询订单失败")
	}

	return c.JSON(fiber.Map{
		"data":  orders,
		"total": total,
	})
}

// CompleteOrder 订单完成并付款，随后为上级计提佣金
// 计提结果放在 commission 字段，计提失败不影响订单完成
func CompleteOrder(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "订单ID")
	}

	ctx := c.UserContext()
	db := database.GetDB()

	res := services.CompleteOrder(ctx, db, dealerID, orderID)
	if !res.Success {
		return respondResult(c, res, fiber.StatusOK)
	}

	commission := services.CalculateOrderCommission(ctx, db, orderID)

	return c.JSON(fiber.Map{
		"success":      true,
		"message_kind": res.Kind,
		"id":           orderID,
		"commission":   commission,
	})
}

// RecalculateOrderCommission 重新触发订单佣金计提，已计提的订单返回 already_recorded
func RecalculateOrderCommission(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "订单ID")
	}

	ctx := c.UserContext()
	db := database.GetDB()

	// 订单须属于自己或直属下级
	if _, err := services.GetOrderForDealer(ctx, db, dealerID, orderID); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return respondResult(c, services.Result{Kind: services.KindOrderNotFound}, fiber.StatusOK)
		}
		log.Printf("查询订单失败: %v", err)
		return serverError(c, "查询订单失败")
	}

	res := services.CalculateOrderCommission(ctx, db, orderID)
	return respondResult(c, res, fiber.StatusOK)
}
