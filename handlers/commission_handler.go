package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"dealer_hub/database"
	"dealer_hub/middleware"
	"dealer_hub/models"
	"dealer_hub/services"
)

// ListCommissionSettings 列出当前经销商与各下级的佣金协议
func ListCommissionSettings(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	items, err := services.ListCommissionSettings(c.UserContext(), database.GetDB(), dealerID)
	if err != nil {
		log.Printf("查询佣金协议列表失败: %v", err)
		return serverError(c, "查询佣金协议失败")
	}

	return c.JSON(fiber.Map{
		"data":  items,
		"total": len(items),
	})
}

// GetCommissionSettings 查询与某个下级的佣金协议
func GetCommissionSettings(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "childId")
	if !ok {
		return invalidID(c, "下级经销商ID")
	}

	commission, err := services.GetCommissionSettings(c.UserContext(), database.GetDB(), dealerID, childID)
	if err != nil {
		if errors.Is(err, services.ErrCommissionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(services.Result{Kind: services.KindCommissionNotFound})
		}
		log.Printf("查询佣金协议失败: %v", err)
		return serverError(c, "查询佣金协议失败")
	}

	return c.JSON(fiber.Map{
		"data": commission,
	})
}

// SaveCommissionSettings 创建或更新与某个下级的佣金协议
func SaveCommissionSettings(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "childId")
	if !ok {
		return invalidID(c, "下级经销商ID")
	}

	var input services.CommissionSettingsInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}

	res := services.CreateOrUpdateCommissionSettings(c.UserContext(), database.GetDB(), dealerID, childID, input)
	return respondResult(c, res, fiber.StatusOK)
}

// DeleteCommissionSettings 删除佣金协议，存在待结算流水时拒绝
func DeleteCommissionSettings(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "childId")
	if !ok {
		return invalidID(c, "下级经销商ID")
	}

	res := services.DeleteCommissionSettings(c.UserContext(), database.GetDB(), dealerID, childID)
	return respondResult(c, res, fiber.StatusOK)
}

// ToggleCommissionSettings 启用或停用佣金协议
// 请求体 {"is_active": bool}，缺省时取反当前状态
func ToggleCommissionSettings(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "childId")
	if !ok {
		return invalidID(c, "下级经销商ID")
	}

	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badBody(c)
		}
	}

	res := services.ToggleCommissionSettings(c.UserContext(), database.GetDB(), dealerID, childID, body.IsActive)
	return respondResult(c, res, fiber.StatusOK)
}

// ProcessPayout 结算某个下级的全部待结算佣金
func ProcessPayout(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "childId")
	if !ok {
		return invalidID(c, "下级经销商ID")
	}

	res := services.ProcessCommissionPayout(c.UserContext(), database.GetDB(), dealerID, childID)
	return respondResult(c, res, fiber.StatusOK)
}

// ListPayouts 结算批次记录，可按 child_dealer_id 过滤
func ListPayouts(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	childID := uint(c.QueryInt("child_dealer_id", 0))

	payouts, err := services.ListPayouts(c.UserContext(), database.GetDB(), dealerID, childID)
	if err != nil {
		log.Printf("查询结算记录失败: %v", err)
		return serverError(c, "查询结算记录失败")
	}

	return c.JSON(fiber.Map{
		"data":  payouts,
		"total": len(payouts),
	})
}

// ListCommissionTransactions 分页查询佣金流水
func ListCommissionTransactions(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	var q models.CommissionTransactionQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "查询参数格式错误",
		})
	}

	records, total, err := services.ListCommissionTransactions(c.UserContext(), database.GetDB(), dealerID, q)
	if err != nil {
		log.Printf("查询佣金流水失败: %v", err)
		return serverError(c, "查询佣金流水失败")
	}

	return c.JSON(fiber.Map{
		"data":  records,
		"total": total,
	})
}

// ExportCommissionTransactions 导出佣金流水为Excel附件
func ExportCommissionTransactions(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	var q models.CommissionTransactionQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "查询参数格式错误",
		})
	}

	buf, err := services.ExportCommissionTransactions(c.UserContext(), database.GetDB(), dealerID, q)
	if err != nil {
		log.Printf("导出佣金流水失败: %v", err)
		return serverError(c, "导出佣金流水失败")
	}

	filename := fmt.Sprintf("commission_transactions_%s.xlsx", time.Now().Format("20060102150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

// GetCommissionStats 当前经销商的佣金汇总
func GetCommissionStats(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	stats, err := services.GetCommissionStats(c.UserContext(), database.GetDB(), dealerID)
	if err != nil {
		log.Printf("查询佣金统计失败: %v", err)
		return serverError(c, "查询佣金统计失败")
	}

	return c.JSON(fiber.Map{
		"data": stats,
	})
}
