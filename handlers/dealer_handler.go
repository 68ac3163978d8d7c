package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"dealer_hub/database"
	"dealer_hub/middleware"
	"dealer_hub/services"
)

// RegisterDealer 注册顶级经销商，无需登录
func RegisterDealer(c *fiber.Ctx) error {
	var input services.RegisterDealerInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}

	res := services.RegisterRootDealer(c.UserContext(), database.GetDB(), input)
	return respondResult(c, res, fiber.StatusCreated)
}

// GetHierarchy 当前经销商的上级和直属下级
func GetHierarchy(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	hierarchy, err := services.GetDealerHierarchy(c.UserContext(), database.GetDB(), dealerID)
	if err != nil {
		if errors.Is(err, services.ErrDealerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "经销商不存在",
			})
		}
		log.Printf("查询经销商层级失败: %v", err)
		return serverError(c, "查询经销商层级失败")
	}

	return c.JSON(fiber.Map{
		"data": hierarchy,
	})
}

// ListSubDealers 列出直属下级经销商
func ListSubDealers(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	children, err := services.ListSubDealers(c.UserContext(), database.GetDB(), dealerID)
	if err != nil {
		log.Printf("查询下级经销商失败: %v", err)
		return serverError(c, "查询下级经销商失败")
	}

	return c.JSON(fiber.Map{
		"data":  children,
		"total": len(children),
	})
}

// CreateSubDealer 在当前经销商下创建下级，可同时建立佣金协议
func CreateSubDealer(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	var input services.CreateSubDealerInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}

	res := services.CreateSubDealer(c.UserContext(), database.GetDB(), dealerID, input)
	return respondResult(c, res, fiber.StatusCreated)
}

// UpdateSubDealer 更新直属下级的资料和开关
func UpdateSubDealer(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "经销商ID")
	}

	var input services.UpdateSubDealerInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}

	res := services.UpdateSubDealer(c.UserContext(), database.GetDB(), dealerID, childID, input)
	return respondResult(c, res, fiber.StatusOK)
}

// DeleteSubDealer 删除直属下级，有下级或订单时拒绝
func DeleteSubDealer(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	childID, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "经销商ID")
	}

	res := services.DeleteSubDealer(c.UserContext(), database.GetDB(), dealerID, childID)
	return respondResult(c, res, fiber.StatusOK)
}
