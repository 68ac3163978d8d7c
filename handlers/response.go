package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"dealer_hub/services"
)

// kindStatus 业务结果类型对应的HTTP状态码，未列出的按 422 处理
var kindStatus = map[services.MessageKind]int{
	services.KindOK:                     fiber.StatusOK,
	services.KindValidationFailed:       fiber.StatusBadRequest,
	services.KindDealerNotFound:         fiber.StatusNotFound,
	services.KindOrderNotFound:          fiber.StatusNotFound,
	services.KindCommissionNotFound:     fiber.StatusNotFound,
	services.KindNotSubDealer:           fiber.StatusForbidden,
	services.KindSlugTaken:              fiber.StatusConflict,
	services.KindUsernameTaken:          fiber.StatusConflict,
	services.KindHasSubDealers:          fiber.StatusConflict,
	services.KindHasOrders:              fiber.StatusConflict,
	services.KindHasPendingTransactions: fiber.StatusConflict,
	services.KindAlreadyRecorded:        fiber.StatusConflict,
	services.KindInternalError:          fiber.StatusInternalServerError,
}

func statusForKind(kind services.MessageKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusUnprocessableEntity
}

// respondResult 按业务结果写响应，成功时使用 okStatus
func respondResult(c *fiber.Ctx, res services.Result, okStatus int) error {
	if res.Success {
		return c.Status(okStatus).JSON(res)
	}
	return c.Status(statusForKind(res.Kind)).JSON(res)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "未登录或登录已失效",
	})
}

// parseID 解析路径中的正整数ID
func parseID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx, label string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "无效的" + label,
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "参数解析失败，请检查输入格式",
	})
}

func serverError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}
