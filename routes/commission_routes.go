package routes

import (
	"github.com/gofiber/fiber/v2"

	"dealer_hub/handlers"
)

// setupCommissionRoutes 设置佣金协议、结算和报表路由
// 所有操作都以当前登录的经销商作为上级
func setupCommissionRoutes(commissions fiber.Router, auth fiber.Handler) {
	// 佣金协议
	commissions.Get("/settings", auth, handlers.ListCommissionSettings)
	commissions.Get("/settings/:childId", auth, handlers.GetCommissionSettings)
	commissions.Put("/settings/:childId", auth, handlers.SaveCommissionSettings)
	commissions.Delete("/settings/:childId", auth, handlers.DeleteCommissionSettings)
	commissions.Put("/settings/:childId/toggle", auth, handlers.ToggleCommissionSettings)

	// 结算
	commissions.Post("/payouts/:childId", auth, handlers.ProcessPayout)
	commissions.Get("/payouts", auth, handlers.ListPayouts)

	// 流水与报表
	commissions.Get("/transactions", auth, handlers.ListCommissionTransactions)
	commissions.Get("/export", auth, handlers.ExportCommissionTransactions)
	commissions.Get("/stats", auth, handlers.GetCommissionStats)
}
