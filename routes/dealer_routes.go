package routes

import (
	"github.com/gofiber/fiber/v2"

	"dealer_hub/handlers"
	"dealer_hub/middleware"
)

// SetupDealerRoutes 设置经销商及下级管理路由
// /api/dealer 与 /api/dealers 前缀相近，认证中间件按路由挂载
func SetupDealerRoutes(api fiber.Router) {
	// 顶级经销商注册，无需登录
	api.Post("/dealers/register", handlers.RegisterDealer)

	auth := middleware.DealerAuthMiddleware()
	dealer := api.Group("/dealer")

	dealer.Get("/hierarchy", auth, handlers.GetHierarchy) // 上级和直属下级

	dealer.Get("/sub-dealers", auth, handlers.ListSubDealers)         // 直属下级列表
	dealer.Post("/sub-dealers", auth, handlers.CreateSubDealer)       // 创建下级
	dealer.Put("/sub-dealers/:id", auth, handlers.UpdateSubDealer)    // 更新下级
	dealer.Delete("/sub-dealers/:id", auth, handlers.DeleteSubDealer) // 删除下级

	setupCommissionRoutes(dealer.Group("/commissions"), auth)
}
